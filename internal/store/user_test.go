package store

import (
	"context"
	"testing"
)

func TestUserCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	us := NewUserStore(db)
	ctx := context.Background()

	u, err := us.Create(ctx, "ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}

	got, err := us.GetByEmail(ctx, "ANA@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("get by email = %+v, want id %d", got, u.ID)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)

	u, err := NewUserStore(db).GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "ana@example.com", "Ana")

	if _, err := NewUserStore(db).Create(context.Background(), "ana@example.com", "Other"); err == nil {
		t.Error("expected error for duplicate email")
	}
}
