package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email, name string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(context.Background(), email, name)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}
