package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/fintrack/internal/model"
)

func TestHouseholdCreateAddsCreator(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "ana@example.com", "Ana")
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "Home", model.SplitIncomeProportional, u.ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "Home" {
		t.Errorf("name = %q, want %q", h.Name, "Home")
	}
	if h.SplitMode != model.SplitIncomeProportional {
		t.Errorf("split mode = %q, want income_proportional", h.SplitMode)
	}

	m, err := hs.MembershipOf(ctx, u.ID)
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if m == nil || m.HouseholdID != h.ID {
		t.Fatalf("membership = %+v, want household %d", m, h.ID)
	}
	if m.Email != "ana@example.com" {
		t.Errorf("member email = %q", m.Email)
	}
}

func TestHouseholdCreateRejectsSecondHousehold(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "ana@example.com", "Ana")
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	if _, err := hs.Create(ctx, "Home", model.SplitEqual, u.ID); err != nil {
		t.Fatalf("create household: %v", err)
	}
	_, err := hs.Create(ctx, "Cabin", model.SplitEqual, u.ID)
	if !errors.Is(err, ErrAlreadyInHousehold) {
		t.Fatalf("err = %v, want ErrAlreadyInHousehold", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM households`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("households = %d, want 1 (failed create must roll back)", n)
	}
}

func TestHouseholdUpdate(t *testing.T) {
	db := setupTestDB(t)
	u := createTestUser(t, db, "ana@example.com", "Ana")
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "Old Name", model.SplitEqual, u.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	h.Name = "New Name"
	h.SplitMode = model.SplitIncomeProportional
	updated, err := hs.Update(ctx, *h)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("name = %q, want %q", updated.Name, "New Name")
	}
	if updated.SplitMode != model.SplitIncomeProportional {
		t.Errorf("split mode = %q", updated.SplitMode)
	}
}

func TestHouseholdLeaveDeactivatesOwnExpenses(t *testing.T) {
	db := setupTestDB(t)
	ana := createTestUser(t, db, "ana@example.com", "Ana")
	ben := createTestUser(t, db, "ben@example.com", "Ben")
	hs := NewHouseholdStore(db)
	es := NewExpenseStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "Home", model.SplitEqual, ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := insertMember(ctx, db, h.ID, ben.ID); err != nil {
		t.Fatalf("add ben: %v", err)
	}

	sched := model.Recurring{Period: model.PeriodMonthly, StartDate: model.MustDate("2024-01-01")}
	anaExp, err := es.Create(ctx, model.Expense{UserID: ana.ID, HouseholdID: &h.ID, Name: "Internet", Amount: 6000, Active: true, Schedule: sched})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	benExp, err := es.Create(ctx, model.Expense{UserID: ben.ID, HouseholdID: &h.ID, Name: "Power", Amount: 9000, Active: true, Schedule: sched})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	res, err := hs.Leave(ctx, h.ID, ana.ID)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if res.HouseholdDeleted {
		t.Error("household should survive while ben remains")
	}
	if res.DeactivatedExpenses != 1 {
		t.Errorf("deactivated = %d, want 1", res.DeactivatedExpenses)
	}

	got, _ := es.GetByID(ctx, anaExp.ID)
	if got == nil || got.Active {
		t.Errorf("ana's expense = %+v, want present and inactive", got)
	}
	got, _ = es.GetByID(ctx, benExp.ID)
	if got == nil || !got.Active {
		t.Errorf("ben's expense = %+v, want active", got)
	}
	if m, _ := hs.MembershipOf(ctx, ana.ID); m != nil {
		t.Error("ana still has a membership")
	}
}

func TestHouseholdLeaveLastMemberCascades(t *testing.T) {
	db := setupTestDB(t)
	ana := createTestUser(t, db, "ana@example.com", "Ana")
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "Home", model.SplitEqual, ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := NewExpenseStore(db).Create(ctx, model.Expense{
		UserID: ana.ID, HouseholdID: &h.ID, Name: "Internet", Amount: 6000, Active: true,
		Schedule: model.Recurring{Period: model.PeriodMonthly, StartDate: model.MustDate("2024-01-01")},
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO invitations (household_id, email, token, invited_by, expires_at) VALUES (?, 'x@example.com', 'tok', ?, 0)`,
		h.ID, ana.ID,
	); err != nil {
		t.Fatalf("insert invitation: %v", err)
	}

	res, err := hs.Leave(ctx, h.ID, ana.ID)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !res.HouseholdDeleted {
		t.Error("expected household to be deleted")
	}

	for _, table := range []string{"households", "expenses", "invitations", "household_members"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows = %d, want 0", table, n)
		}
	}
}

func TestHouseholdLeaveNonMember(t *testing.T) {
	db := setupTestDB(t)
	ana := createTestUser(t, db, "ana@example.com", "Ana")
	ben := createTestUser(t, db, "ben@example.com", "Ben")
	hs := NewHouseholdStore(db)
	ctx := context.Background()

	h, err := hs.Create(ctx, "Home", model.SplitEqual, ana.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := hs.Leave(ctx, h.ID, ben.ID); !errors.Is(err, ErrNotMember) {
		t.Errorf("err = %v, want ErrNotMember", err)
	}
}
