package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/model"
)

// setupFileDB opens a WAL database on disk so concurrent transactions run on
// separate connections instead of queueing behind a single :memory: one.
func setupFileDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open file db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// runTogether starts every fn at the same moment and waits for all of them.
func runTogether(fns ...func() error) []error {
	errs := make([]error, len(fns))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestConcurrentAcceptJoinsOneHousehold(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	hs := NewHouseholdStore(db)
	is := NewInvitationStore(db)
	ana := createTestUser(t, db, "ana@example.com", "Ana")
	cal := createTestUser(t, db, "cal@example.com", "Cal")
	ben := createTestUser(t, db, "ben@example.com", "Ben")

	var invIDs []int64
	for i, owner := range []*model.User{ana, cal} {
		h, err := hs.Create(ctx, owner.Name+"'s", model.SplitEqual, owner.ID)
		if err != nil {
			t.Fatalf("create household: %v", err)
		}
		inv, err := is.CreatePending(ctx, newInvitation(h, owner, ben.Email, "tok-"+owner.Name, now.Add(time.Hour)), now)
		if err != nil {
			t.Fatalf("invite %d: %v", i, err)
		}
		invIDs = append(invIDs, inv.ID)
	}

	for round := 0; round < 5; round++ {
		errs := runTogether(
			func() error { return is.Accept(ctx, invIDs[0], ben.ID) },
			func() error { return is.Accept(ctx, invIDs[1], ben.ID) },
		)

		var ok, conflicts int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyInHousehold):
				conflicts++
			default:
				t.Fatalf("round %d: unexpected error: %v", round, err)
			}
		}
		if ok != 1 || conflicts != 1 {
			t.Fatalf("round %d: ok = %d, conflicts = %d, want 1 and 1", round, ok, conflicts)
		}

		var memberships int
		if err := db.QueryRow(`SELECT COUNT(*) FROM household_members WHERE user_id = ?`, ben.ID).Scan(&memberships); err != nil {
			t.Fatalf("count memberships: %v", err)
		}
		if memberships != 1 {
			t.Fatalf("round %d: memberships = %d, want 1", round, memberships)
		}

		// The losing invitation must still be pending.
		var pending int
		if err := db.QueryRow(`SELECT COUNT(*) FROM invitations WHERE status = 'pending'`).Scan(&pending); err != nil {
			t.Fatalf("count pending: %v", err)
		}
		if pending != 1 {
			t.Fatalf("round %d: pending invitations = %d, want 1", round, pending)
		}

		// Reset for the next round: Ben leaves, both invitations go back to pending.
		m, err := hs.MembershipOf(ctx, ben.ID)
		if err != nil || m == nil {
			t.Fatalf("membership: %v %v", m, err)
		}
		if _, err := hs.Leave(ctx, m.HouseholdID, ben.ID); err != nil {
			t.Fatalf("leave: %v", err)
		}
		if _, err := db.Exec(`UPDATE invitations SET status = 'pending'`); err != nil {
			t.Fatalf("reset invitations: %v", err)
		}
	}
}

func TestConcurrentLeaveOfLastTwoMembers(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()
	hs := NewHouseholdStore(db)
	es := NewExpenseStore(db)

	for round := 0; round < 5; round++ {
		ana := createTestUser(t, db, fmt.Sprintf("ana%d@example.com", round), "Ana")
		ben := createTestUser(t, db, fmt.Sprintf("ben%d@example.com", round), "Ben")
		h, err := hs.Create(ctx, "Home", model.SplitEqual, ana.ID)
		if err != nil {
			t.Fatalf("create household: %v", err)
		}
		if err := insertMember(ctx, db, h.ID, ben.ID); err != nil {
			t.Fatalf("add ben: %v", err)
		}
		sched := model.Recurring{Period: model.PeriodMonthly, StartDate: model.MustDate("2024-01-01")}
		for _, u := range []*model.User{ana, ben} {
			e := model.Expense{UserID: u.ID, HouseholdID: &h.ID, Name: "Rent", Amount: 50000, Active: true, Schedule: sched}
			if _, err := es.Create(ctx, e); err != nil {
				t.Fatalf("create expense: %v", err)
			}
		}

		results := make([]LeaveResult, 2)
		errs := runTogether(
			func() error {
				var err error
				results[0], err = hs.Leave(ctx, h.ID, ana.ID)
				return err
			},
			func() error {
				var err error
				results[1], err = hs.Leave(ctx, h.ID, ben.ID)
				return err
			},
		)
		for i, err := range errs {
			if err != nil {
				t.Fatalf("round %d: leave %d: %v", round, i, err)
			}
		}

		deleted := 0
		for _, r := range results {
			if r.HouseholdDeleted {
				deleted++
			}
		}
		if deleted != 1 {
			t.Fatalf("round %d: HouseholdDeleted reported %d times, want 1", round, deleted)
		}

		got, err := hs.GetByID(ctx, h.ID)
		if err != nil {
			t.Fatalf("get household: %v", err)
		}
		if got != nil {
			t.Fatalf("round %d: household still exists", round)
		}
		var left int
		if err := db.QueryRow(`SELECT COUNT(*) FROM expenses WHERE household_id = ?`, h.ID).Scan(&left); err != nil {
			t.Fatalf("count expenses: %v", err)
		}
		if left != 0 {
			t.Fatalf("round %d: %d expenses left behind", round, left)
		}
	}
}
