package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fintrack/internal/database"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/store"
)

type testEnv struct {
	users       *store.UserStore
	incomes     *store.IncomeStore
	expenses    *store.ExpenseStore
	pockets     *store.PocketStore
	tags        *store.TagStore
	households  *store.HouseholdStore
	invitations *store.InvitationStore
	snapshots   *store.SnapshotStore

	balance    *BalanceService
	ledger     *LedgerService
	household  *HouseholdService
	invitation *InvitationService
	snapshot   *SnapshotService
	stats      *StatsService

	mailer *fakeMailer
	mirror *fakeMirror
	clock  *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentInvite struct {
	to, inviter, household, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentInvite
	err  error
}

func (m *fakeMailer) SendInvitation(_ context.Context, to, inviterName, householdName, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentInvite{to, inviterName, householdName, token})
	return m.err
}

func (m *fakeMailer) Sent() []sentInvite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentInvite(nil), m.sent...)
}

type fakeMirror struct {
	mu   sync.Mutex
	puts []model.Snapshot
	err  error
}

func (m *fakeMirror) Put(_ context.Context, snap model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, snap)
	return m.err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		users:       store.NewUserStore(db),
		incomes:     store.NewIncomeStore(db),
		expenses:    store.NewExpenseStore(db),
		pockets:     store.NewPocketStore(db),
		tags:        store.NewTagStore(db),
		households:  store.NewHouseholdStore(db),
		invitations: store.NewInvitationStore(db),
		snapshots:   store.NewSnapshotStore(db),
		mailer:      &fakeMailer{},
		mirror:      &fakeMirror{},
		clock:       &fakeClock{now: time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)},
	}
	env.balance = NewBalanceService(env.incomes, env.expenses, env.pockets, env.households, logger)
	env.ledger = NewLedgerService(env.incomes, env.expenses, env.pockets, env.tags)
	env.household = NewHouseholdService(env.households, env.expenses, env.ledger, logger)
	env.invitation = NewInvitationService(env.invitations, env.households, env.users, env.mailer, logger,
		WithInvitationClock(env.clock.Now))
	env.snapshot = NewSnapshotService(env.balance, env.snapshots, logger,
		WithMirror(env.mirror), WithSnapshotClock(env.clock.Now))
	env.stats = NewStatsService(env.expenses, env.tags, env.clock.Now)
	return env
}

func (env *testEnv) user(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := env.users.Create(context.Background(), email, email[:len(email)-len("@example.com")])
	require.NoError(t, err)
	return u
}

func (env *testEnv) monthlyIncome(t *testing.T, userID, amount int64) {
	t.Helper()
	start := model.MustDate("2024-01-01")
	_, err := env.ledger.CreateIncome(context.Background(), userID, model.IncomeInput{
		Name: "Salary", Amount: amount, Period: model.PeriodMonthly, StartDate: &start,
	})
	require.NoError(t, err)
}

func recurringMonthly(start string) model.ScheduleFields {
	p := model.PeriodMonthly
	d := model.MustDate(start)
	return model.ScheduleFields{Type: model.ExpenseRecurring, Period: &p, StartDate: &d}
}

func oneTime(target string) model.ScheduleFields {
	d := model.MustDate(target)
	return model.ScheduleFields{Type: model.ExpenseOneTime, TargetDate: &d}
}
