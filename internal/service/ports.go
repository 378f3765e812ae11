// Package service implements the finance operations on top of the stores:
// monthly balances and projections, snapshots, stats, the ledger, and the
// household and invitation lifecycle.
package service

import (
	"context"
	"time"

	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/store"
)

type IncomeRepo interface {
	Create(ctx context.Context, inc model.Income) (*model.Income, error)
	GetByID(ctx context.Context, id int64) (*model.Income, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Income, error)
	Update(ctx context.Context, inc model.Income) (*model.Income, error)
	Delete(ctx context.Context, id int64) error
}

type ExpenseRepo interface {
	Create(ctx context.Context, e model.Expense) (*model.Expense, error)
	GetByID(ctx context.Context, id int64) (*model.Expense, error)
	ListPersonal(ctx context.Context, userID int64) ([]model.Expense, error)
	ListByHousehold(ctx context.Context, householdID int64) ([]model.Expense, error)
	Update(ctx context.Context, e model.Expense) (*model.Expense, error)
	Delete(ctx context.Context, id int64) error
}

type PocketRepo interface {
	Create(ctx context.Context, userID int64, name string, amount int64) (*model.Pocket, error)
	GetByID(ctx context.Context, id int64) (*model.Pocket, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Pocket, error)
	Update(ctx context.Context, p model.Pocket) (*model.Pocket, error)
	Delete(ctx context.Context, id int64) error
}

type TagRepo interface {
	Create(ctx context.Context, userID int64, name, color string) (*model.Tag, error)
	GetByID(ctx context.Context, id int64) (*model.Tag, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Tag, error)
	Update(ctx context.Context, t model.Tag) (*model.Tag, error)
	Delete(ctx context.Context, id int64) error
}

type HouseholdRepo interface {
	Create(ctx context.Context, name string, mode model.SplitMode, userID int64) (*model.Household, error)
	GetByID(ctx context.Context, id int64) (*model.Household, error)
	Update(ctx context.Context, h model.Household) (*model.Household, error)
	MembershipOf(ctx context.Context, userID int64) (*model.HouseholdMember, error)
	GetMember(ctx context.Context, householdID, userID int64) (*model.HouseholdMember, error)
	ListMembers(ctx context.Context, householdID int64) ([]model.HouseholdMember, error)
	IsMemberEmail(ctx context.Context, householdID int64, email string) (bool, error)
	Leave(ctx context.Context, householdID, userID int64) (store.LeaveResult, error)
}

type InvitationRepo interface {
	CreatePending(ctx context.Context, inv model.Invitation, now time.Time) (*model.Invitation, error)
	GetByID(ctx context.Context, id int64) (*model.Invitation, error)
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	ListPendingForHousehold(ctx context.Context, householdID int64, now time.Time) ([]model.Invitation, error)
	ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]model.Invitation, error)
	MarkExpired(ctx context.Context, id int64) error
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
	Decline(ctx context.Context, id int64) error
	Accept(ctx context.Context, id, userID int64) error
	Delete(ctx context.Context, id int64) error
}

type SnapshotRepo interface {
	Upsert(ctx context.Context, userID int64, year, month int, data model.MonthlyBalance) (*model.Snapshot, error)
	Get(ctx context.Context, userID int64, year, month int) (*model.Snapshot, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Snapshot, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Mailer delivers invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, to, inviterName, householdName, token string) error
}

// SnapshotMirror keeps an off-site copy of saved snapshots.
type SnapshotMirror interface {
	Put(ctx context.Context, snap model.Snapshot) error
}

// Broadcaster pushes live change events to a household's connected clients.
type Broadcaster interface {
	BroadcastHousehold(householdID int64, entity, action string, id int64)
}

// Notifier sends user-visible notifications outside the app.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, title, body, url string)
	NotifyHousehold(ctx context.Context, householdID, exceptUserID int64, title, body, url string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastHousehold(int64, string, string, int64) {}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(context.Context, int64, string, string, string)             {}
func (nopNotifier) NotifyHousehold(context.Context, int64, int64, string, string, string) {}
