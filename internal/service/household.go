package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/model"
	"github.com/dukerupert/fintrack/internal/store"
)

// HouseholdService manages households, membership and shared expenses.
type HouseholdService struct {
	households HouseholdRepo
	expenses   ExpenseRepo
	ledger     *LedgerService
	events     Broadcaster
	notifier   Notifier
	logger     *slog.Logger
}

type HouseholdOption func(*HouseholdService)

// WithBroadcaster and WithNotifier ignore nil, leaving the no-op default.
func WithBroadcaster(b Broadcaster) HouseholdOption {
	return func(s *HouseholdService) {
		if b != nil {
			s.events = b
		}
	}
}

func WithNotifier(n Notifier) HouseholdOption {
	return func(s *HouseholdService) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewHouseholdService(households HouseholdRepo, expenses ExpenseRepo, ledger *LedgerService, logger *slog.Logger, opts ...HouseholdOption) *HouseholdService {
	s := &HouseholdService{
		households: households,
		expenses:   expenses,
		ledger:     ledger,
		events:     nopBroadcaster{},
		notifier:   nopNotifier{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create makes a new household with the caller as its only member.
func (s *HouseholdService) Create(ctx context.Context, userID int64, name string, mode model.SplitMode) (*model.HouseholdDetail, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = model.SplitEqual
	}
	if !mode.Valid() {
		return nil, apperr.Validation("split_mode must be equal or income_proportional")
	}

	h, err := s.households.Create(ctx, name, mode, userID)
	if errors.Is(err, store.ErrAlreadyInHousehold) {
		return nil, apperr.Conflict("you already belong to a household")
	}
	if err != nil {
		return nil, fmt.Errorf("create household: %w", err)
	}
	s.logger.Info("household created", "household_id", h.ID, "user_id", userID)
	return s.detail(ctx, *h)
}

// Mine returns the caller's household with its members, or nil.
func (s *HouseholdService) Mine(ctx context.Context, userID int64) (*model.HouseholdDetail, error) {
	m, err := s.households.MembershipOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	h, err := s.households.GetByID(ctx, m.HouseholdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, nil
	}
	return s.detail(ctx, *h)
}

func (s *HouseholdService) Update(ctx context.Context, userID, householdID int64, u model.HouseholdUpdate) (*model.Household, error) {
	h, err := s.requireMember(ctx, userID, householdID)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		if h.Name, err = validateName(*u.Name); err != nil {
			return nil, err
		}
	}
	if u.SplitMode != nil {
		if !u.SplitMode.Valid() {
			return nil, apperr.Validation("split_mode must be equal or income_proportional")
		}
		h.SplitMode = *u.SplitMode
	}
	updated, err := s.households.Update(ctx, *h)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	s.events.BroadcastHousehold(householdID, "household", "updated", householdID)
	return updated, nil
}

// Leave removes the caller from the household. Their shared expenses are
// deactivated; the last member leaving deletes the household.
func (s *HouseholdService) Leave(ctx context.Context, userID, householdID int64) (store.LeaveResult, error) {
	if _, err := s.requireMember(ctx, userID, householdID); err != nil {
		return store.LeaveResult{}, err
	}

	res, err := s.households.Leave(ctx, householdID, userID)
	if errors.Is(err, store.ErrNotMember) {
		return res, apperr.Forbidden("you are not a member of this household")
	}
	if err != nil {
		return res, fmt.Errorf("leave household: %w", err)
	}

	s.logger.Info("member left household",
		"household_id", householdID,
		"user_id", userID,
		"deactivated_expenses", res.DeactivatedExpenses,
		"household_deleted", res.HouseholdDeleted,
	)
	if !res.HouseholdDeleted {
		s.events.BroadcastHousehold(householdID, "member", "left", userID)
		s.notifier.NotifyHousehold(ctx, householdID, userID, "Household update", "A member left your household", "/household")
	}
	return res, nil
}

// Household expenses

func (s *HouseholdService) ListExpenses(ctx context.Context, userID, householdID int64) ([]model.Expense, error) {
	if _, err := s.requireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	expenses, err := s.expenses.ListByHousehold(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	return expenses, nil
}

func (s *HouseholdService) CreateExpense(ctx context.Context, userID, householdID int64, in model.ExpenseInput) (*model.Expense, error) {
	if _, err := s.requireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	e, err := s.ledger.newExpense(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	e.HouseholdID = &householdID
	created, err := s.expenses.Create(ctx, *e)
	if err != nil {
		return nil, err
	}
	s.events.BroadcastHousehold(householdID, "expense", "created", created.ID)
	return created, nil
}

func (s *HouseholdService) UpdateExpense(ctx context.Context, userID, householdID, id int64, u model.ExpenseUpdate) (*model.Expense, error) {
	e, err := s.householdExpense(ctx, userID, householdID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.applyExpenseUpdate(ctx, userID, e, u); err != nil {
		return nil, err
	}
	updated, err := s.expenses.Update(ctx, *e)
	if err != nil {
		return nil, err
	}
	s.events.BroadcastHousehold(householdID, "expense", "updated", id)
	return updated, nil
}

func (s *HouseholdService) DeleteExpense(ctx context.Context, userID, householdID, id int64) error {
	if _, err := s.householdExpense(ctx, userID, householdID, id); err != nil {
		return err
	}
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.events.BroadcastHousehold(householdID, "expense", "deleted", id)
	return nil
}

func (s *HouseholdService) householdExpense(ctx context.Context, userID, householdID, id int64) (*model.Expense, error) {
	if _, err := s.requireMember(ctx, userID, householdID); err != nil {
		return nil, err
	}
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.HouseholdID == nil || *e.HouseholdID != householdID {
		return nil, apperr.NotFound("expense not found")
	}
	return e, nil
}

func (s *HouseholdService) requireMember(ctx context.Context, userID, householdID int64) (*model.Household, error) {
	return requireMember(ctx, s.households, userID, householdID)
}

// requireMember loads the household and checks that userID belongs to it.
func requireMember(ctx context.Context, households HouseholdRepo, userID, householdID int64) (*model.Household, error) {
	h, err := households.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, apperr.NotFound("household not found")
	}
	m, err := households.GetMember(ctx, householdID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.Forbidden("you are not a member of this household")
	}
	return h, nil
}

func (s *HouseholdService) detail(ctx context.Context, h model.Household) (*model.HouseholdDetail, error) {
	members, err := s.households.ListMembers(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	return &model.HouseholdDetail{Household: h, Members: members}, nil
}
