package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/model"
)

// LedgerService manages a user's own incomes, personal expenses, pockets
// and tags. Records owned by someone else are reported as not found.
type LedgerService struct {
	incomes  IncomeRepo
	expenses ExpenseRepo
	pockets  PocketRepo
	tags     TagRepo
}

func NewLedgerService(incomes IncomeRepo, expenses ExpenseRepo, pockets PocketRepo, tags TagRepo) *LedgerService {
	return &LedgerService{incomes: incomes, expenses: expenses, pockets: pockets, tags: tags}
}

// Incomes

func (s *LedgerService) ListIncomes(ctx context.Context, userID int64) ([]model.Income, error) {
	incomes, err := s.incomes.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if incomes == nil {
		incomes = []model.Income{}
	}
	return incomes, nil
}

func (s *LedgerService) CreateIncome(ctx context.Context, userID int64, in model.IncomeInput) (*model.Income, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.StartDate == nil {
		return nil, apperr.Validation("start_date is required")
	}
	r := model.Recurring{Period: in.Period, StartDate: *in.StartDate, EndDate: in.EndDate}
	if err := r.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return s.incomes.Create(ctx, model.Income{UserID: userID, Name: name, Amount: in.Amount, Recurring: r})
}

func (s *LedgerService) UpdateIncome(ctx context.Context, userID, id int64, u model.IncomeUpdate) (*model.Income, error) {
	inc, err := s.ownIncome(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		if inc.Name, err = validateName(*u.Name); err != nil {
			return nil, err
		}
	}
	if u.Amount != nil {
		if err := validateAmount(*u.Amount); err != nil {
			return nil, err
		}
		inc.Amount = *u.Amount
	}
	if u.Period != nil {
		inc.Period = *u.Period
	}
	if u.StartDate != nil {
		inc.StartDate = *u.StartDate
	}
	if u.ClearEnd {
		inc.EndDate = nil
	} else if u.EndDate != nil {
		inc.EndDate = u.EndDate
	}
	if err := inc.Recurring.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	return s.incomes.Update(ctx, *inc)
}

func (s *LedgerService) DeleteIncome(ctx context.Context, userID, id int64) error {
	if _, err := s.ownIncome(ctx, userID, id); err != nil {
		return err
	}
	return s.incomes.Delete(ctx, id)
}

func (s *LedgerService) ownIncome(ctx context.Context, userID, id int64) (*model.Income, error) {
	inc, err := s.incomes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inc == nil || inc.UserID != userID {
		return nil, apperr.NotFound("income not found")
	}
	return inc, nil
}

// Personal expenses

func (s *LedgerService) ListExpenses(ctx context.Context, userID int64) ([]model.Expense, error) {
	expenses, err := s.expenses.ListPersonal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	return expenses, nil
}

func (s *LedgerService) CreateExpense(ctx context.Context, userID int64, in model.ExpenseInput) (*model.Expense, error) {
	e, err := s.newExpense(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return s.expenses.Create(ctx, *e)
}

func (s *LedgerService) UpdateExpense(ctx context.Context, userID, id int64, u model.ExpenseUpdate) (*model.Expense, error) {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || e.UserID != userID || e.HouseholdID != nil {
		return nil, apperr.NotFound("expense not found")
	}
	if err := s.applyExpenseUpdate(ctx, userID, e, u); err != nil {
		return nil, err
	}
	return s.expenses.Update(ctx, *e)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, userID, id int64) error {
	e, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil || e.UserID != userID || e.HouseholdID != nil {
		return apperr.NotFound("expense not found")
	}
	return s.expenses.Delete(ctx, id)
}

// newExpense validates in and returns an active expense owned by userID.
func (s *LedgerService) newExpense(ctx context.Context, userID int64, in model.ExpenseInput) (*model.Expense, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	sched, err := in.Schedule.Build()
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if in.TagID != nil {
		if _, err := s.ownTag(ctx, userID, *in.TagID); err != nil {
			return nil, err
		}
	}
	return &model.Expense{
		UserID:   userID,
		TagID:    in.TagID,
		Name:     name,
		Amount:   in.Amount,
		Active:   true,
		Schedule: sched,
	}, nil
}

func (s *LedgerService) applyExpenseUpdate(ctx context.Context, userID int64, e *model.Expense, u model.ExpenseUpdate) error {
	var err error
	if u.Name != nil {
		if e.Name, err = validateName(*u.Name); err != nil {
			return err
		}
	}
	if u.Amount != nil {
		if err := validateAmount(*u.Amount); err != nil {
			return err
		}
		e.Amount = *u.Amount
	}
	if u.Active != nil {
		e.Active = *u.Active
	}
	switch {
	case u.ClearTag:
		e.TagID = nil
	case u.TagID != nil:
		if _, err := s.ownTag(ctx, userID, *u.TagID); err != nil {
			return err
		}
		e.TagID = u.TagID
	}
	if u.Schedule != nil || u.ClearEnd {
		f := model.FieldsOf(e.Schedule)
		if u.Schedule != nil {
			f = f.Overlay(*u.Schedule)
		}
		if u.ClearEnd {
			f.EndDate = nil
		}
		sched, err := f.Build()
		if err != nil {
			return apperr.Validation("%s", err.Error())
		}
		e.Schedule = sched
	}
	return nil
}

// Pockets

func (s *LedgerService) ListPockets(ctx context.Context, userID int64) ([]model.Pocket, error) {
	pockets, err := s.pockets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pockets == nil {
		pockets = []model.Pocket{}
	}
	return pockets, nil
}

func (s *LedgerService) CreatePocket(ctx context.Context, userID int64, name string, amount int64) (*model.Pocket, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return s.pockets.Create(ctx, userID, name, amount)
}

func (s *LedgerService) UpdatePocket(ctx context.Context, userID, id int64, u model.PocketUpdate) (*model.Pocket, error) {
	p, err := s.ownPocket(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		if p.Name, err = validateName(*u.Name); err != nil {
			return nil, err
		}
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	return s.pockets.Update(ctx, *p)
}

func (s *LedgerService) DeletePocket(ctx context.Context, userID, id int64) error {
	if _, err := s.ownPocket(ctx, userID, id); err != nil {
		return err
	}
	return s.pockets.Delete(ctx, id)
}

func (s *LedgerService) ownPocket(ctx context.Context, userID, id int64) (*model.Pocket, error) {
	p, err := s.pockets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.UserID != userID {
		return nil, apperr.NotFound("pocket not found")
	}
	return p, nil
}

// Tags

func (s *LedgerService) ListTags(ctx context.Context, userID int64) ([]model.Tag, error) {
	tags, err := s.tags.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	return tags, nil
}

func (s *LedgerService) CreateTag(ctx context.Context, userID int64, name, color string) (*model.Tag, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	color = strings.TrimSpace(color)
	if err := validateColor(color); err != nil {
		return nil, err
	}
	return s.tags.Create(ctx, userID, name, color)
}

func (s *LedgerService) UpdateTag(ctx context.Context, userID, id int64, u model.TagUpdate) (*model.Tag, error) {
	t, err := s.ownTag(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		if t.Name, err = validateName(*u.Name); err != nil {
			return nil, err
		}
	}
	if u.Color != nil {
		color := strings.TrimSpace(*u.Color)
		if err := validateColor(color); err != nil {
			return nil, err
		}
		t.Color = color
	}
	return s.tags.Update(ctx, *t)
}

// DeleteTag removes the tag; expenses that used it become untagged.
func (s *LedgerService) DeleteTag(ctx context.Context, userID, id int64) error {
	if _, err := s.ownTag(ctx, userID, id); err != nil {
		return err
	}
	if err := s.tags.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *LedgerService) ownTag(ctx context.Context, userID, id int64) (*model.Tag, error) {
	t, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.UserID != userID {
		return nil, apperr.NotFound("tag not found")
	}
	return t, nil
}
