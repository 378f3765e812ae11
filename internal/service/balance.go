package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/finance"
	"github.com/dukerupert/fintrack/internal/model"
)

// BalanceService computes monthly balances. Nothing is cached: every call
// reads current incomes, expenses and membership.
type BalanceService struct {
	incomes    IncomeRepo
	expenses   ExpenseRepo
	pockets    PocketRepo
	households HouseholdRepo
	logger     *slog.Logger
}

func NewBalanceService(incomes IncomeRepo, expenses ExpenseRepo, pockets PocketRepo, households HouseholdRepo, logger *slog.Logger) *BalanceService {
	return &BalanceService{
		incomes:    incomes,
		expenses:   expenses,
		pockets:    pockets,
		households: households,
		logger:     logger,
	}
}

// MonthlyBalance returns the user's balance for the month. Income, personal
// expenses, household share and pockets are loaded concurrently; if any of
// them fails the whole call fails.
func (s *BalanceService) MonthlyBalance(ctx context.Context, userID int64, year, month int) (*model.MonthlyBalance, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	b := &model.MonthlyBalance{Year: year, Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		income, err := s.userIncome(gctx, userID, year, month)
		b.Income = income
		return err
	})
	g.Go(func() error {
		personal, err := s.personalExpenses(gctx, userID, year, month)
		b.PersonalExpenses = personal
		return err
	})
	g.Go(func() error {
		share, err := s.householdShare(gctx, userID, year, month)
		b.HouseholdShare = share
		return err
	})
	g.Go(func() error {
		pockets, err := s.userPockets(gctx, userID)
		b.Pockets = pockets
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Remaining = b.Income - b.PersonalExpenses.Total - b.HouseholdShare.Total - b.Pockets.Total
	return b, nil
}

// Projection returns consecutive monthly balances starting at (year, month).
func (s *BalanceService) Projection(ctx context.Context, userID int64, year, month, months int) ([]model.MonthlyBalance, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	if err := validateSpan("months", months); err != nil {
		return nil, err
	}

	if lastYear, _ := finance.AddMonths(year, time.Month(month), months-1); lastYear > maxYear {
		return nil, apperr.Validation("projection must end no later than %d-12", maxYear)
	}

	out := make([]model.MonthlyBalance, 0, months)
	for i := 0; i < months; i++ {
		y, m := finance.AddMonths(year, time.Month(month), i)
		b, err := s.MonthlyBalance(ctx, userID, y, int(m))
		if err != nil {
			return nil, fmt.Errorf("projection %d-%02d: %w", y, m, err)
		}
		out = append(out, *b)
	}
	return out, nil
}

// ShareRatio is userID's share of the household's expenses for the month.
// Member incomes are read fresh on every call.
func (s *BalanceService) ShareRatio(ctx context.Context, household model.Household, members []model.HouseholdMember, userID int64, year, month int) (finance.ShareRatio, error) {
	incomes := make([]finance.MemberIncome, len(members))
	if household.SplitMode == model.SplitIncomeProportional {
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range members {
			g.Go(func() error {
				total, err := s.userIncome(gctx, m.UserID, year, month)
				incomes[i] = finance.MemberIncome{UserID: m.UserID, Income: total}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return finance.ShareRatio{}, err
		}
	} else {
		for i, m := range members {
			incomes[i] = finance.MemberIncome{UserID: m.UserID}
		}
	}
	return finance.UserShareRatio(household.SplitMode, incomes, userID), nil
}

func (s *BalanceService) userIncome(ctx context.Context, userID int64, year, month int) (int64, error) {
	incomes, err := s.incomes.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load incomes: %w", err)
	}
	y, m := monthOf(year, month)
	return finance.IncomeTotal(incomes, y, m), nil
}

func (s *BalanceService) personalExpenses(ctx context.Context, userID int64, year, month int) (model.PersonalExpenses, error) {
	out := model.PersonalExpenses{Items: []model.PersonalItem{}}

	expenses, err := s.expenses.ListPersonal(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load personal expenses: %w", err)
	}
	y, m := monthOf(year, month)
	for _, e := range expenses {
		if !e.Active {
			continue
		}
		amount := finance.ExpenseMonthlyAmount(e, y, m)
		if amount <= 0 {
			continue
		}
		out.Items = append(out.Items, model.PersonalItem{
			ExpenseID: e.ID,
			Name:      e.Name,
			Amount:    amount,
			Type:      e.Schedule.Type(),
			EndDate:   e.EndDate(),
		})
		out.Total += amount
	}
	return out, nil
}

func (s *BalanceService) householdShare(ctx context.Context, userID int64, year, month int) (model.HouseholdShare, error) {
	out := model.HouseholdShare{Items: []model.SharedItem{}}

	membership, err := s.households.MembershipOf(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load membership: %w", err)
	}
	if membership == nil {
		return out, nil
	}
	household, err := s.households.GetByID(ctx, membership.HouseholdID)
	if err != nil {
		return out, fmt.Errorf("load household: %w", err)
	}
	if household == nil {
		return out, nil
	}
	members, err := s.households.ListMembers(ctx, household.ID)
	if err != nil {
		return out, fmt.Errorf("load members: %w", err)
	}
	expenses, err := s.expenses.ListByHousehold(ctx, household.ID)
	if err != nil {
		return out, fmt.Errorf("load household expenses: %w", err)
	}

	ratio, err := s.ShareRatio(ctx, *household, members, userID, year, month)
	if err != nil {
		return out, fmt.Errorf("share ratio: %w", err)
	}
	out.Ratio = ratio.Float64()
	out.UsedFallback = ratio.Fallback

	y, m := monthOf(year, month)
	for _, e := range expenses {
		if !e.Active {
			continue
		}
		amount := finance.ExpenseMonthlyAmount(e, y, m)
		if amount <= 0 {
			continue
		}
		share := ratio.Apply(amount)
		out.Items = append(out.Items, model.SharedItem{
			ExpenseID: e.ID,
			Name:      e.Name,
			Amount:    amount,
			YourShare: share,
			Type:      e.Schedule.Type(),
			EndDate:   e.EndDate(),
		})
		out.Total += share
	}
	return out, nil
}

func (s *BalanceService) userPockets(ctx context.Context, userID int64) (model.Pockets, error) {
	out := model.Pockets{Items: []model.PocketItem{}}

	pockets, err := s.pockets.ListByUser(ctx, userID)
	if err != nil {
		return out, fmt.Errorf("load pockets: %w", err)
	}
	for _, p := range pockets {
		out.Items = append(out.Items, model.PocketItem{PocketID: p.ID, Name: p.Name, Amount: p.Amount})
		out.Total += p.Amount
	}
	return out, nil
}
