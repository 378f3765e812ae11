package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukerupert/fintrack/internal/finance"
	"github.com/dukerupert/fintrack/internal/model"
)

const (
	DefaultTrendMonths = 6
	uncategorizedName  = "Uncategorized"
)

// StatsService aggregates the user's personal expenses for charts.
type StatsService struct {
	expenses ExpenseRepo
	tags     TagRepo
	now      func() time.Time
}

func NewStatsService(expenses ExpenseRepo, tags TagRepo, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{expenses: expenses, tags: tags, now: now}
}

// ExpensesByTag totals active personal expenses for the month per tag,
// largest first. Untagged expenses are grouped under "Uncategorized".
func (s *StatsService) ExpensesByTag(ctx context.Context, userID int64, year, month int) ([]model.TagTotal, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}

	expenses, err := s.activePersonal(ctx, userID)
	if err != nil {
		return nil, err
	}
	tags, err := s.tags.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byID := make(map[int64]model.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}

	y, m := monthOf(year, month)
	buckets := make(map[int64]*model.TagTotal)
	var untagged *model.TagTotal
	for _, e := range expenses {
		amount := finance.ExpenseMonthlyAmount(e, y, m)
		if amount <= 0 {
			continue
		}
		tag, ok := model.Tag{}, false
		if e.TagID != nil {
			tag, ok = byID[*e.TagID]
		}
		if !ok {
			if untagged == nil {
				untagged = &model.TagTotal{Name: uncategorizedName}
			}
			untagged.Total += amount
			continue
		}
		b, seen := buckets[tag.ID]
		if !seen {
			id, color := tag.ID, tag.Color
			b = &model.TagTotal{TagID: &id, Name: tag.Name, Color: &color}
			buckets[tag.ID] = b
		}
		b.Total += amount
	}

	out := make([]model.TagTotal, 0, len(buckets)+1)
	for _, b := range buckets {
		out = append(out, *b)
	}
	if untagged != nil {
		out = append(out, *untagged)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MonthlyTrend returns personal expense totals for the monthsBack months
// ending with the current one, oldest first.
func (s *StatsService) MonthlyTrend(ctx context.Context, userID int64, monthsBack int) ([]model.TrendPoint, error) {
	if err := validateSpan("months", monthsBack); err != nil {
		return nil, err
	}

	expenses, err := s.activePersonal(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]model.TrendPoint, 0, monthsBack)
	for i := monthsBack - 1; i >= 0; i-- {
		y, m := finance.AddMonths(now.Year(), now.Month(), -i)
		var total int64
		for _, e := range expenses {
			total += finance.ExpenseMonthlyAmount(e, y, m)
		}
		out = append(out, model.TrendPoint{Year: y, Month: int(m), Total: total})
	}
	return out, nil
}

func (s *StatsService) activePersonal(ctx context.Context, userID int64) ([]model.Expense, error) {
	all, err := s.expenses.ListPersonal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	active := all[:0]
	for _, e := range all {
		if e.Active {
			active = append(active, e)
		}
	}
	return active, nil
}
