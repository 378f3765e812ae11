package finance

import (
	"time"

	"github.com/dukerupert/fintrack/internal/model"
)

// ExpenseMonthlyAmount is what the expense contributes to the given month.
// Callers are expected to have dropped inactive expenses already.
func ExpenseMonthlyAmount(e model.Expense, year int, month time.Month) int64 {
	switch s := e.Schedule.(type) {
	case model.OneTime:
		if InMonth(s.TargetDate, year, month) {
			return e.Amount
		}
	case model.Recurring:
		return recurringAmount(e.Amount, s, year, month)
	}
	return 0
}

func IncomeMonthlyAmount(inc model.Income, year int, month time.Month) int64 {
	return recurringAmount(inc.Amount, inc.Recurring, year, month)
}

// IncomeTotal sums IncomeMonthlyAmount over all incomes.
func IncomeTotal(incomes []model.Income, year int, month time.Month) int64 {
	var total int64
	for _, inc := range incomes {
		total += IncomeMonthlyAmount(inc, year, month)
	}
	return total
}

func recurringAmount(amount int64, r model.Recurring, year int, month time.Month) int64 {
	start := r.StartDate
	if !ActiveInMonth(&start, r.EndDate, year, month) {
		return 0
	}
	return MonthlyAmount(amount, r.Period)
}
