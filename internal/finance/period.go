// Package finance holds the calendar and arithmetic rules behind the monthly
// balance: period normalization, activity windows, per-entry monthly amounts
// and household share ratios. Everything here is pure; callers load the data.
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fintrack/internal/model"
)

var (
	daysPerMonth  = decimal.RequireFromString("30.44")
	weeksPerMonth = decimal.RequireFromString("4.35")
	monthsPerYear = decimal.NewFromInt(12)
)

// MonthlyAmount converts an amount recurring every period into its monthly
// equivalent, rounding half away from zero to whole minor units.
func MonthlyAmount(amount int64, period model.Period) int64 {
	a := decimal.NewFromInt(amount)
	switch period {
	case model.PeriodDaily:
		return a.Mul(daysPerMonth).Round(0).IntPart()
	case model.PeriodWeekly:
		return a.Mul(weeksPerMonth).Round(0).IntPart()
	case model.PeriodYearly:
		return a.DivRound(monthsPerYear, 0).IntPart()
	}
	return amount
}
