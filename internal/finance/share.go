package finance

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/fintrack/internal/model"
)

// MemberIncome is one household member's income total for a month.
type MemberIncome struct {
	UserID int64
	Income int64
}

// ShareRatio is a member's fraction of household expenses kept as an exact
// rational so applying it never accumulates float error.
type ShareRatio struct {
	Num int64
	Den int64
	// Fallback is set when income-proportional splitting had to fall back
	// to an equal split because nobody had any income that month.
	Fallback bool
}

func (r ShareRatio) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Apply returns amount × ratio rounded half away from zero.
func (r ShareRatio) Apply(amount int64) int64 {
	if r.Den == 0 || r.Num == 0 {
		return 0
	}
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(r.Num)).
		DivRound(decimal.NewFromInt(r.Den), 0).
		IntPart()
}

// UserShareRatio computes userID's share of the household's expenses.
// members holds one entry per current member; for equal splits the income
// values are ignored.
func UserShareRatio(mode model.SplitMode, members []MemberIncome, userID int64) ShareRatio {
	n := int64(len(members))
	if n == 0 {
		return ShareRatio{Num: 0, Den: 1}
	}
	if mode != model.SplitIncomeProportional {
		return ShareRatio{Num: 1, Den: n}
	}

	var total, own int64
	for _, m := range members {
		total += m.Income
		if m.UserID == userID {
			own += m.Income
		}
	}
	if total == 0 {
		return ShareRatio{Num: 1, Den: n, Fallback: true}
	}
	return ShareRatio{Num: own, Den: total}
}
