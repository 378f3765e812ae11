package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/fintrack/internal/model"
)

func TestMonthlyAmount(t *testing.T) {
	tests := []struct {
		amount int64
		period model.Period
		want   int64
	}{
		{100, model.PeriodDaily, 3044},
		{1, model.PeriodDaily, 30},
		{1000, model.PeriodWeekly, 4350},
		{11, model.PeriodWeekly, 48},
		{10, model.PeriodWeekly, 44},
		{120000, model.PeriodYearly, 10000},
		{6, model.PeriodYearly, 1},
		{5, model.PeriodYearly, 0},
		{250000, model.PeriodMonthly, 250000},
		{0, model.PeriodDaily, 0},
	}
	for _, tt := range tests {
		got := MonthlyAmount(tt.amount, tt.period)
		assert.Equalf(t, tt.want, got, "MonthlyAmount(%d, %s)", tt.amount, tt.period)
	}
}

func TestMonthlyAmountIdentityForMonthly(t *testing.T) {
	for _, amount := range []int64{0, 1, 99, 123456789, 1 << 40} {
		assert.Equal(t, amount, MonthlyAmount(amount, model.PeriodMonthly))
	}
}

func TestMonthlyAmountUnknownPeriodPassesThrough(t *testing.T) {
	assert.Equal(t, int64(777), MonthlyAmount(777, model.Period("fortnightly")))
}
