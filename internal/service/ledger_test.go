package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fintrack/internal/apperr"
	"github.com/dukerupert/fintrack/internal/model"
)

func TestCreateExpenseRequiresTypeFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")

	_, err := env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Broken", Amount: 100, Schedule: model.ScheduleFields{Type: model.ExpenseOneTime},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Broken", Amount: 100, Schedule: model.ScheduleFields{Type: model.ExpenseRecurring},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Negative", Amount: -1, Schedule: oneTime("2024-01-01"),
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedgerOwnershipIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")
	b := env.user(t, "b@example.com")

	e, err := env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Gym", Amount: 4000, Schedule: recurringMonthly("2024-01-01"),
	})
	require.NoError(t, err)
	tag, err := env.ledger.CreateTag(ctx, a.ID, "Health", "#123456")
	require.NoError(t, err)
	p, err := env.ledger.CreatePocket(ctx, a.ID, "Savings", 1000)
	require.NoError(t, err)

	assert.ErrorIs(t, env.ledger.DeleteExpense(ctx, b.ID, e.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, env.ledger.DeleteTag(ctx, b.ID, tag.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, env.ledger.DeletePocket(ctx, b.ID, p.ID), apperr.ErrNotFound)

	_, err = env.ledger.CreateExpense(ctx, b.ID, model.ExpenseInput{
		Name: "Borrowed tag", Amount: 10, TagID: &tag.ID, Schedule: oneTime("2024-01-01"),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateExpenseSwitchesToOneTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")

	e, err := env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Course", Amount: 20000, Schedule: recurringMonthly("2024-01-01"),
	})
	require.NoError(t, err)

	sched := oneTime("2024-09-01")
	name := "Course fee"
	updated, err := env.ledger.UpdateExpense(ctx, a.ID, e.ID, model.ExpenseUpdate{Name: &name, Schedule: &sched})
	require.NoError(t, err)
	assert.Equal(t, "Course fee", updated.Name)
	assert.Equal(t, model.ExpenseOneTime, updated.Schedule.Type())

	bad := model.ScheduleFields{Type: model.ExpenseRecurring}
	_, err = env.ledger.UpdateExpense(ctx, a.ID, e.ID, model.ExpenseUpdate{Schedule: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateExpenseMergesScheduleFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")

	e, err := env.ledger.CreateExpense(ctx, a.ID, model.ExpenseInput{
		Name: "Gym", Amount: 5000, Schedule: recurringMonthly("2024-01-01"),
	})
	require.NoError(t, err)

	end := model.MustDate("2024-03-31")
	updated, err := env.ledger.UpdateExpense(ctx, a.ID, e.ID, model.ExpenseUpdate{
		Schedule: &model.ScheduleFields{EndDate: &end},
	})
	require.NoError(t, err)
	r, ok := updated.Schedule.(model.Recurring)
	require.True(t, ok)
	assert.Equal(t, model.PeriodMonthly, r.Period)
	assert.Equal(t, model.MustDate("2024-01-01"), r.StartDate)
	require.NotNil(t, r.EndDate)
	assert.Equal(t, end, *r.EndDate)

	march, err := env.balance.MonthlyBalance(ctx, a.ID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), march.PersonalExpenses.Total)
	june, err := env.balance.MonthlyBalance(ctx, a.ID, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(0), june.PersonalExpenses.Total)

	early := model.MustDate("2023-12-01")
	_, err = env.ledger.UpdateExpense(ctx, a.ID, e.ID, model.ExpenseUpdate{
		Schedule: &model.ScheduleFields{EndDate: &early},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	updated, err = env.ledger.UpdateExpense(ctx, a.ID, e.ID, model.ExpenseUpdate{ClearEnd: true})
	require.NoError(t, err)
	assert.Nil(t, updated.EndDate())
	june, err = env.balance.MonthlyBalance(ctx, a.ID, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), june.PersonalExpenses.Total)
}

func TestTagColorValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")

	for _, color := range []string{"#abc", "#A1B2C3"} {
		_, err := env.ledger.CreateTag(ctx, a.ID, "ok", color)
		assert.NoError(t, err, color)
	}
	for _, color := range []string{"abc", "#abcd", "#ggg", "red", ""} {
		_, err := env.ledger.CreateTag(ctx, a.ID, "bad", color)
		assert.ErrorIs(t, err, apperr.ErrValidation, color)
	}
}

func TestIncomeUpdateValidatesWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.user(t, "a@example.com")
	start := model.MustDate("2024-03-01")

	inc, err := env.ledger.CreateIncome(ctx, a.ID, model.IncomeInput{
		Name: "Salary", Amount: 300000, Period: model.PeriodMonthly, StartDate: &start,
	})
	require.NoError(t, err)

	end := model.MustDate("2024-02-01")
	_, err = env.ledger.UpdateIncome(ctx, a.ID, inc.ID, model.IncomeUpdate{EndDate: &end})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.ledger.CreateIncome(ctx, a.ID, model.IncomeInput{Name: "Side", Amount: 1, Period: model.PeriodWeekly})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
