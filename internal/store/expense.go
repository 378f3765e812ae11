package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func scanExpense(s scanner) (*model.Expense, error) {
	var (
		e          model.Expense
		typ        model.ExpenseType
		targetDate *model.Date
		period     *model.Period
		startDate  *model.Date
		endDate    *model.Date
	)
	err := s.Scan(&e.ID, &e.UserID, &e.HouseholdID, &e.TagID, &e.Name, &e.Amount,
		&typ, &targetDate, &period, &startDate, &endDate, &e.Active, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sched, err := model.ScheduleFields{
		Type:       typ,
		TargetDate: targetDate,
		Period:     period,
		StartDate:  startDate,
		EndDate:    endDate,
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	e.Schedule = sched
	return &e, nil
}

const expenseCols = `id, user_id, household_id, tag_id, name, amount, type, target_date, period, start_date, end_date, active, created_at, updated_at`

func (s *ExpenseStore) Create(ctx context.Context, e model.Expense) (*model.Expense, error) {
	f := model.FieldsOf(e.Schedule)
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, household_id, tag_id, name, amount, type, target_date, period, start_date, end_date, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.HouseholdID, e.TagID, e.Name, e.Amount,
		f.Type, f.TargetDate, f.Period, f.StartDate, f.EndDate, e.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ExpenseStore) GetByID(ctx context.Context, id int64) (*model.Expense, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListPersonal returns the user's expenses that are not attached to a
// household, active or not.
func (s *ExpenseStore) ListPersonal(ctx context.Context, userID int64) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseCols+` FROM expenses
		 WHERE user_id = ? AND household_id IS NULL
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list personal expenses: %w", err)
	}
	expenses, err := collect(rows, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseStore) ListByHousehold(ctx context.Context, householdID int64) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseCols+` FROM expenses
		 WHERE household_id = ?
		 ORDER BY created_at DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list household expenses: %w", err)
	}
	expenses, err := collect(rows, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	return expenses, nil
}

// Update writes every mutable column of e.
func (s *ExpenseStore) Update(ctx context.Context, e model.Expense) (*model.Expense, error) {
	f := model.FieldsOf(e.Schedule)
	_, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET tag_id = ?, name = ?, amount = ?, type = ?, target_date = ?, period = ?,
		 start_date = ?, end_date = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.TagID, e.Name, e.Amount, f.Type, f.TargetDate, f.Period, f.StartDate, f.EndDate, e.Active, e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

func (s *ExpenseStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
