package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type IncomeStore struct {
	db *sql.DB
}

func NewIncomeStore(db *sql.DB) *IncomeStore {
	return &IncomeStore{db: db}
}

func scanIncome(s scanner) (*model.Income, error) {
	var inc model.Income
	err := s.Scan(&inc.ID, &inc.UserID, &inc.Name, &inc.Amount,
		&inc.Period, &inc.StartDate, &inc.EndDate, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

const incomeCols = `id, user_id, name, amount, period, start_date, end_date, created_at, updated_at`

func (s *IncomeStore) Create(ctx context.Context, inc model.Income) (*model.Income, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, name, amount, period, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
		inc.UserID, inc.Name, inc.Amount, inc.Period, inc.StartDate, inc.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert income: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *IncomeStore) GetByID(ctx context.Context, id int64) (*model.Income, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+incomeCols+` FROM incomes WHERE id = ?`, id)
	inc, err := scanIncome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	return inc, nil
}

func (s *IncomeStore) ListByUser(ctx context.Context, userID int64) ([]model.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incomeCols+` FROM incomes WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	incomes, err := collect(rows, scanIncome)
	if err != nil {
		return nil, fmt.Errorf("scan income: %w", err)
	}
	return incomes, nil
}

func (s *IncomeStore) Update(ctx context.Context, inc model.Income) (*model.Income, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE incomes SET name = ?, amount = ?, period = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		inc.Name, inc.Amount, inc.Period, inc.StartDate, inc.EndDate, inc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update income: %w", err)
	}
	return s.GetByID(ctx, inc.ID)
}

func (s *IncomeStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}
