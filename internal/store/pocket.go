package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type PocketStore struct {
	db *sql.DB
}

func NewPocketStore(db *sql.DB) *PocketStore {
	return &PocketStore{db: db}
}

func scanPocket(s scanner) (*model.Pocket, error) {
	var p model.Pocket
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Amount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const pocketCols = `id, user_id, name, amount, created_at, updated_at`

func (s *PocketStore) Create(ctx context.Context, userID int64, name string, amount int64) (*model.Pocket, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO pockets (user_id, name, amount) VALUES (?, ?, ?)`,
		userID, name, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pocket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PocketStore) GetByID(ctx context.Context, id int64) (*model.Pocket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pocketCols+` FROM pockets WHERE id = ?`, id)
	p, err := scanPocket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pocket: %w", err)
	}
	return p, nil
}

func (s *PocketStore) ListByUser(ctx context.Context, userID int64) ([]model.Pocket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pocketCols+` FROM pockets WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	pockets, err := collect(rows, scanPocket)
	if err != nil {
		return nil, fmt.Errorf("scan pocket: %w", err)
	}
	return pockets, nil
}

func (s *PocketStore) Update(ctx context.Context, p model.Pocket) (*model.Pocket, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pockets SET name = ?, amount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.Name, p.Amount, p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update pocket: %w", err)
	}
	return s.GetByID(ctx, p.ID)
}

func (s *PocketStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pockets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pocket: %w", err)
	}
	return nil
}
