package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type TagStore struct {
	db *sql.DB
}

func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

func scanTag(s scanner) (*model.Tag, error) {
	var t model.Tag
	err := s.Scan(&t.ID, &t.UserID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const tagCols = `id, user_id, name, color, created_at`

func (s *TagStore) Create(ctx context.Context, userID int64, name, color string) (*model.Tag, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (user_id, name, color) VALUES (?, ?, ?)`,
		userID, name, color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TagStore) GetByID(ctx context.Context, id int64) (*model.Tag, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tagCols+` FROM tags WHERE id = ?`, id)
	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

func (s *TagStore) ListByUser(ctx context.Context, userID int64) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagCols+` FROM tags WHERE user_id = ? ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	tags, err := collect(rows, scanTag)
	if err != nil {
		return nil, fmt.Errorf("scan tag: %w", err)
	}
	return tags, nil
}

func (s *TagStore) Update(ctx context.Context, t model.Tag) (*model.Tag, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tags SET name = ?, color = ? WHERE id = ?`,
		t.Name, t.Color, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update tag: %w", err)
	}
	return s.GetByID(ctx, t.ID)
}

// Delete removes the tag and detaches it from every expense that used it.
// Expenses themselves are kept.
func (s *TagStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE expenses SET tag_id = NULL WHERE tag_id = ?`, id); err != nil {
		return fmt.Errorf("untag expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return tx.Commit()
}
