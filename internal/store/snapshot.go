package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func scanSnapshot(s scanner) (*model.Snapshot, error) {
	var (
		snap model.Snapshot
		data string
	)
	err := s.Scan(&snap.ID, &snap.UserID, &snap.Year, &snap.Month, &data, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", snap.ID, err)
	}
	return &snap, nil
}

const snapshotCols = `id, user_id, year, month, data, created_at, updated_at`

// Upsert stores data as the snapshot for (userID, year, month), replacing
// the existing row's data if there is one. The row keeps its id.
func (s *SnapshotStore) Upsert(ctx context.Context, userID int64, year, month int, data model.MonthlyBalance) (*model.Snapshot, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (user_id, year, month, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, year, month) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		userID, year, month, string(b),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}
	return s.Get(ctx, userID, year, month)
}

func (s *SnapshotStore) Get(ctx context.Context, userID int64, year, month int) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots WHERE user_id = ? AND year = ? AND month = ?`,
		userID, year, month,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// ListByUser returns the user's snapshots, newest month first.
func (s *SnapshotStore) ListByUser(ctx context.Context, userID int64) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotCols+` FROM snapshots WHERE user_id = ? ORDER BY year DESC, month DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	snaps, err := collect(rows, scanSnapshot)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return snaps, nil
}
