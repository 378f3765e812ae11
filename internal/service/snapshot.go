package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/fintrack/internal/finance"
	"github.com/dukerupert/fintrack/internal/model"
)

// SnapshotService archives computed balances. Snapshots are only ever
// written whole.
type SnapshotService struct {
	balances  *BalanceService
	snapshots SnapshotRepo
	mirror    SnapshotMirror
	now       func() time.Time
	logger    *slog.Logger
}

type SnapshotOption func(*SnapshotService)

// WithMirror copies every saved snapshot to m. Mirror failures are logged.
func WithMirror(m SnapshotMirror) SnapshotOption {
	return func(s *SnapshotService) { s.mirror = m }
}

func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *SnapshotService) { s.now = now }
}

func NewSnapshotService(balances *BalanceService, snapshots SnapshotRepo, logger *slog.Logger, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		balances:  balances,
		snapshots: snapshots,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores data as the snapshot for (userID, year, month), replacing any
// existing one.
func (s *SnapshotService) Save(ctx context.Context, userID int64, year, month int, data model.MonthlyBalance) (*model.Snapshot, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	snap, err := s.snapshots.Upsert(ctx, userID, year, month, data)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, *snap); err != nil {
			s.logger.Error("mirror snapshot", "user_id", userID, "year", year, "month", month, "error", err)
		}
	}
	return snap, nil
}

// ArchivePreviousMonth computes the balance of the month before the current
// one and saves it.
func (s *SnapshotService) ArchivePreviousMonth(ctx context.Context, userID int64) (*model.Snapshot, error) {
	y, m := finance.PreviousMonth(s.now())
	balance, err := s.balances.MonthlyBalance(ctx, userID, y, int(m))
	if err != nil {
		return nil, err
	}
	snap, err := s.Save(ctx, userID, y, int(m), *balance)
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot archived", "user_id", userID, "year", y, "month", int(m))
	return snap, nil
}

// Get returns the snapshot, or nil if none was archived for that month.
func (s *SnapshotService) Get(ctx context.Context, userID int64, year, month int) (*model.Snapshot, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	return s.snapshots.Get(ctx, userID, year, month)
}

// List returns all of the user's snapshots, newest month first.
func (s *SnapshotService) List(ctx context.Context, userID int64) ([]model.Snapshot, error) {
	snaps, err := s.snapshots.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	return snaps, nil
}
