package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/fintrack/internal/model"
)

type InvitationStore struct {
	db *sql.DB
}

func NewInvitationStore(db *sql.DB) *InvitationStore {
	return &InvitationStore{db: db}
}

func scanInvitation(s scanner) (*model.Invitation, error) {
	var (
		inv       model.Invitation
		expiresAt int64
	)
	err := s.Scan(&inv.ID, &inv.HouseholdID, &inv.Email, &inv.Token, &inv.Status,
		&inv.InvitedBy, &expiresAt, &inv.CreatedAt, &inv.HouseholdName, &inv.InviterName)
	if err != nil {
		return nil, err
	}
	inv.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &inv, nil
}

const invitationSelect = `SELECT i.id, i.household_id, i.email, i.token, i.status, i.invited_by, i.expires_at, i.created_at,
	COALESCE(h.name, ''), COALESCE(u.name, '')
	FROM invitations i
	LEFT JOIN households h ON h.id = i.household_id
	LEFT JOIN users u ON u.id = i.invited_by`

// CreatePending stores a new pending invitation. Pending invitations to the
// same address that lapsed before now are marked expired first; a live one
// yields ErrDuplicatePending.
func (s *InvitationStore) CreatePending(ctx context.Context, inv model.Invitation, now time.Time) (*model.Invitation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired'
		 WHERE household_id = ? AND email = ? AND status = 'pending' AND expires_at <= ?`,
		inv.HouseholdID, inv.Email, now.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("expire lapsed invitations: %w", err)
	}

	var live int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invitations WHERE household_id = ? AND email = ? AND status = 'pending'`,
		inv.HouseholdID, inv.Email,
	).Scan(&live); err != nil {
		return nil, fmt.Errorf("count pending invitations: %w", err)
	}
	if live > 0 {
		return nil, ErrDuplicatePending
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO invitations (household_id, email, token, status, invited_by, expires_at)
		 VALUES (?, ?, ?, 'pending', ?, ?)`,
		inv.HouseholdID, inv.Email, inv.Token, inv.InvitedBy, inv.ExpiresAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicatePending
	}
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	created, err := getInvitation(ctx, tx, `i.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (s *InvitationStore) GetByID(ctx context.Context, id int64) (*model.Invitation, error) {
	return getInvitation(ctx, s.db, `i.id = ?`, id)
}

func (s *InvitationStore) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return getInvitation(ctx, s.db, `i.token = ?`, token)
}

func getInvitation(ctx context.Context, q dbtx, where string, arg any) (*model.Invitation, error) {
	row := q.QueryRowContext(ctx, invitationSelect+` WHERE `+where, arg)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// ListPendingForHousehold returns pending invitations that have not lapsed.
func (s *InvitationStore) ListPendingForHousehold(ctx context.Context, householdID int64, now time.Time) ([]model.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		invitationSelect+` WHERE i.household_id = ? AND i.status = 'pending' AND i.expires_at > ?
		 ORDER BY i.created_at DESC, i.id DESC`,
		householdID, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list household invitations: %w", err)
	}
	invs, err := collect(rows, scanInvitation)
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return invs, nil
}

// ListPendingForEmail returns live invitations addressed to email.
func (s *InvitationStore) ListPendingForEmail(ctx context.Context, email string, now time.Time) ([]model.Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		invitationSelect+` WHERE i.email = ? AND i.status = 'pending' AND i.expires_at > ?
		 ORDER BY i.created_at DESC, i.id DESC`,
		email, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("list invitations for email: %w", err)
	}
	invs, err := collect(rows, scanInvitation)
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	return invs, nil
}

// MarkExpired moves a pending invitation to expired. Other states are left
// alone.
func (s *InvitationStore) MarkExpired(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired' WHERE id = ? AND status = 'pending'`, id,
	)
	if err != nil {
		return fmt.Errorf("expire invitation: %w", err)
	}
	return nil
}

// ExpireLapsed marks every pending invitation whose expiry is at or before
// now as expired and returns how many changed.
func (s *InvitationStore) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= ?`,
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("expire lapsed invitations: %w", err)
	}
	return result.RowsAffected()
}

// Decline marks a pending or expired invitation as declined.
func (s *InvitationStore) Decline(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'declined' WHERE id = ? AND status IN ('pending', 'expired')`, id,
	)
	if err != nil {
		return fmt.Errorf("decline invitation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}

// Accept adds userID to the invitation's household and marks the invitation
// accepted. Both happen or neither does.
func (s *InvitationStore) Accept(ctx context.Context, id, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		householdID int64
		status      model.InvitationStatus
	)
	err = tx.QueryRowContext(ctx,
		`SELECT household_id, status FROM invitations WHERE id = ?`, id,
	).Scan(&householdID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotPending
	}
	if err != nil {
		return fmt.Errorf("get invitation: %w", err)
	}
	if status != model.InvitationPending {
		return ErrNotPending
	}

	h, err := getHousehold(ctx, tx, householdID)
	if err != nil {
		return err
	}
	if h == nil {
		return ErrHouseholdNotFound
	}
	if err := ensureNoMembership(ctx, tx, userID); err != nil {
		return err
	}
	if err := insertMember(ctx, tx, householdID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE invitations SET status = 'accepted' WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	return tx.Commit()
}

func (s *InvitationStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}
