package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/fintrack/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(s scanner) (*model.Household, error) {
	var h model.Household
	err := s.Scan(&h.ID, &h.Name, &h.SplitMode, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanHouseholdMember(s scanner) (*model.HouseholdMember, error) {
	var m model.HouseholdMember
	err := s.Scan(&m.ID, &m.HouseholdID, &m.UserID, &m.Name, &m.Email, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const householdCols = `id, name, split_mode, created_at, updated_at`

const householdMemberSelect = `SELECT hm.id, hm.household_id, hm.user_id, u.name, u.email, hm.created_at
	FROM household_members hm JOIN users u ON u.id = hm.user_id`

// Create inserts a household and makes userID its first member. It fails
// with ErrAlreadyInHousehold if the user already has a membership.
func (s *HouseholdStore) Create(ctx context.Context, name string, mode model.SplitMode, userID int64) (*model.Household, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ensureNoMembership(ctx, tx, userID); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO households (name, split_mode) VALUES (?, ?)`,
		name, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("insert household: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := insertMember(ctx, tx, id, userID); err != nil {
		return nil, err
	}
	h, err := getHousehold(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) GetByID(ctx context.Context, id int64) (*model.Household, error) {
	return getHousehold(ctx, s.db, id)
}

func getHousehold(ctx context.Context, q dbtx, id int64) (*model.Household, error) {
	row := q.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func (s *HouseholdStore) Update(ctx context.Context, h model.Household) (*model.Household, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE households SET name = ?, split_mode = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		h.Name, h.SplitMode, h.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return s.GetByID(ctx, h.ID)
}

// MembershipOf returns the user's membership, or nil if the user is not in
// any household.
func (s *HouseholdStore) MembershipOf(ctx context.Context, userID int64) (*model.HouseholdMember, error) {
	return membershipOf(ctx, s.db, userID)
}

func membershipOf(ctx context.Context, q dbtx, userID int64) (*model.HouseholdMember, error) {
	row := q.QueryRowContext(ctx, householdMemberSelect+` WHERE hm.user_id = ?`, userID)
	m, err := scanHouseholdMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) GetMember(ctx context.Context, householdID, userID int64) (*model.HouseholdMember, error) {
	row := s.db.QueryRowContext(ctx,
		householdMemberSelect+` WHERE hm.household_id = ? AND hm.user_id = ?`,
		householdID, userID,
	)
	m, err := scanHouseholdMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID int64) ([]model.HouseholdMember, error) {
	rows, err := s.db.QueryContext(ctx,
		householdMemberSelect+` WHERE hm.household_id = ? ORDER BY hm.created_at ASC, hm.id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members, err := collect(rows, scanHouseholdMember)
	if err != nil {
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return members, nil
}

// IsMemberEmail reports whether a user with this email is currently a member
// of the household.
func (s *HouseholdStore) IsMemberEmail(ctx context.Context, householdID int64, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members hm JOIN users u ON u.id = hm.user_id
		 WHERE hm.household_id = ? AND u.email = ?`,
		householdID, email,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check member email: %w", err)
	}
	return n > 0, nil
}

// LeaveResult describes what a Leave call changed.
type LeaveResult struct {
	DeactivatedExpenses int64
	HouseholdDeleted    bool
}

// Leave removes userID from the household. The user's own expenses in the
// household are deactivated. If nobody is left the household is deleted
// along with its expenses and invitations.
func (s *HouseholdStore) Leave(ctx context.Context, householdID, userID int64) (LeaveResult, error) {
	var res LeaveResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	removed, err := tx.ExecContext(ctx,
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	if err != nil {
		return res, fmt.Errorf("remove member: %w", err)
	}
	if n, _ := removed.RowsAffected(); n == 0 {
		return res, ErrNotMember
	}

	deactivated, err := tx.ExecContext(ctx,
		`UPDATE expenses SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE household_id = ? AND user_id = ?`,
		householdID, userID,
	)
	if err != nil {
		return res, fmt.Errorf("deactivate expenses: %w", err)
	}
	res.DeactivatedExpenses, _ = deactivated.RowsAffected()

	var remaining int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM household_members WHERE household_id = ?`, householdID,
	).Scan(&remaining); err != nil {
		return res, fmt.Errorf("count members: %w", err)
	}

	if remaining == 0 {
		for _, stmt := range []string{
			`DELETE FROM expenses WHERE household_id = ?`,
			`DELETE FROM invitations WHERE household_id = ?`,
			`DELETE FROM households WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, householdID); err != nil {
				return res, fmt.Errorf("delete household: %w", err)
			}
		}
		res.HouseholdDeleted = true
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func ensureNoMembership(ctx context.Context, q dbtx, userID int64) error {
	m, err := membershipOf(ctx, q, userID)
	if err != nil {
		return err
	}
	if m != nil {
		return ErrAlreadyInHousehold
	}
	return nil
}

func insertMember(ctx context.Context, q dbtx, householdID, userID int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id) VALUES (?, ?)`,
		householdID, userID,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyInHousehold
	}
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}
