// Package store implements persistence on SQLite.
//
// Lookups return (nil, nil) when the row does not exist. Multi-step
// operations that must not interleave with other writers run in a single
// transaction; the database is opened with immediate transaction locking.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

var (
	// ErrAlreadyInHousehold is returned when a user who already has a
	// membership would be added to a household.
	ErrAlreadyInHousehold = errors.New("user already belongs to a household")
	ErrNotMember          = errors.New("user is not a member of the household")
	ErrHouseholdNotFound  = errors.New("household not found")
	ErrDuplicatePending   = errors.New("pending invitation already exists")
	ErrNotPending         = errors.New("invitation is no longer pending")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface{ Scan(...any) error }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func collect[T any](rows *sql.Rows, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
