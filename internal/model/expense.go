package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type ExpenseType string

const (
	ExpenseOneTime   ExpenseType = "one_time"
	ExpenseRecurring ExpenseType = "recurring"
)

// Schedule is either OneTime or Recurring.
type Schedule interface {
	Type() ExpenseType
	isSchedule()
}

// OneTime lands its full amount in the month of TargetDate.
type OneTime struct {
	TargetDate Date `json:"target_date"`
}

func (OneTime) Type() ExpenseType { return ExpenseOneTime }
func (OneTime) isSchedule()       {}

// Recurring repeats every Period from StartDate until EndDate, if set.
type Recurring struct {
	Period    Period `json:"period"`
	StartDate Date   `json:"start_date"`
	EndDate   *Date  `json:"end_date"`
}

func (Recurring) Type() ExpenseType { return ExpenseRecurring }
func (Recurring) isSchedule()       {}

func (r Recurring) Validate() error {
	if !r.Period.Valid() {
		return fmt.Errorf("invalid period %q", r.Period)
	}
	if r.StartDate.IsZero() {
		return errors.New("start_date is required")
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// ScheduleFields is the flat wire form of a Schedule.
type ScheduleFields struct {
	Type       ExpenseType `json:"type"`
	TargetDate *Date       `json:"target_date,omitempty"`
	Period     *Period     `json:"period,omitempty"`
	StartDate  *Date       `json:"start_date,omitempty"`
	EndDate    *Date       `json:"end_date,omitempty"`
}

// Build checks that the fields required by Type are present and returns the
// matching Schedule. Fields belonging to the other variant are ignored.
func (f ScheduleFields) Build() (Schedule, error) {
	switch f.Type {
	case ExpenseOneTime:
		if f.TargetDate == nil {
			return nil, errors.New("target_date is required for one_time expenses")
		}
		return OneTime{TargetDate: *f.TargetDate}, nil
	case ExpenseRecurring:
		if f.Period == nil {
			return nil, errors.New("period is required for recurring expenses")
		}
		if f.StartDate == nil {
			return nil, errors.New("start_date is required for recurring expenses")
		}
		r := Recurring{Period: *f.Period, StartDate: *f.StartDate, EndDate: f.EndDate}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		return r, nil
	case "":
		return nil, errors.New("type is required")
	}
	return nil, fmt.Errorf("invalid expense type %q", f.Type)
}

// Empty reports whether no schedule field is set.
func (f ScheduleFields) Empty() bool {
	return f.Type == "" && f.TargetDate == nil && f.Period == nil && f.StartDate == nil && f.EndDate == nil
}

// Overlay returns f with every field set in patch replaced.
func (f ScheduleFields) Overlay(patch ScheduleFields) ScheduleFields {
	if patch.Type != "" {
		f.Type = patch.Type
	}
	if patch.TargetDate != nil {
		f.TargetDate = patch.TargetDate
	}
	if patch.Period != nil {
		f.Period = patch.Period
	}
	if patch.StartDate != nil {
		f.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		f.EndDate = patch.EndDate
	}
	return f
}

func FieldsOf(s Schedule) ScheduleFields {
	switch v := s.(type) {
	case OneTime:
		d := v.TargetDate
		return ScheduleFields{Type: ExpenseOneTime, TargetDate: &d}
	case Recurring:
		p, start := v.Period, v.StartDate
		return ScheduleFields{Type: ExpenseRecurring, Period: &p, StartDate: &start, EndDate: v.EndDate}
	}
	return ScheduleFields{}
}

type Expense struct {
	ID          int64
	UserID      int64
	HouseholdID *int64
	TagID       *int64
	Name        string
	Amount      int64
	Active      bool
	Schedule    Schedule
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EndDate returns the recurring end date, or nil for one-time expenses.
func (e Expense) EndDate() *Date {
	if r, ok := e.Schedule.(Recurring); ok {
		return r.EndDate
	}
	return nil
}

type expenseJSON struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	HouseholdID *int64 `json:"household_id"`
	TagID       *int64 `json:"tag_id"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	Active      bool   `json:"active"`
	ScheduleFields
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Expense) MarshalJSON() ([]byte, error) {
	return json.Marshal(expenseJSON{
		ID:             e.ID,
		UserID:         e.UserID,
		HouseholdID:    e.HouseholdID,
		TagID:          e.TagID,
		Name:           e.Name,
		Amount:         e.Amount,
		Active:         e.Active,
		ScheduleFields: FieldsOf(e.Schedule),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	})
}

// ExpenseInput holds the fields of a new expense.
type ExpenseInput struct {
	Name     string
	Amount   int64
	TagID    *int64
	Schedule ScheduleFields
}

// ExpenseUpdate is a partial update. Nil fields are left unchanged. A
// non-nil Schedule replaces the whole schedule and is validated as if new.
// ExpenseUpdate changes only the fields that are set. Schedule fields are
// merged onto the stored schedule; an empty Type keeps the current type.
type ExpenseUpdate struct {
	Name     *string
	Amount   *int64
	Active   *bool
	TagID    *int64
	ClearTag bool
	Schedule *ScheduleFields
	ClearEnd bool
}
