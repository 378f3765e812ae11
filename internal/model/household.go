package model

import "time"

type SplitMode string

const (
	SplitEqual              SplitMode = "equal"
	SplitIncomeProportional SplitMode = "income_proportional"
)

func (m SplitMode) Valid() bool {
	return m == SplitEqual || m == SplitIncomeProportional
}

type Household struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SplitMode SplitMode `json:"split_mode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HouseholdMember struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

type HouseholdUpdate struct {
	Name      *string
	SplitMode *SplitMode
}

// HouseholdDetail is a household together with its current members.
type HouseholdDetail struct {
	Household
	Members []HouseholdMember `json:"members"`
}
