package model

import "time"

type PersonalItem struct {
	ExpenseID int64       `json:"expense_id"`
	Name      string      `json:"name"`
	Amount    int64       `json:"amount"`
	Type      ExpenseType `json:"type"`
	EndDate   *Date       `json:"end_date"`
}

type SharedItem struct {
	ExpenseID int64       `json:"expense_id"`
	Name      string      `json:"name"`
	Amount    int64       `json:"amount"`
	YourShare int64       `json:"your_share"`
	Type      ExpenseType `json:"type"`
	EndDate   *Date       `json:"end_date"`
}

type PocketItem struct {
	PocketID int64  `json:"pocket_id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
}

type PersonalExpenses struct {
	Total int64          `json:"total"`
	Items []PersonalItem `json:"items"`
}

type HouseholdShare struct {
	Total        int64        `json:"total"`
	Ratio        float64      `json:"ratio"`
	UsedFallback bool         `json:"used_fallback"`
	Items        []SharedItem `json:"items"`
}

type Pockets struct {
	Total int64        `json:"total"`
	Items []PocketItem `json:"items"`
}

// MonthlyBalance is the computed position of one user for one calendar month.
// All amounts are in minor currency units.
type MonthlyBalance struct {
	Year             int              `json:"year"`
	Month            int              `json:"month"`
	Income           int64            `json:"income"`
	PersonalExpenses PersonalExpenses `json:"personal_expenses"`
	HouseholdShare   HouseholdShare   `json:"household_share"`
	Pockets          Pockets          `json:"pockets"`
	Remaining        int64            `json:"remaining"`
}

type Snapshot struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Data      MonthlyBalance `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type TagTotal struct {
	TagID *int64  `json:"tag_id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
	Total int64   `json:"total"`
}

type TrendPoint struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Total int64 `json:"total"`
}
