package model

import "time"

// Income always recurs; it has no one-time variant.
type Income struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
	Recurring
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type IncomeInput struct {
	Name      string
	Amount    int64
	Period    Period
	StartDate *Date
	EndDate   *Date
}

type IncomeUpdate struct {
	Name      *string
	Amount    *int64
	Period    *Period
	StartDate *Date
	EndDate   *Date
	ClearEnd  bool
}

type Pocket struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PocketUpdate struct {
	Name   *string
	Amount *int64
}

type Tag struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type TagUpdate struct {
	Name  *string
	Color *string
}
