package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Terminal reports whether the invitation has already been used.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined
}

type Invitation struct {
	ID          int64            `json:"id"`
	HouseholdID int64            `json:"household_id"`
	Email       string           `json:"email"`
	Token       string           `json:"token,omitempty"`
	Status      InvitationStatus `json:"status"`
	InvitedBy   int64            `json:"invited_by"`
	ExpiresAt   time.Time        `json:"expires_at"`
	CreatedAt   time.Time        `json:"created_at"`

	HouseholdName string `json:"household_name,omitempty"`
	InviterName   string `json:"inviter_name,omitempty"`
}
