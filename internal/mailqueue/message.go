package mailqueue

import (
	"encoding/json"
	"errors"
	"time"
)

// InvitationMail is the queued form of one invitation email.
type InvitationMail struct {
	To            string    `json:"to"`
	InviterName   string    `json:"inviter_name"`
	HouseholdName string    `json:"household_name"`
	Token         string    `json:"token"`
	QueuedAt      time.Time `json:"queued_at"`
}

func (m *InvitationMail) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvitationMailFromJSON(data []byte) (*InvitationMail, error) {
	var msg InvitationMail
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.To == "" || msg.Token == "" {
		return nil, errors.New("invitation mail missing recipient or token")
	}
	return &msg, nil
}
