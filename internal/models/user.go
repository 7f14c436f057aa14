package models

import "time"

// User is a participant identified by their platform-assigned id
// (the Telegram user id for the bot front-end).
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username,omitempty"`
	PrivacyAccepted bool      `json:"privacy_accepted"`
	CreatedAt       time.Time `json:"created_at"`
}
