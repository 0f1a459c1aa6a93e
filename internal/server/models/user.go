package models

import "time"

// User is an account. Every user owns exactly one profile.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	ProfileID string
	CreatedAt time.Time
}
