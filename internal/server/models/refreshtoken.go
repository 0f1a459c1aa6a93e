package models

import "time"

// RefreshToken is a single-use token that buys a new access token for the
// user it was issued to.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the token can no longer be used at now. A token
// is dead from its expiry instant on.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.Expires.After(now)
}
