package models

import "time"

// Profile is a registry entry as stored. PhotoKey is an object storage key,
// not a URL.
type Profile struct {
	ID          string
	ShareCode   string
	LegacyID    string
	DisplayName string
	Biography   string
	PhotoKey    string
	Version     int64
	DeletedAt   *time.Time
	CreatedAt   time.Time
}

// IsDeleted reports whether a deletion timestamp is set.
func (p *Profile) IsDeleted() bool {
	return p.DeletedAt != nil
}
