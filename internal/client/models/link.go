package models

import (
	"time"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
)

// LinkSource is how an identifier reached the client.
type LinkSource string

const (
	SourceScan   LinkSource = "scan"
	SourceLink   LinkSource = "link"
	SourceShare  LinkSource = "share"
	SourceInvite LinkSource = "invite"
)

func (s LinkSource) Valid() bool {
	switch s {
	case SourceScan, SourceLink, SourceShare, SourceInvite:
		return true
	}
	return false
}

// DeferredLinkTTL is how long a pending link survives before sign-in.
const DeferredLinkTTL = 7 * 24 * time.Hour

// DeferredLink is an identifier received while nobody was signed in.
type DeferredLink struct {
	Identifier identifier.LinkIdentifier  `json:"identifier"`
	Referrer   *identifier.LinkIdentifier `json:"referrer,omitempty"`
	Source     LinkSource                 `json:"source"`
	CreatedAt  time.Time                  `json:"created_at"`
	ExpiresAt  time.Time                  `json:"expires_at"`
}

// NewDeferredLink stamps a link created at now with the given ttl.
func NewDeferredLink(id identifier.LinkIdentifier, referrer *identifier.LinkIdentifier, source LinkSource, now time.Time, ttl time.Duration) DeferredLink {
	return DeferredLink{
		Identifier: id,
		Referrer:   referrer,
		Source:     source,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// Expired reports whether the link is no longer usable at now.
func (d DeferredLink) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// ShareEvent is the audit record written after a profile was opened from a
// link. TargetShareCode is always a share code, never a legacy id.
type ShareEvent struct {
	ID                string
	TargetProfileID   string
	TargetShareCode   string
	ReferrerProfileID string
	ScannerProfileID  string
	Method            LinkSource
	OccurredAt        time.Time
}

// SelfIdentity is the signed-in user's own profile.
type SelfIdentity struct {
	ProfileID string `json:"profile_id"`
	ShareCode string `json:"share_code"`
	LegacyID  string `json:"legacy_id,omitempty"`
}

// Matches reports whether id addresses the user's own profile.
func (s SelfIdentity) Matches(id identifier.LinkIdentifier) bool {
	if id.IsZero() {
		return false
	}
	for _, own := range []string{s.ShareCode, s.LegacyID} {
		if own != "" && identifier.Normalize(own) == id.Value {
			return true
		}
	}
	return false
}
