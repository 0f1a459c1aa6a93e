// Package models defines the client-side data model of the registry:
// profiles as held in the local snapshot, permission levels, deferred links
// and share events.
package models

import "time"

// Enrichment holds the progressively loaded part of a profile. Empty
// strings mean "loaded, but empty".
type Enrichment struct {
	PhotoURL  string `json:"photo_url"`
	Biography string `json:"biography"`
	// Version is the optimistic-concurrency counter used when saving.
	Version int64 `json:"version"`
}

// Completeness tells partial and complete profiles apart.
type Completeness string

const (
	Partial  Completeness = "partial"
	Complete Completeness = "complete"
)

// Profile is a registry entity. A nil Enrichment marks a partial profile
// (only the skeleton came with the bulk sync); a non-nil one marks a
// complete profile. Only a non-nil DeletedAt counts as deleted.
type Profile struct {
	ID          string      `json:"id"`
	ShareCode   string      `json:"share_code"`
	LegacyID    string      `json:"legacy_id,omitempty"`
	DisplayName string      `json:"display_name"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	Enrichment  *Enrichment `json:"enrichment,omitempty"`
}

func (p *Profile) IsDeleted() bool { return p.DeletedAt != nil }

func (p *Profile) IsComplete() bool { return p.Enrichment != nil }

func (p *Profile) Completeness() Completeness {
	if p.IsComplete() {
		return Complete
	}
	return Partial
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	if p.Enrichment != nil {
		e := *p.Enrichment
		c.Enrichment = &e
	}
	return &c
}

// ProfilePatch is a partial update; nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	LegacyID    *string
	DeletedAt   *time.Time
	Enrichment  *Enrichment
}

// PatchFrom builds the patch that brings a profile up to date with src.
func PatchFrom(src *Profile) ProfilePatch {
	patch := ProfilePatch{DisplayName: &src.DisplayName, DeletedAt: src.DeletedAt, Enrichment: src.Enrichment}
	if src.LegacyID != "" {
		patch.LegacyID = &src.LegacyID
	}
	return patch
}

// Apply returns a copy of p with patch applied.
func (p *Profile) Apply(patch ProfilePatch) *Profile {
	c := p.Clone()
	if patch.DisplayName != nil {
		c.DisplayName = *patch.DisplayName
	}
	if patch.LegacyID != nil {
		c.LegacyID = *patch.LegacyID
	}
	if patch.DeletedAt != nil {
		t := *patch.DeletedAt
		c.DeletedAt = &t
	}
	if patch.Enrichment != nil {
		e := *patch.Enrichment
		c.Enrichment = &e
	}
	return c
}
