package proto

import "time"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type RegisterUserRequest struct {
	Username    string `json:"username"`
	Salt        []byte `json:"salt"`
	Verifier    []byte `json:"verifier"`
	DisplayName string `json:"display_name,omitempty"`
}

type RegisterUserResponse struct {
	ProfileID string `json:"profile_id"`
	ShareCode string `json:"share_code"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	VerifierCandidate []byte `json:"verifier_candidate"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	ProfileID string `json:"profile_id"`
	ShareCode string `json:"share_code"`
	LegacyID  string `json:"legacy_id,omitempty"`
}

// LookupProfileRequest carries exactly one of the two keys.
type LookupProfileRequest struct {
	ShareCode string `json:"share_code,omitempty"`
	LegacyID  string `json:"legacy_id,omitempty"`
}

type LookupProfileResponse struct {
	Profile *Profile `json:"profile"`
}

type EvaluatePermissionRequest struct {
	// CallerID is empty for anonymous callers.
	CallerID string `json:"caller_id,omitempty"`
	TargetID string `json:"target_id"`
}

type EvaluatePermissionResponse struct {
	Level string `json:"level"`
}

type RecordShareEventRequest struct {
	Event *ShareEvent `json:"event"`
}

type RecordShareEventResponse struct {
	Accepted bool `json:"accepted"`
}

type FetchProfilesRequest struct {
	IDs []string `json:"ids"`
}

type FetchProfilesResponse struct {
	Profiles []*Profile `json:"profiles"`
}

type ListProfilesRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListProfilesResponse struct {
	Profiles []*Profile `json:"profiles"`
}

// Profile is the wire form of a registry profile. Enrichment is present
// only when the profile is complete.
type Profile struct {
	ID          string      `json:"id"`
	ShareCode   string      `json:"share_code"`
	LegacyID    string      `json:"legacy_id,omitempty"`
	DisplayName string      `json:"display_name"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
	Enrichment  *Enrichment `json:"enrichment,omitempty"`
}

type Enrichment struct {
	PhotoURL  string `json:"photo_url"`
	Biography string `json:"biography"`
	Version   int64  `json:"version"`
}

type ShareEvent struct {
	ID                string    `json:"id"`
	TargetProfileID   string    `json:"target_profile_id"`
	TargetShareCode   string    `json:"target_share_code"`
	ReferrerProfileID string    `json:"referrer_profile_id,omitempty"`
	ScannerProfileID  string    `json:"scanner_profile_id,omitempty"`
	Method            string    `json:"method"`
	OccurredAt        time.Time `json:"occurred_at"`
}
