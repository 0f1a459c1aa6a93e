package services

import "github.com/dmitrijs2005/kinlink/internal/server/models"

// PermissionPolicy decides a caller's level on a target profile.
//
// Order: an explicit row wins, then the target itself gets direct access,
// then anonymous callers get read-only access, then Default applies.
type PermissionPolicy struct {
	Default models.PermissionLevel
}

// Decide is pure. callerID is "" for anonymous callers; explicit is nil when
// no row exists.
func (p PermissionPolicy) Decide(callerID, targetID string, explicit *models.Permission) models.PermissionLevel {
	if explicit != nil && explicit.Level.Valid() {
		return explicit.Level
	}
	if callerID != "" && callerID == targetID {
		return models.PermissionDirect
	}
	if callerID == "" {
		return models.PermissionReadOnly
	}
	if p.Default.Valid() {
		return p.Default
	}
	return models.PermissionReview
}
