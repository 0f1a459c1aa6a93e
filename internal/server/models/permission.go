package models

// PermissionLevel mirrors the levels the client understands.
type PermissionLevel string

const (
	PermissionNone     PermissionLevel = "none"
	PermissionBlocked  PermissionLevel = "blocked"
	PermissionReadOnly PermissionLevel = "readonly"
	PermissionReview   PermissionLevel = "review"
	PermissionDirect   PermissionLevel = "direct"
)

// Valid reports whether l is one of the known levels.
func (l PermissionLevel) Valid() bool {
	switch l {
	case PermissionNone, PermissionBlocked, PermissionReadOnly, PermissionReview, PermissionDirect:
		return true
	}
	return false
}

// Permission is an explicit grant or block of CallerID on TargetID.
type Permission struct {
	CallerID string
	TargetID string
	Level    PermissionLevel
}
