package models

import "fmt"

// PermissionLevel is the caller's access tier for a profile, as decided by
// the registry. Levels are ordered from none to direct.
type PermissionLevel string

const (
	PermissionNone     PermissionLevel = "none"
	PermissionBlocked  PermissionLevel = "blocked"
	PermissionReadOnly PermissionLevel = "readonly"
	PermissionReview   PermissionLevel = "review"
	PermissionDirect   PermissionLevel = "direct"
)

var permissionRank = map[PermissionLevel]int{
	PermissionNone:     0,
	PermissionBlocked:  1,
	PermissionReadOnly: 2,
	PermissionReview:   3,
	PermissionDirect:   4,
}

// ParsePermissionLevel validates a level received from the registry.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	l := PermissionLevel(s)
	if _, ok := permissionRank[l]; !ok {
		return "", fmt.Errorf("unknown permission level %q", s)
	}
	return l, nil
}

// Rank orders levels; unknown levels rank below none.
func (l PermissionLevel) Rank() int {
	if r, ok := permissionRank[l]; ok {
		return r
	}
	return -1
}

// IsDenied reports whether the level forbids opening the profile.
func (l PermissionLevel) IsDenied() bool {
	return l == PermissionNone || l == PermissionBlocked
}
