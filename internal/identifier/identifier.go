// Package identifier parses, validates and builds the links profiles are
// shared with.
//
// Two formats are understood. A share code is exactly five lowercase
// alphanumerics ("abc12") and is what every new link carries. A legacy
// hierarchical id ("H1.2.3", "R12") comes from older printed artifacts; it
// still resolves but is never produced by this package.
//
// Input is trimmed and case-insensitive. Classification tries the share code
// format first, so a value is always classified as exactly one kind even
// when both patterns would accept it (e.g. "h1234").
package identifier

import (
	"regexp"
	"strings"
)

// Kind tells the two identifier formats apart.
type Kind string

const (
	KindShareCode Kind = "share_code"
	KindLegacy    Kind = "legacy"
)

// LinkIdentifier is a classified, normalized identifier. Share codes are
// stored lowercase, legacy ids uppercase.
type LinkIdentifier struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

func (id LinkIdentifier) String() string { return id.Value }

// IsZero reports whether id is the zero value.
func (id LinkIdentifier) IsZero() bool { return id.Value == "" }

// IsLegacy reports whether id uses the deprecated hierarchical format.
func (id LinkIdentifier) IsLegacy() bool { return id.Kind == KindLegacy }

var (
	shareCodeRe = regexp.MustCompile(`^[a-z0-9]{5}$`)
	legacyRe    = regexp.MustCompile(`^[HR][0-9.]*[0-9]$`)
)

// ascii trims s and reports false for any non-ASCII byte, so that Unicode
// case folding can never turn a foreign rune into a valid character.
func ascii(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return "", false
		}
	}
	return s, true
}

// ValidateShareCode reports whether s is a share code.
func ValidateShareCode(s string) bool {
	s, ok := ascii(s)
	return ok && shareCodeRe.MatchString(strings.ToLower(s))
}

// ValidateLegacyID reports whether s is a legacy hierarchical id.
func ValidateLegacyID(s string) bool {
	s, ok := ascii(s)
	return ok && legacyRe.MatchString(strings.ToUpper(s))
}

// Classify normalizes s into a LinkIdentifier. It returns false when s
// matches neither format.
func Classify(s string) (LinkIdentifier, bool) {
	t, ok := ascii(s)
	if !ok {
		return LinkIdentifier{}, false
	}
	if ValidateShareCode(t) {
		return LinkIdentifier{Kind: KindShareCode, Value: strings.ToLower(t)}, true
	}
	if ValidateLegacyID(t) {
		return LinkIdentifier{Kind: KindLegacy, Value: strings.ToUpper(t)}, true
	}
	return LinkIdentifier{}, false
}

// Normalize returns the canonical form of s, or "" if s is not valid.
func Normalize(s string) string {
	id, ok := Classify(s)
	if !ok {
		return ""
	}
	return id.Value
}
