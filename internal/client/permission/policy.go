package permission

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kinlink/internal/common"
)

// Verdict is what the pipeline does with a permission evaluation.
type Verdict int

const (
	// VerdictAllow means the evaluation succeeded with an allowing level.
	VerdictAllow Verdict = iota
	// VerdictDeny stops navigation and reports a retryable error.
	VerdictDeny
	// VerdictAllowWithWarning lets navigation proceed and logs a warning.
	VerdictAllowWithWarning
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictDeny:
		return "deny"
	case VerdictAllowWithWarning:
		return "allow-with-warning"
	}
	return "unknown"
}

// Classify maps an evaluation error to a verdict. Known transport failures
// (timeout, offline, cancellation) deny; any other error allows with a
// warning.
func Classify(err error) Verdict {
	switch {
	case errors.Is(err, common.ErrAuthorizationTimeout),
		errors.Is(err, common.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, common.ErrOffline),
		errors.Is(err, context.Canceled):
		return VerdictDeny
	default:
		return VerdictAllowWithWarning
	}
}
