// Package notice holds the user-facing messages the link pipeline and the
// share-event recorder raise.
package notice

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kinlink/internal/common"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice is a title and message pair shown as a modal or toast.
type Notice struct {
	Kind      Kind
	Title     string
	Message   string
	Retryable bool
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

var (
	OwnProfile     = Notice{Kind: KindInfo, Title: "That's you", Message: "This is your own profile"}
	Offline        = Notice{Kind: KindError, Title: "No connection", Message: "Check your connection and try again", Retryable: true}
	GraphNotLoaded = Notice{Kind: KindError, Title: "Failed to load", Message: "The family tree failed to load, try again", Retryable: true}
	InvalidLink    = Notice{Kind: KindError, Title: "Invalid link", Message: "This link is not valid"}
	NotFound       = Notice{Kind: KindError, Title: "Not found", Message: "Profile not found"}
	Deleted        = Notice{Kind: KindError, Title: "Deleted", Message: "This profile was deleted"}
	AccessBlocked  = Notice{Kind: KindError, Title: "Access blocked", Message: "You do not have access to this profile"}
	AuthTimeout    = Notice{Kind: KindError, Title: "Timed out", Message: "Checking access took too long, try again", Retryable: true}
	Timeout        = Notice{Kind: KindError, Title: "Timed out", Message: "The server took too long to respond, try again", Retryable: true}
	RateLimited    = Notice{Kind: KindWarning, Title: "Slow down", Message: "Too many scans, wait a bit"}
	Failed         = Notice{Kind: KindError, Title: "Something went wrong", Message: "Could not open this profile", Retryable: true}
)

// For maps a pipeline error to the notice shown for it. Cancellation maps
// to nothing.
func For(err error) (Notice, bool) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return Notice{}, false
	case errors.Is(err, common.ErrInvalidFormat):
		return InvalidLink, true
	case errors.Is(err, common.ErrorNotFound):
		return NotFound, true
	case errors.Is(err, common.ErrDeleted):
		return Deleted, true
	case errors.Is(err, common.ErrAccessDenied):
		return AccessBlocked, true
	case errors.Is(err, common.ErrOffline):
		return Offline, true
	case errors.Is(err, common.ErrGraphTimeout):
		return GraphNotLoaded, true
	case errors.Is(err, common.ErrAuthorizationTimeout):
		return AuthTimeout, true
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout, true
	case errors.Is(err, common.ErrRateLimited):
		return RateLimited, true
	default:
		return Failed, true
	}
}
