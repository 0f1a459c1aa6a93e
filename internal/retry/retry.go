// Package retry is a small generic wrapper around cenkalti/backoff for
// call sites that want exponential backoff on transient failures.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Do. Zero durations use backoff's defaults.
type Policy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
	// OnRetry, if set, is called before each wait.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy retries twice starting at 200ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.MaxElapsedTime > 0 {
		eb.MaxElapsedTime = p.MaxElapsedTime
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a non-retryable error, the policy
// gives up or ctx is done.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	operation := func() (T, error) {
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	if p.OnRetry != nil {
		return backoff.RetryNotifyWithData(operation, p.backOff(ctx), p.OnRetry)
	}
	return backoff.RetryWithData(operation, p.backOff(ctx))
}
