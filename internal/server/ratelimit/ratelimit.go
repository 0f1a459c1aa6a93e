// Package ratelimit throttles share events per scanner with a token bucket.
package ratelimit

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/timex"
	"golang.org/x/time/rate"
)

// idleAfter is how long a scanner's bucket is kept without use.
const idleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed holds one token bucket per key.
type Keyed struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clock     timex.Clock
	buckets   map[string]*bucket
	lastSweep time.Time
}

// New allows perSecond events per key with the given burst. A non-positive
// perSecond disables throttling.
func New(perSecond float64, burst int, clock timex.Clock) *Keyed {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Keyed{
		limit:   limit,
		burst:   burst,
		clock:   clock,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket.
func (k *Keyed) Allow(key string) bool {
	now := k.clock.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	k.sweep(now)

	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len is the number of tracked keys.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *Keyed) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < idleAfter {
		return
	}
	k.lastSweep = now
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) >= idleAfter {
			delete(k.buckets, key)
		}
	}
}
