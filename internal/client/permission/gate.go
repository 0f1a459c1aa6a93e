// Package permission decides whether the caller may open a profile.
//
// Levels come from the registry and are memoized per (caller, target) for a
// short TTL. Entries record when they were stored on the gate's clock and
// are never served once that age reaches the TTL.
package permission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultTimeout   = 3 * time.Second
	DefaultCacheSize = 1000
)

// Evaluator is the registry's permission RPC. An empty callerID means
// anonymous.
type Evaluator interface {
	EvaluatePermission(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error)
}

// Identity resolves the signed-in caller's profile id. It returns "" and a
// nil error when nobody is signed in.
type Identity interface {
	CallerID(ctx context.Context) (string, error)
}

type entry struct {
	level    models.PermissionLevel
	storedAt time.Time
}

type Gate struct {
	remote   Evaluator
	identity Identity
	cache    *ccache.Cache[entry]
	group    singleflight.Group
	clock    timex.Clock
	ttl      time.Duration
	timeout  time.Duration
	logger   logging.Logger
}

type Option func(*Gate)

func WithTTL(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.ttl = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithClock(c timex.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

func NewGate(remote Evaluator, identity Identity, logger logging.Logger, opts ...Option) *Gate {
	g := &Gate{
		remote:   remote,
		identity: identity,
		cache:    ccache.New(ccache.Configure[entry]().MaxSize(DefaultCacheSize)),
		clock:    timex.SystemClock{},
		ttl:      DefaultTTL,
		timeout:  DefaultTimeout,
		logger:   logger.With("module", "permission"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close stops the cache's background worker.
func (g *Gate) Close() {
	g.cache.Stop()
}

func cacheKey(callerID, targetID string) string {
	if callerID == "" {
		callerID = common.AnonymousCaller
	}
	return callerID + ":" + targetID
}

func (g *Gate) callerID(ctx context.Context) string {
	if g.identity == nil {
		return ""
	}
	id, err := g.identity.CallerID(ctx)
	if err != nil {
		g.logger.Warn(ctx, "caller identity unavailable, evaluating anonymously", "error", err)
		return ""
	}
	return id
}

// Evaluate returns the caller's level on targetID, from cache when fresh.
func (g *Gate) Evaluate(ctx context.Context, targetID string) (models.PermissionLevel, error) {
	callerID := g.callerID(ctx)
	key := cacheKey(callerID, targetID)

	if item := g.cache.Get(key); item != nil {
		e := item.Value()
		if g.clock.Now().Sub(e.storedAt) < g.ttl {
			return e.level, nil
		}
		g.cache.Delete(key)
	}

	// The shared call outlives any single waiter; each waiter stops on its
	// own context.
	ch := g.group.DoChan(key, func() (any, error) {
		return g.evaluateRemote(context.WithoutCancel(ctx), callerID, targetID, key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(models.PermissionLevel), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gate) evaluateRemote(ctx context.Context, callerID, targetID, key string) (models.PermissionLevel, error) {
	tctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	level, err := g.remote.EvaluatePermission(tctx, callerID, targetID)
	if err != nil {
		if errors.Is(tctx.Err(), context.DeadlineExceeded) || errors.Is(err, common.ErrTimeout) {
			return "", fmt.Errorf("%w: %w", common.ErrAuthorizationTimeout, err)
		}
		return "", err
	}

	g.cache.Set(key, entry{level: level, storedAt: g.clock.Now()}, g.ttl)
	return level, nil
}

// Refresh drops the cached level for targetID and evaluates it again.
func (g *Gate) Refresh(ctx context.Context, targetID string) (models.PermissionLevel, error) {
	g.cache.Delete(cacheKey(g.callerID(ctx), targetID))
	return g.Evaluate(ctx, targetID)
}

// Purge drops every cached level, e.g. when the caller signs out.
func (g *Gate) Purge() {
	g.cache.Clear()
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Level   models.PermissionLevel
	// Err is set when evaluation failed; Allowed then follows Classify.
	// Unclassified failures are wrapped in common.ErrUnknownFault.
	Err     error
	Verdict Verdict
}

// Authorize evaluates targetID and applies the failure policy.
func (g *Gate) Authorize(ctx context.Context, targetID string) Decision {
	level, err := g.Evaluate(ctx, targetID)
	if err != nil {
		verdict := Classify(err)
		if verdict == VerdictAllowWithWarning {
			err = fmt.Errorf("%w: %w", common.ErrUnknownFault, err)
			g.logger.Warn(ctx, "permission check failed, allowing navigation", "target", targetID, "error", err)
		}
		return Decision{Allowed: verdict == VerdictAllowWithWarning, Err: err, Verdict: verdict}
	}

	if level.IsDenied() {
		return Decision{Allowed: false, Level: level, Err: common.ErrAccessDenied, Verdict: VerdictDeny}
	}
	return Decision{Allowed: true, Level: level, Verdict: VerdictAllow}
}
