// Package resolver finds the profile an identifier points to.
//
// The local graph snapshot is consulted first, then the registry with one
// bounded point query. Legacy hierarchical ids are translated here and
// nowhere else: a resolution always carries the profile's current share
// code, which is what links and analytics use from then on.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/graph"
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/retry"
)

const DefaultTimeout = 5 * time.Second

type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Resolution is a located, not deleted profile.
type Resolution struct {
	Profile *models.Profile
	// ShareCode is the profile's current share code, even when it was
	// reached through a legacy id.
	ShareCode string
	ViaLegacy bool
	Source    Source
}

type Graph interface {
	Find(pred func(*models.Profile) bool) (*models.Profile, bool)
}

type Remote interface {
	LookupProfile(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error)
}

type Resolver struct {
	graph   Graph
	remote  Remote
	timeout time.Duration
	retry   *retry.Policy
	logger  logging.Logger
}

type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetry retries the remote lookup while the registry is unreachable.
func WithRetry(p retry.Policy) Option {
	return func(r *Resolver) {
		p.Retryable = func(err error) bool { return errors.Is(err, common.ErrOffline) }
		r.retry = &p
	}
}

func New(g Graph, remote Remote, logger logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{graph: g, remote: remote, timeout: DefaultTimeout, logger: logger.With("module", "resolver")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns common.ErrorNotFound when neither the graph nor the
// registry knows id and common.ErrDeleted for soft-deleted profiles.
// Transport errors from the registry are returned as is.
func (r *Resolver) Resolve(ctx context.Context, id identifier.LinkIdentifier) (*Resolution, error) {
	if id.IsZero() {
		return nil, common.ErrInvalidFormat
	}

	if p, viaLegacy, ok := r.findLocal(id); ok {
		return r.finish(ctx, id, p, viaLegacy, SourceLocal)
	}

	p, err := r.lookupRemote(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.finish(ctx, id, p, id.IsLegacy(), SourceRemote)
}

func (r *Resolver) findLocal(id identifier.LinkIdentifier) (*models.Profile, bool, bool) {
	if !id.IsLegacy() {
		if p, ok := r.graph.Find(graph.ByShareCode(id.Value)); ok {
			return p, false, true
		}
		// "h1234" is a valid share code and a valid legacy id
		if !identifier.ValidateLegacyID(id.Value) {
			return nil, false, false
		}
	}
	p, ok := r.graph.Find(graph.ByLegacyID(id.Value))
	return p, ok, ok
}

func (r *Resolver) lookupRemote(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error) {
	lookup := func(ctx context.Context) (*models.Profile, error) {
		tctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		p, err := r.remote.LookupProfile(tctx, id)
		if err != nil {
			if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
				return nil, common.ErrTimeout
			}
			return nil, err
		}
		if p == nil {
			return nil, common.ErrorNotFound
		}
		return p, nil
	}

	if r.retry == nil {
		return lookup(ctx)
	}
	return retry.Do(ctx, *r.retry, lookup)
}

func (r *Resolver) finish(ctx context.Context, id identifier.LinkIdentifier, p *models.Profile, viaLegacy bool, src Source) (*Resolution, error) {
	if p.IsDeleted() {
		return nil, common.ErrDeleted
	}

	res := &Resolution{
		Profile:   p,
		ShareCode: identifier.Normalize(p.ShareCode),
		ViaLegacy: viaLegacy,
		Source:    src,
	}
	if viaLegacy {
		r.logger.Debug(ctx, "legacy identifier translated", "legacy_id", id.Value, "share_code", res.ShareCode, "source", src)
	}
	return res, nil
}
