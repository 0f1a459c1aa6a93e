// Package graphsync keeps the local graph snapshot filled: it warm starts
// from the profiles table and then pulls the graph from the registry.
package graphsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/graph"
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/repositories/profiles"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/retry"
)

const DefaultLimit = 5000

type Remote interface {
	ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error)
}

type Syncer struct {
	remote Remote
	db     *sql.DB
	graph  *graph.Store
	limit  int
	retry  *retry.Policy
	logger logging.Logger
}

type Option func(*Syncer)

// WithRetry retries the profile listing while the registry is unreachable.
func WithRetry(p retry.Policy) Option {
	return func(s *Syncer) {
		p.Retryable = func(err error) bool { return errors.Is(err, common.ErrOffline) }
		s.retry = &p
	}
}

func New(remote Remote, db *sql.DB, g *graph.Store, limit int, logger logging.Logger, opts ...Option) *Syncer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Syncer{remote: remote, db: db, graph: g, limit: limit, logger: logger.With("module", "graphsync")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) listProfiles(ctx context.Context) ([]*models.Profile, error) {
	list := func(ctx context.Context) ([]*models.Profile, error) {
		return s.remote.ListProfiles(ctx, s.limit)
	}
	if s.retry == nil {
		return list(ctx)
	}
	return retry.Do(ctx, *s.retry, list)
}

// WarmStart loads the persisted snapshot. An empty table leaves the graph
// untouched.
func (s *Syncer) WarmStart(ctx context.Context) (int, error) {
	ps, err := profiles.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		return 0, fmt.Errorf("warm start: %w", err)
	}
	if len(ps) == 0 {
		return 0, nil
	}
	s.graph.Replace(ps)
	s.logger.Debug(ctx, "graph warm started", "profiles", len(ps))
	return len(ps), nil
}

// Sync pulls the graph from the registry, swaps the snapshot and persists
// it. The snapshot is replaced even if persisting fails.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	ps, err := s.listProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}
	s.graph.Replace(ps)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return profiles.NewSQLiteRepository(tx).ReplaceAll(ctx, ps)
	})
	if err != nil {
		return len(ps), fmt.Errorf("persist graph: %w", err)
	}

	s.logger.Info(ctx, "graph synced", "profiles", len(ps))
	return len(ps), nil
}

// Clear empties both the snapshot and its persisted copy.
func (s *Syncer) Clear(ctx context.Context) error {
	s.graph.Replace(nil)
	return profiles.NewSQLiteRepository(s.db).Clear(ctx)
}

// Run warm starts, syncs, and then syncs every interval until ctx is done.
// Errors are logged.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.WarmStart(ctx); err != nil {
		s.logger.Warn(ctx, "warm start failed", "error", err)
	}
	s.syncLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.syncLogged(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Syncer) syncLogged(ctx context.Context) {
	if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
		s.logger.Warn(ctx, "graph sync failed", "error", err)
	}
}
