// Package deferred keeps the one link a signed-out user opened, so it can be
// resolved once they sign in.
package deferred

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/timex"
)

// Key is the metadata key the pending link is stored under.
const Key = "deferred_link"

type Store struct {
	repo   metadata.Repository
	clock  timex.Clock
	ttl    time.Duration
	logger logging.Logger
}

func NewStore(repo metadata.Repository, clock timex.Clock, ttl time.Duration, logger logging.Logger) *Store {
	if ttl <= 0 {
		ttl = models.DeferredLinkTTL
	}
	return &Store{repo: repo, clock: clock, ttl: ttl, logger: logger.With("module", "deferred")}
}

// Save stores id as the pending link, replacing any previous one.
func (s *Store) Save(ctx context.Context, id identifier.LinkIdentifier, source models.LinkSource, referrer *identifier.LinkIdentifier) error {
	if id.IsZero() {
		return fmt.Errorf("deferred link: empty identifier")
	}
	if !source.Valid() {
		return fmt.Errorf("deferred link: unknown source %q", source)
	}

	link := models.NewDeferredLink(id, referrer, source, s.clock.Now(), s.ttl)
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("deferred link: encode: %w", err)
	}
	if err := s.repo.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("deferred link: save: %w", err)
	}
	return nil
}

// Consume returns the pending link and removes it. It returns nil when there
// is none, when it has expired or when it cannot be decoded; in every case
// the stored value is gone afterwards.
func (s *Store) Consume(ctx context.Context) (*models.DeferredLink, error) {
	data, err := s.repo.Take(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("deferred link: consume: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var link models.DeferredLink
	if err := json.Unmarshal(data, &link); err != nil {
		s.logger.Warn(ctx, "discarding unreadable deferred link", "error", err)
		return nil, nil
	}
	if link.Expired(s.clock.Now()) {
		s.logger.Debug(ctx, "deferred link expired", "created_at", link.CreatedAt)
		return nil, nil
	}
	return &link, nil
}

// Clear drops the pending link, if any.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, Key); err != nil {
		return fmt.Errorf("deferred link: clear: %w", err)
	}
	return nil
}
