// Package completion fetches the enrichment of partially loaded profiles.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/common"
)

const DefaultTimeout = 5 * time.Second

type Fetcher interface {
	FetchProfiles(ctx context.Context, ids []string) ([]*models.Profile, error)
}

// Patcher is the part of the graph snapshot completion writes to.
type Patcher interface {
	Patch(id string, patch models.ProfilePatch) bool
	Upsert(profiles ...*models.Profile)
}

type Service struct {
	fetcher Fetcher
	timeout time.Duration
}

func NewService(f Fetcher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{fetcher: f, timeout: timeout}
}

// IsComplete reports whether p carries its enrichment.
func IsComplete(p *models.Profile) bool {
	return p != nil && p.IsComplete()
}

// Complete fetches the given profiles. Only complete profiles are returned.
func (s *Service) Complete(ctx context.Context, ids []string) ([]*models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	got, err := s.fetcher.FetchProfiles(tctx, ids)
	if err != nil {
		if ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, common.ErrTimeout
		}
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}

	out := make([]*models.Profile, 0, len(got))
	for _, p := range got {
		if IsComplete(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// CompleteInto completes p when it is partial and patches the snapshot.
// It returns the completed profile, or p unchanged when nothing came back.
func (s *Service) CompleteInto(ctx context.Context, g Patcher, p *models.Profile) (*models.Profile, error) {
	if IsComplete(p) {
		return p, nil
	}

	got, err := s.Complete(ctx, []string{p.ID})
	if err != nil {
		return p, err
	}
	for _, c := range got {
		if c.ID != p.ID {
			continue
		}
		if !g.Patch(c.ID, models.PatchFrom(c)) {
			g.Upsert(c)
		}
		return c, nil
	}
	return p, fmt.Errorf("profile %s: %w", p.ID, common.ErrorNotFound)
}
