// Package profiles persists the local graph snapshot so the client can warm
// start before the first bulk sync completes.
//
// Enrichment is stored as a JSON blob; NULL marks a partial profile. The
// deletion marker is stored as Unix nanoseconds, NULL meaning "not deleted".
package profiles

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
)

type Repository interface {
	// Upsert inserts or replaces a profile by id.
	Upsert(ctx context.Context, p *models.Profile) error
	// ReplaceAll drops every stored profile and stores the given ones. Run it
	// on a transaction to make the swap atomic.
	ReplaceAll(ctx context.Context, ps []*models.Profile) error
	List(ctx context.Context) ([]*models.Profile, error)
	Clear(ctx context.Context) error
}
