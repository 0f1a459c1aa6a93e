package shareevents

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type Repository interface {
	// Create appends ev. It reports false when an event with the same id
	// was already stored.
	Create(ctx context.Context, ev *models.ShareEvent) (bool, error)
	CountForTarget(ctx context.Context, targetID string) (int64, error)
}
