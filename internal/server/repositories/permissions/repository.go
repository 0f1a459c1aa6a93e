package permissions

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type Repository interface {
	// Find returns common.ErrorNotFound when no explicit row exists.
	Find(ctx context.Context, callerID, targetID string) (*models.Permission, error)
}
