package profiles

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

// ErrShareCodeTaken is returned by Create when the share code collides with
// an existing profile.
var ErrShareCodeTaken = errors.New("share code taken")

type Repository interface {
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByShareCode(ctx context.Context, code string) (*models.Profile, error)
	GetByLegacyID(ctx context.Context, legacyID string) (*models.Profile, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Profile, error)
	List(ctx context.Context, limit int) ([]*models.Profile, error)
}
