// Package refreshtokens stores the single-use refresh tokens handed out at
// login and on every rotation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type Repository interface {
	// Create stores a new refresh token for userID valid until expiresAt and
	// returns the stored row.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) (*models.RefreshToken, error)

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. It returns common.ErrorNotFound when the
	// token was already gone, so a token spent twice is detected.
	Delete(ctx context.Context, token string) error

	// DeleteExpired drops every token that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
