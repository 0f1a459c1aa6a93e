// Package users stores registry accounts. Every account owns exactly one
// profile in the family graph.
package users

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/server/models"
)

type Repository interface {
	// Create returns ErrUserExists when the login is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
