package client

import (
	"context"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
)

// Client is the remote registry as seen by the client.
type Client interface {
	Close() error
	Register(ctx context.Context, username string, salt []byte, key []byte, displayName string) (*models.SelfIdentity, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, key []byte) error
	Logout()
	HasSession() bool
	Ping(ctx context.Context) error
	WhoAmI(ctx context.Context) (*models.SelfIdentity, error)
	LookupProfile(ctx context.Context, id identifier.LinkIdentifier) (*models.Profile, error)
	EvaluatePermission(ctx context.Context, callerID, targetID string) (models.PermissionLevel, error)
	RecordShareEvent(ctx context.Context, ev *models.ShareEvent) error
	FetchProfiles(ctx context.Context, ids []string) ([]*models.Profile, error)
	ListProfiles(ctx context.Context, limit int) ([]*models.Profile, error)
}
