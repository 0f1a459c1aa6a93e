package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/kinlink/internal/dbx"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/shareevents"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to a connection or a
// transaction, so services can decide where each call runs.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	ShareEvents(db dbx.DBTX) shareevents.Repository
}
