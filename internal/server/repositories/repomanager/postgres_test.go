package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kinlink/internal/server/migrations"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/permissions"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/shareevents"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)
	m := NewPostgresRepositoryManager()

	require.IsType(t, &users.PostgresRepository{}, m.Users(db))
	require.IsType(t, &refreshtokens.PostgresRepository{}, m.RefreshTokens(db))
	require.IsType(t, &profiles.PostgresRepository{}, m.Profiles(db))
	require.IsType(t, &permissions.PostgresRepository{}, m.Permissions(db))
	require.IsType(t, &shareevents.PostgresRepository{}, m.ShareEvents(db))
}

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_users.sql", "00002_permissions.sql", "00003_share_events.sql"}, names)
}

func TestRunMigrations_Success(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
