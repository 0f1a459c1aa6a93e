package client

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kinlink/internal/client/migrations"
	"github.com/dmitrijs2005/kinlink/internal/filex"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// RunMigrations brings the local cache schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// cachePragmas let graph sync and the deferred store write the cache while
// the pipeline reads it.
const cachePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// withPragmas adds cachePragmas to a plain file path. In-memory databases
// and DSNs that already carry a query are left alone.
func withPragmas(dsn string) string {
	if dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "?") || strings.Contains(dsn, "mode=memory") {
		return dsn
	}
	return dsn + "?" + cachePragmas
}

// InitDatabase opens the SQLite cache at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
