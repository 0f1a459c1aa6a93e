package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/config"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepoManager struct {
	repomanager.RepositoryManager
	migrateErr error
	migrated   bool
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	f.migrated = true
	return f.migrateErr
}

func stubDB(t *testing.T, rm *fakeRepoManager) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	oldOpen, oldRM, oldOut := openDB, newRepoManager, logOutput
	t.Cleanup(func() { openDB, newRepoManager, logOutput = oldOpen, oldRM, oldOut })

	openDB = func(string) (*sql.DB, error) { return db, nil }
	newRepoManager = func() repomanager.RepositoryManager { return rm }
	logOutput = io.Discard
	return mock
}

func testConfig() *config.Config {
	return &config.Config{
		EndpointAddrGRPC:  "127.0.0.1:0",
		EndpointAddrHTTP:  "127.0.0.1:0",
		SecretKey:         "k",
		DefaultPermission: "review",
		ShareEventRate:    1,
		ShareEventBurst:   5,
		LogLevel:          "error",
	}
}

func TestNewApp_RunsMigrations(t *testing.T) {
	rm := &fakeRepoManager{}
	stubDB(t, rm)

	app, err := NewApp(context.Background(), testConfig())
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.True(t, rm.migrated)
	assert.NotNil(t, app.grpcServer)
	assert.NotNil(t, app.httpServer)
}

func TestNewApp_MigrationErrorClosesDB(t *testing.T) {
	rm := &fakeRepoManager{migrateErr: errors.New("bad sql")}
	mock := stubDB(t, rm)
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad sql")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_OpenError(t *testing.T) {
	stubDB(t, &fakeRepoManager{})
	openDB = func(string) (*sql.DB, error) { return nil, errors.New("no driver") }

	_, err := NewApp(context.Background(), testConfig())
	require.Error(t, err)
}

func TestNewApp_RejectsUnknownDefaultPermission(t *testing.T) {
	stubDB(t, &fakeRepoManager{})
	cfg := testConfig()
	cfg.DefaultPermission = "admin"

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}

type fakeRunner struct {
	err     error
	stopped atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	f.stopped.Store(true)
	return nil
}

type fakePurger struct{ calls atomic.Int32 }

func (f *fakePurger) PurgeExpiredTokens(context.Context) (int64, error) {
	f.calls.Add(1)
	return 1, nil
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

func newTestApp(t *testing.T, g, h *fakeRunner) *App {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	return &App{logger: nopLogger{}, db: db, users: &fakePurger{}, grpcServer: g, httpServer: h}
}

func TestRun_StopsOnCancel(t *testing.T) {
	g, h := &fakeRunner{}, &fakeRunner{}
	app := newTestApp(t, g, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, g.stopped.Load())
	assert.True(t, h.stopped.Load())
}

func TestRun_ServerFailureStopsTheOther(t *testing.T) {
	g, h := &fakeRunner{}, &fakeRunner{err: errors.New("address in use")}
	app := newTestApp(t, g, h)

	err := app.Run(context.Background())
	require.EqualError(t, err, "address in use")
	assert.True(t, g.stopped.Load())
}

func TestPurgeTokens_Ticks(t *testing.T) {
	p := &fakePurger{}
	app := &App{logger: nopLogger{}, users: p}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	app.purgeTokens(ctx, 10*time.Millisecond)

	assert.Greater(t, p.calls.Load(), int32(1))
}
