// Package server wires the registry: Postgres storage, the gRPC Registry
// service and the HTTP landing page, run until the context is canceled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/config"
	gs "github.com/dmitrijs2005/kinlink/internal/server/grpc"
	"github.com/dmitrijs2005/kinlink/internal/server/metrics"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/dmitrijs2005/kinlink/internal/server/photos"
	"github.com/dmitrijs2005/kinlink/internal/server/ratelimit"
	"github.com/dmitrijs2005/kinlink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/kinlink/internal/server/services"
	"github.com/dmitrijs2005/kinlink/internal/server/web"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const tokenPurgeInterval = time.Hour

// seams for tests
var (
	openDB         = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }
	newRepoManager = repomanager.NewPostgresRepositoryManager
	logOutput      = io.Writer(os.Stdout)
)

type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	users      tokenPurger
	grpcServer runner
	httpServer runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New("json", c.LogLevel, logOutput)

	level := models.PermissionLevel(c.DefaultPermission)
	if !level.Valid() {
		return nil, fmt.Errorf("invalid default permission %q", c.DefaultPermission)
	}

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrations error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	clock := timex.SystemClock{}

	us := services.NewUserService(db, rm, c, clock)
	rs := services.NewRegistryService(services.RegistryDeps{
		DB:     db,
		Repos:  rm,
		Policy: services.PermissionPolicy{Default: level},
		Photos: photos.NewPresigner(photos.Options{
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
			TTL:          c.PhotoURLTTL,
		}),
		Limiter: ratelimit.New(c.ShareEventRate, c.ShareEventBurst, clock),
		Metrics: collector,
		Clock:   clock,
		Logger:  logger,
	})

	router := web.NewRouter(web.RouterDeps{
		Codec:    identifier.New(c.LinkDomain, c.AppScheme),
		DB:       db,
		Gatherer: reg,
		Metrics:  collector,
		Logger:   logger,
	})

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		users:      us,
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, rs, c.SecretKey),
		httpServer: web.NewServer(c.EndpointAddrHTTP, router, logger),
	}, nil
}

// purgeTokens drops expired refresh tokens every interval until ctx ends.
func (app *App) purgeTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.users.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired refresh tokens", "count", n)
			}
		}
	}
}

// Run serves gRPC and HTTP until ctx is canceled or either server fails.
func (app *App) Run(ctx context.Context) error {

	defer func() { _ = app.db.Close() }()

	app.logger.Info(ctx, "Starting app...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpcServer.Run(ctx) })
	g.Go(func() error { return app.httpServer.Run(ctx) })
	g.Go(func() error {
		app.purgeTokens(ctx, tokenPurgeInterval)
		return nil
	})

	err := g.Wait()
	app.logger.Info(ctx, "App stopped")
	return err
}
