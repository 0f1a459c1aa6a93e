package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/kinlink/internal/client/client"
	"github.com/dmitrijs2005/kinlink/internal/client/completion"
	"github.com/dmitrijs2005/kinlink/internal/client/config"
	"github.com/dmitrijs2005/kinlink/internal/client/connectivity"
	"github.com/dmitrijs2005/kinlink/internal/client/deferred"
	"github.com/dmitrijs2005/kinlink/internal/client/graph"
	"github.com/dmitrijs2005/kinlink/internal/client/graphsync"
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/permission"
	"github.com/dmitrijs2005/kinlink/internal/client/pipeline"
	"github.com/dmitrijs2005/kinlink/internal/client/recorder"
	"github.com/dmitrijs2005/kinlink/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/kinlink/internal/client/resolver"
	"github.com/dmitrijs2005/kinlink/internal/client/services"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/retry"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/sourcegraph/conc"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type linkRunner interface {
	ResolveLink(ctx context.Context, raw string, source models.LinkSource) pipeline.Result
	ConsumeDeferred(ctx context.Context) (pipeline.Result, bool)
}

type deferredSaver interface {
	Save(ctx context.Context, id identifier.LinkIdentifier, source models.LinkSource, referrer *identifier.LinkIdentifier) error
}

type graphSyncer interface {
	Sync(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	authService services.AuthService
	links       linkRunner
	deferred    deferredSaver
	syncer      graphSyncer
	codec       *identifier.Codec
	masterKey   []byte
	userName    string
	Mode        Mode
	reader      *bufio.Reader
	out         io.Writer

	// set by NewApp only
	db       *sql.DB
	watcher  *connectivity.Watcher
	gsync    *graphsync.Syncer
	gate     *permission.Gate
	recorder *recorder.Recorder
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewRegistryClientService(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	out := &lockedWriter{w: os.Stdout}
	clock := timex.SystemClock{}
	store := graph.NewStore()
	codec := identifier.New(c.LinkDomain, c.AppScheme)
	notifier := &consoleNotifier{out: out}

	watcher := connectivity.NewWatcher(apiClient, logger)
	var resolverOpts []resolver.Option
	var syncOpts []graphsync.Option
	if p, ok := remoteRetryPolicy(c); ok {
		resolverOpts = append(resolverOpts, resolver.WithRetry(p))
		syncOpts = append(syncOpts, graphsync.WithRetry(p))
	}
	resolverOpts = append(resolverOpts, resolver.WithTimeout(c.RemoteTimeout))

	syncer := graphsync.New(apiClient, db, store, 0, logger, syncOpts...)
	deferredStore := deferred.NewStore(metadata.NewSQLiteRepository(db), clock, c.DeferredTTL, logger)

	// the gate asks the auth service for the caller and the auth service
	// purges the gate on logout
	identity := &lazyIdentity{}
	gate := permission.NewGate(apiClient, identity, logger,
		permission.WithTTL(c.PermissionTTL),
		permission.WithTimeout(c.PermissionTimeout),
		permission.WithClock(clock),
	)
	as := services.NewAuthService(apiClient, db, logger, services.WithPurger(gate))
	identity.auth = as

	rec := recorder.New(apiClient, notifier, logger, recorder.WithClock(clock), recorder.WithTimeout(c.RemoteTimeout))

	p := pipeline.New(pipeline.Deps{
		Codec:        codec,
		Self:         as,
		Connectivity: watcher,
		Graph:        store,
		Resolver:     resolver.New(store, apiClient, logger, resolverOpts...),
		Gate:         gate,
		Completer:    completion.NewService(apiClient, c.RemoteTimeout),
		Recorder:     rec,
		Viewer:       &consoleViewer{out: out, graph: store},
		Notifier:     notifier,
		Deferred:     deferredStore,
		Clock:        clock,
		Logger:       logger,
	}, pipeline.Config{
		DebounceWindow:    c.DebounceWindow,
		GraphReadyTimeout: c.GraphReadyTimeout,
		CenterOnOpen:      true,
	})

	return &App{
		config:      c,
		logger:      logger.With("module", "cli"),
		authService: as,
		links:       p,
		deferred:    deferredStore,
		syncer:      syncer,
		codec:       codec,
		reader:      bufio.NewReader(os.Stdin),
		out:         out,
		db:          db,
		watcher:     watcher,
		gsync:       syncer,
		gate:        gate,
		recorder:    rec,
	}, nil
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		a.logger.Info(ctx, "switched mode", "mode", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.masterKey != nil
}

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Run starts the background workers, signs the user in and serves the
// REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	var wg conc.WaitGroup
	wg.Go(func() { a.watcher.Run(ctx, a.config.OnlineCheckInterval) })
	wg.Go(func() { a.gsync.Run(ctx, a.config.SyncInterval) })

	defer func() {
		cancel()
		wg.Wait()
		a.recorder.Close()
		a.gate.Close()
		_ = a.authService.Close(ctx)
		_ = a.db.Close()
	}()

	fmt.Fprintln(a.out, "Welcome to kinlink (type 'help' for commands)")
	_ = a.Login(ctx)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// lazyIdentity breaks the construction cycle between the permission gate
// and the auth service.
type lazyIdentity struct {
	auth services.AuthService
}

func (l *lazyIdentity) CallerID(ctx context.Context) (string, error) {
	if l.auth == nil {
		return "", nil
	}
	return l.auth.CallerID(ctx)
}

// remoteRetryPolicy is the backoff for registry calls made while offline.
func remoteRetryPolicy(c *config.Config) (retry.Policy, bool) {
	if c.RemoteRetries <= 0 {
		return retry.Policy{}, false
	}
	p := retry.DefaultPolicy()
	p.MaxRetries = uint64(c.RemoteRetries)
	return p, true
}
