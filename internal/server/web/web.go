// Package web serves the universal-link landing page and the operational
// endpoints of the registry.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps wires NewRouter.
type RouterDeps struct {
	Codec    *identifier.Codec
	DB       Pinger
	Gatherer prometheus.Gatherer
	Metrics  metrics.Recorder
	Logger   logging.Logger
}

type handler struct {
	codec   *identifier.Codec
	db      Pinger
	metrics metrics.Recorder
	logger  logging.Logger
}

// NewRouter returns the HTTP routes:
//
//	GET /profile/{identifier}  redirect to the app link
//	GET /healthz               store reachability
//	GET /metrics               Prometheus scrape endpoint
func NewRouter(deps RouterDeps) http.Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	h := &handler{
		codec:   deps.Codec,
		db:      deps.DB,
		metrics: deps.Metrics,
		logger:  deps.Logger.With("module", "web"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/profile/{identifier}", h.landing)
	r.Get("/healthz", h.healthz)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

// landing sends the visitor into the app. Invalid identifiers get a 404 so
// that crawlers do not index them.
func (h *handler) landing(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "identifier")

	id, ok := identifier.Classify(raw)
	if !ok {
		h.metrics.LandingRedirect("invalid")
		http.Error(w, "profile not found", http.StatusNotFound)
		return
	}

	target := h.codec.BuildAppLink(id.Value, r.URL.Query().Get("referrer"))
	if id.IsLegacy() {
		h.metrics.LandingRedirect("legacy")
	} else {
		h.metrics.LandingRedirect("redirected")
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Server runs the HTTP endpoints until its context is canceled.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, h http.Handler, l logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: l.With("module", "http_server"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
