// Package connectivity tracks whether the registry is reachable.
package connectivity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/logging"
)

const DefaultProbeTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher probes the registry and keeps the last result. It starts offline
// until the first successful probe.
type Watcher struct {
	pinger  Pinger
	timeout time.Duration
	online  atomic.Bool
	logger  logging.Logger
}

func NewWatcher(p Pinger, logger logging.Logger) *Watcher {
	return &Watcher{pinger: p, timeout: DefaultProbeTimeout, logger: logger.With("module", "connectivity")}
}

func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Check probes once and records the result.
func (w *Watcher) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.pinger.Ping(ctx)
	cancel()

	w.set(ctx, err == nil)
	return err == nil
}

func (w *Watcher) set(ctx context.Context, online bool) {
	if w.online.Swap(online) == online {
		return
	}
	if online {
		w.logger.Info(ctx, "switched to online mode")
	} else {
		w.logger.Warn(ctx, "switched to offline mode")
	}
}

// Run probes immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	w.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
