// Package recorder writes share events in the background.
//
// Record never waits for the registry. A rate-limit rejection is shown to
// the user; any other failure is only logged.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/notice"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/timex"
	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultTimeout = 5 * time.Second
	// DefaultMaxWriters caps concurrent writes to the registry.
	DefaultMaxWriters = 8
	// DefaultBacklog is how many events may wait for a free writer.
	DefaultBacklog = 256
)

var (
	ErrClosed = errors.New("recorder closed")
	// ErrBacklogFull is returned by Record when every writer is busy and
	// the backlog is full. The event is dropped.
	ErrBacklogFull = errors.New("share event backlog full")
)

type job struct {
	ctx context.Context
	ev  *models.ShareEvent
}

type Sink interface {
	RecordShareEvent(ctx context.Context, ev *models.ShareEvent) error
}

type Recorder struct {
	sink     Sink
	notifier notice.Notifier
	clock    timex.Clock
	timeout  time.Duration
	logger   logging.Logger

	mu         sync.Mutex
	tasks      *pool.Pool
	maxWriters int
	maxBacklog int
	running    int
	backlog    []job
	closed     bool

	idMu    sync.Mutex
	entropy io.Reader
}

type Option func(*Recorder)

func WithClock(c timex.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxWriters sets how many writes may run at once.
func WithMaxWriters(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxWriters = n
		}
	}
}

func WithBacklog(n int) Option {
	return func(r *Recorder) {
		if n >= 0 {
			r.maxBacklog = n
		}
	}
}

func New(sink Sink, notifier notice.Notifier, logger logging.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		sink:     sink,
		notifier: notifier,
		clock:    timex.SystemClock{},
		timeout:  DefaultTimeout,
		logger:     logger.With("module", "recorder"),
		maxWriters: DefaultMaxWriters,
		maxBacklog: DefaultBacklog,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.tasks = r.newPool()
	return r
}

func (r *Recorder) newPool() *pool.Pool {
	return pool.New().WithMaxGoroutines(r.maxWriters)
}

func (r *Recorder) newID(t time.Time) (string, error) {
	r.idMu.Lock()
	defer r.idMu.Unlock()

	id, err := ulid.New(uint64(t.UnixMilli()), r.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record stamps ev and hands it to a background writer. It returns the
// event id. The write outlives ctx's cancellation but not its values.
func (r *Recorder) Record(ctx context.Context, ev models.ShareEvent) (string, error) {
	if ev.TargetProfileID == "" {
		return "", fmt.Errorf("share event: empty target")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = r.clock.Now()
	}
	if ev.TargetShareCode != "" && !identifier.ValidateShareCode(ev.TargetShareCode) {
		r.logger.Warn(ctx, "dropping non share code target from event", "target_code", ev.TargetShareCode)
		ev.TargetShareCode = ""
	}
	ev.TargetShareCode = identifier.Normalize(ev.TargetShareCode)

	if ev.ID == "" {
		id, err := r.newID(ev.OccurredAt)
		if err != nil {
			return "", fmt.Errorf("share event id: %w", err)
		}
		ev.ID = id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	j := job{ctx: context.WithoutCancel(ctx), ev: &ev}
	if r.running < r.maxWriters {
		r.running++
		r.tasks.Go(func() { r.drain(j) })
		return ev.ID, nil
	}
	if len(r.backlog) >= r.maxBacklog {
		r.logger.Warn(ctx, "dropping share event, all writers busy", "event_id", ev.ID)
		return "", ErrBacklogFull
	}
	r.backlog = append(r.backlog, j)
	return ev.ID, nil
}

// drain writes j and then keeps taking queued events until none are left.
func (r *Recorder) drain(j job) {
	for {
		r.write(j.ctx, j.ev)

		r.mu.Lock()
		if len(r.backlog) == 0 {
			r.running--
			r.mu.Unlock()
			return
		}
		j = r.backlog[0]
		r.backlog[0] = job{}
		r.backlog = r.backlog[1:]
		r.mu.Unlock()
	}
}

func (r *Recorder) write(ctx context.Context, ev *models.ShareEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ctx, "share event writer panicked", "event_id", ev.ID, "panic", p)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.sink.RecordShareEvent(ctx, ev)
	switch {
	case err == nil:
		r.logger.Debug(ctx, "share event recorded", "event_id", ev.ID, "target", ev.TargetProfileID)
	case errors.Is(err, common.ErrRateLimited):
		r.logger.Warn(ctx, "share event rate limited", "event_id", ev.ID)
		if r.notifier != nil {
			r.notifier.Notify(notice.RateLimited)
		}
	default:
		r.logger.Warn(ctx, "share event not recorded", "event_id", ev.ID, "error", err)
	}
}

// Flush waits for every write started or queued before the call.
func (r *Recorder) Flush() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	tasks := r.tasks
	r.tasks = r.newPool()
	r.mu.Unlock()

	tasks.Wait()
}

// Close flushes and rejects further records.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	tasks := r.tasks
	r.mu.Unlock()

	tasks.Wait()
}
