package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/kinlink/internal/client/completion"
	"github.com/dmitrijs2005/kinlink/internal/client/graph"
	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/dmitrijs2005/kinlink/internal/client/notice"
	"github.com/dmitrijs2005/kinlink/internal/client/permission"
	"github.com/dmitrijs2005/kinlink/internal/client/resolver"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/identifier"
	"github.com/dmitrijs2005/kinlink/internal/logging"
	"github.com/dmitrijs2005/kinlink/internal/timex"
)

const (
	DefaultDebounceWindow    = 1000 * time.Millisecond
	DefaultGraphReadyTimeout = 10 * time.Second
)

type Stage string

const (
	StageDebounce    Stage = "debounce"
	StageSelfCheck   Stage = "self_check"
	StageNetwork     Stage = "network_guard"
	StageGraphReady  Stage = "graph_ready"
	StageValidate    Stage = "validate"
	StageResolve     Stage = "resolve"
	StageDeleteCheck Stage = "delete_check"
	StageAuthorize   Stage = "authorize"
	StageComplete    Stage = "complete"
	StageActivate    Stage = "activate"
	StageRecord      Stage = "record"
)

type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeSelf     Outcome = "self"
	OutcomeOpened   Outcome = "opened"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Result describes how an invocation ended. Stage is the last stage
// reached.
type Result struct {
	Outcome   Outcome
	Stage     Stage
	ProfileID string
	ShareCode string
	Notice    *notice.Notice
	Err       error
	// EventID is the id of the share event queued for recording.
	EventID string
}

type Connectivity interface {
	Online() bool
}

type Graph interface {
	completion.Patcher
	IsPopulated() bool
	WaitPopulated(ctx context.Context, max time.Duration) error
	Find(pred func(*models.Profile) bool) (*models.Profile, bool)
}

// SelfSource reports the signed-in user's own profile, if known locally.
type SelfSource interface {
	Self(ctx context.Context) (*models.SelfIdentity, bool)
}

type Resolver interface {
	Resolve(ctx context.Context, id identifier.LinkIdentifier) (*resolver.Resolution, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, targetID string) permission.Decision
}

type Completer interface {
	CompleteInto(ctx context.Context, g completion.Patcher, p *models.Profile) (*models.Profile, error)
}

type Recorder interface {
	Record(ctx context.Context, ev models.ShareEvent) (string, error)
}

// Viewer is the profile screen the pipeline opens.
type Viewer interface {
	OpenProfile(id string)
	CenterOn(id string)
}

type DeferredSource interface {
	Consume(ctx context.Context) (*models.DeferredLink, error)
}

type Deps struct {
	Codec        *identifier.Codec
	Self         SelfSource
	Connectivity Connectivity
	Graph        Graph
	Resolver     Resolver
	Gate         Authorizer
	Completer    Completer
	Recorder     Recorder
	Viewer       Viewer
	Notifier     notice.Notifier
	Deferred     DeferredSource
	Clock        timex.Clock
	Logger       logging.Logger
}

type Config struct {
	DebounceWindow    time.Duration
	GraphReadyTimeout time.Duration
	// CenterOnOpen also asks the viewer to center on the opened profile.
	CenterOnOpen bool
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow:    DefaultDebounceWindow,
		GraphReadyTimeout: DefaultGraphReadyTimeout,
		CenterOnOpen:      true,
	}
}

type Pipeline struct {
	deps   Deps
	cfg    Config
	logger logging.Logger

	mu           sync.Mutex
	lastAccepted time.Time
	generation   uint64
	cancelActive context.CancelFunc
}

func New(d Deps, cfg Config) *Pipeline {
	if d.Codec == nil {
		d.Codec = identifier.New("", "")
	}
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.GraphReadyTimeout <= 0 {
		cfg.GraphReadyTimeout = DefaultGraphReadyTimeout
	}
	return &Pipeline{deps: d, cfg: cfg, logger: d.Logger.With("module", "pipeline")}
}

// Request is one inbound link. Raw is a universal link, an app link or a
// bare identifier. A non-empty Referrer overrides the one carried by Raw.
type Request struct {
	Raw      string
	Referrer string
	Source   models.LinkSource
}

// ResolveLink runs the pipeline for a raw link or identifier.
func (p *Pipeline) ResolveLink(ctx context.Context, raw string, source models.LinkSource) Result {
	return p.Run(ctx, Request{Raw: raw, Source: source})
}

// ConsumeDeferred runs the pending deferred link, if any. It reports false
// when there was nothing to run.
func (p *Pipeline) ConsumeDeferred(ctx context.Context) (Result, bool) {
	if p.deps.Deferred == nil {
		return Result{}, false
	}
	link, err := p.deps.Deferred.Consume(ctx)
	if err != nil {
		p.logger.Warn(ctx, "failed to read deferred link", "error", err)
		return Result{}, false
	}
	if link == nil {
		return Result{}, false
	}

	req := Request{Raw: link.Identifier.Value, Source: link.Source}
	if link.Referrer != nil {
		req.Referrer = link.Referrer.Value
	}
	return p.Run(ctx, req), true
}

// accept applies the debounce window and supersedes the invocation in
// flight. It returns false for a dropped invocation.
func (p *Pipeline) accept(ctx context.Context) (context.Context, func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.deps.Clock.Now()
	if !p.lastAccepted.IsZero() && now.Sub(p.lastAccepted) < p.cfg.DebounceWindow {
		return nil, nil, false
	}
	p.lastAccepted = now

	if p.cancelActive != nil {
		p.cancelActive()
	}
	p.generation++
	gen := p.generation

	runCtx, cancel := context.WithCancel(ctx)
	p.cancelActive = cancel

	done := func() {
		p.mu.Lock()
		if p.generation == gen {
			p.cancelActive = nil
		}
		p.mu.Unlock()
		cancel()
	}
	return runCtx, done, true
}

// Run executes one invocation.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	runCtx, done, ok := p.accept(ctx)
	if !ok {
		p.logger.Debug(ctx, "link dropped by debounce", "raw", req.Raw)
		return Result{Outcome: OutcomeIgnored, Stage: StageDebounce}
	}
	defer done()

	return p.run(runCtx, req)
}

func (p *Pipeline) run(ctx context.Context, req Request) Result {
	link, parsed := p.deps.Codec.ParseLink(req.Raw)
	if parsed && req.Referrer != "" {
		if ref, ok := identifier.Classify(req.Referrer); ok {
			link.Referrer = &ref
		}
	}

	// SelfCheck
	var self *models.SelfIdentity
	if p.deps.Self != nil {
		if s, ok := p.deps.Self.Self(ctx); ok {
			self = s
		}
	}
	if parsed && self != nil && self.Matches(link.ID) {
		n := notice.OwnProfile
		p.notify(n)
		return Result{Outcome: OutcomeSelf, Stage: StageSelfCheck, ProfileID: self.ProfileID, Notice: &n}
	}

	// NetworkGuard
	if p.deps.Connectivity != nil && !p.deps.Connectivity.Online() {
		return p.fail(ctx, StageNetwork, common.ErrOffline)
	}

	// GraphReady
	if !p.deps.Graph.IsPopulated() {
		p.logger.Debug(ctx, "waiting for the graph to load")
		if err := p.deps.Graph.WaitPopulated(ctx, p.cfg.GraphReadyTimeout); err != nil {
			return p.fail(ctx, StageGraphReady, err)
		}
	}

	// Validate
	if !parsed {
		return p.fail(ctx, StageValidate, common.ErrInvalidFormat)
	}

	// Resolve, DeleteCheck
	res, err := p.deps.Resolver.Resolve(ctx, link.ID)
	if err != nil {
		stage := StageResolve
		if errors.Is(err, common.ErrDeleted) {
			stage = StageDeleteCheck
		}
		return p.fail(ctx, stage, err)
	}
	if ctx.Err() != nil {
		return p.fail(ctx, StageResolve, ctx.Err())
	}
	profile := res.Profile

	// Authorize
	decision := p.deps.Gate.Authorize(ctx, profile.ID)
	if !decision.Allowed {
		return p.fail(ctx, StageAuthorize, decision.Err)
	}
	if ctx.Err() != nil {
		return p.fail(ctx, StageAuthorize, ctx.Err())
	}
	if decision.Verdict == permission.VerdictAllowWithWarning {
		p.logger.Warn(ctx, "opening profile despite failed permission check", "profile", profile.ID, "error", decision.Err)
	}

	// Complete
	if p.deps.Completer != nil && !completion.IsComplete(profile) {
		completed, err := p.deps.Completer.CompleteInto(ctx, p.deps.Graph, profile)
		if err != nil {
			p.logger.Warn(ctx, "profile completion failed, opening partial profile", "profile", profile.ID, "error", err)
		} else {
			profile = completed
		}
	}
	if ctx.Err() != nil {
		return p.fail(ctx, StageComplete, ctx.Err())
	}

	// Activate
	p.deps.Viewer.OpenProfile(profile.ID)
	if p.cfg.CenterOnOpen {
		p.deps.Viewer.CenterOn(profile.ID)
	}
	p.logger.Info(ctx, "profile opened", "profile", profile.ID, "share_code", res.ShareCode, "via_legacy", res.ViaLegacy, "source", res.Source)

	result := Result{Outcome: OutcomeOpened, Stage: StageActivate, ProfileID: profile.ID, ShareCode: res.ShareCode}

	// Record
	if p.deps.Recorder != nil {
		ev := models.ShareEvent{
			TargetProfileID:   profile.ID,
			TargetShareCode:   res.ShareCode,
			ReferrerProfileID: p.referrerID(link.Referrer),
			Method:            req.Source,
		}
		if self != nil {
			ev.ScannerProfileID = self.ProfileID
		}
		id, err := p.deps.Recorder.Record(ctx, ev)
		if err != nil {
			p.logger.Warn(ctx, "share event not queued", "error", err)
		} else {
			result.Stage = StageRecord
			result.EventID = id
		}
	}
	return result
}

// referrerID looks the referrer up in the local graph only; Record must not
// wait on the registry.
func (p *Pipeline) referrerID(ref *identifier.LinkIdentifier) string {
	if ref == nil {
		return ""
	}
	pred := graph.ByShareCode(ref.Value)
	if ref.IsLegacy() {
		pred = graph.ByLegacyID(ref.Value)
	}
	if r, ok := p.deps.Graph.Find(pred); ok {
		return r.ID
	}
	return ""
}

func (p *Pipeline) fail(ctx context.Context, stage Stage, err error) Result {
	if errors.Is(err, context.Canceled) {
		p.logger.Debug(ctx, "link resolution canceled", "stage", stage)
		return Result{Outcome: OutcomeCanceled, Stage: stage, Err: err}
	}

	result := Result{Outcome: OutcomeFailed, Stage: stage, Err: err}
	if n, ok := notice.For(err); ok {
		p.notify(n)
		result.Notice = &n
	}
	p.logger.Info(ctx, "link resolution failed", "stage", stage, "error", err)
	return result
}

func (p *Pipeline) notify(n notice.Notice) {
	if p.deps.Notifier != nil {
		p.deps.Notifier.Notify(n)
	}
}
