package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/receptionist/internal/booking"
	"github.com/ent0n29/receptionist/internal/conversation"
	"github.com/ent0n29/receptionist/internal/extract"
	"github.com/ent0n29/receptionist/internal/observability"
	"github.com/ent0n29/receptionist/internal/policy"
	"github.com/ent0n29/receptionist/internal/reply"
	"github.com/ent0n29/receptionist/internal/resolve"
)

// Result is the outcome of one turn: the text to say and the single action
// to apply.
type Result struct {
	Reply    string           `json:"reply"`
	Action   resolve.Action   `json:"action"`
	Decision resolve.Decision `json:"-"`
}

type EngineConfig struct {
	Extractor extract.Extractor
	Resolver  *resolve.Resolver
	Composer  *reply.Composer
	Metrics   *observability.Metrics
	Stages    *observability.StageWindow
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *zap.Logger
}

// Engine runs turns. It holds no conversation state; every call derives its
// answer from the transcript and snapshot it is given.
type Engine struct {
	extractor extract.Extractor
	resolver  *resolve.Resolver
	composer  *reply.Composer
	metrics   *observability.Metrics
	stages    *observability.StageWindow
	clock     func() time.Time
	logger    *zap.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Extractor == nil {
		cfg.Extractor = extract.NewRuleExtractor(nil, nil)
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolve.New(resolve.Options{})
	}
	if cfg.Composer == nil {
		cfg.Composer = reply.NewComposer(time.UTC)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		extractor: cfg.Extractor,
		resolver:  cfg.Resolver,
		composer:  cfg.Composer,
		metrics:   cfg.Metrics,
		stages:    cfg.Stages,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Stages exposes the rolling stage latency window, which may be nil.
func (e *Engine) Stages() *observability.StageWindow {
	return e.stages
}

// RunTurn interprets the transcript against the snapshot. It fails only for
// a malformed transcript; an extraction failure still yields a reply.
func (e *Engine) RunTurn(ctx context.Context, history []conversation.Turn, bookings []booking.Booking) (Result, error) {
	if err := conversation.Validate(history); err != nil {
		return Result{}, err
	}
	started := time.Now()
	now := e.clock()

	ex, err := e.extractor.Extract(ctx, extract.Request{History: history, Bookings: bookings, Now: now})
	e.stages.ObserveDuration(observability.StageExtract, time.Since(started))

	var decision resolve.Decision
	if err != nil {
		name := extract.NameOf(e.extractor)
		e.metrics.ObserveExtractionFailure(name)
		e.stages.ObserveIndicator("extraction_failed")
		e.logger.Warn("slot extraction failed", zap.String("extractor", name), zap.Error(err))
		decision = resolve.ExtractionFailed()
	} else {
		resolveStarted := time.Now()
		decision = e.resolver.Resolve(ex, bookings, now)
		e.stages.ObserveDuration(observability.StageResolve, time.Since(resolveStarted))
	}

	composeStarted := time.Now()
	text := e.composer.Compose(decision, nil)
	e.stages.ObserveDuration(observability.StageCompose, time.Since(composeStarted))

	elapsed := time.Since(started)
	e.stages.ObserveDuration(observability.StageTurnTotal, elapsed)
	e.stages.ObserveIndicator(string(decision.Reason))
	e.metrics.ObserveTurn(string(decision.Action.Type), string(decision.Reason), elapsed)

	if last := conversation.LastUser(history); last >= 0 {
		said, _ := policy.RedactPII(history[last].Content)
		e.logger.Debug("turn resolved",
			zap.String("said", said),
			zap.String("intent", string(decision.Intent)),
			zap.String("action", string(decision.Action.Type)),
			zap.String("reason", string(decision.Reason)),
			zap.Strings("missing", decision.Missing),
			zap.Duration("elapsed", elapsed),
		)
	}

	return Result{Reply: text, Action: decision.Action, Decision: decision}, nil
}
