package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/macro"
	"github.com/roach88/lldsync/internal/store"
)

// RunIDGenerator generates an id per evaluation for log correlation.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunIDs (tests).
type RunIDGenerator interface {
	Generate() string
}

// Recorder observes finished evaluations. internal/metrics implements it.
type Recorder interface {
	Record(report *Report, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) Record(*Report, time.Duration, error) {}

// Engine reconciles prototypes against discovered rows.
//
// An Engine holds no state between evaluations and may be reused. It is
// not safe to run two evaluations of the same prototype concurrently.
type Engine struct {
	store    *store.Store
	subst    macro.Substituter
	logger   *slog.Logger
	runIDs   RunIDGenerator
	recorder Recorder
	now      func() time.Time
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithSubstituter replaces the default macro substitution.
func WithSubstituter(s macro.Substituter) EngineOption {
	return func(e *Engine) {
		e.subst = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithRecorder sets the evaluation recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an Engine on the given store.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		subst:    macro.Standard{},
		logger:   slog.Default(),
		runIDs:   UUIDv7Generator{},
		recorder: nopRecorder{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ReconcileTriggers materializes a trigger prototype for the given rows.
//
// The returned report lists row and entity problems. A non-nil error is an
// *EvaluationError and means nothing was committed.
func (e *Engine) ReconcileTriggers(ctx context.Context, prototypeID uint64, rows []ir.Row) (*Report, error) {
	return e.evaluate(ctx, ir.KindTrigger, prototypeID, rows, e.reconcileTriggers)
}

// ReconcileGraphs materializes a graph prototype for the given rows.
//
// The returned report lists row and entity problems. A non-nil error is an
// *EvaluationError and means nothing was committed.
func (e *Engine) ReconcileGraphs(ctx context.Context, prototypeID uint64, rows []ir.Row) (*Report, error) {
	return e.evaluate(ctx, ir.KindGraph, prototypeID, rows, e.reconcileGraphs)
}

// evaluation carries the state of one prototype evaluation.
type evaluation struct {
	kind        ir.Kind
	prototypeID uint64
	report      *Report
	logger      *slog.Logger
}

type reconcileFunc func(ctx context.Context, ev *evaluation, rows []ir.Row) error

func (e *Engine) evaluate(ctx context.Context, kind ir.Kind, prototypeID uint64, rows []ir.Row, fn reconcileFunc) (*Report, error) {
	start := e.now()
	report := newReport(e.runIDs.Generate(), kind, prototypeID, len(rows))
	ev := &evaluation{
		kind:        kind,
		prototypeID: prototypeID,
		report:      report,
		logger: e.logger.With(
			"run_id", report.RunID,
			"kind", string(kind),
			"prototype_id", prototypeID,
		),
	}

	err := fn(ctx, ev, rows)
	elapsed := e.now().Sub(start)
	e.recorder.Record(report, elapsed, err)

	if err != nil {
		ev.logger.Error("prototype evaluation failed", "error", err)
		return report, err
	}

	ev.logger.Info("prototype evaluated",
		"rows", report.Rows,
		"created", report.Created,
		"updated", report.Updated,
		"sub_created", report.SubCreated,
		"sub_updated", report.SubUpdated,
		"sub_deleted", report.SubDeleted,
		"tags_created", report.TagsCreated,
		"tags_updated", report.TagsUpdated,
		"tags_deleted", report.TagsDeleted,
		"problems", len(report.Problems),
		"elapsed", elapsed,
	)
	return report, nil
}

// problem records a row or entity problem.
func (ev *evaluation) problem(p Problem) {
	p.Kind = ev.kind
	ev.report.Problems = append(ev.report.Problems, p)
	ev.logger.Warn(p.Message, "code", string(p.Code), "entity_id", p.EntityID)
}
