package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lldsync/internal/engine"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/rows"
	"github.com/roach88/lldsync/internal/store"
	"github.com/roach88/lldsync/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	Runs []RunResult `json:"runs"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// RunResult is the outcome of one evaluation.
type RunResult struct {
	Report     *engine.Report   `json:"report"`
	ErrorCode  string           `json:"error_code,omitempty"`
	Statements []store.Executed `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Option configures a scenario execution.
type Option func(*Harness)

// WithLogger sets the engine logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithRecorder passes evaluation outcomes to r, e.g. a metrics collector.
func WithRecorder(r engine.Recorder) Option {
	return func(h *Harness) { h.recorder = r }
}

// Harness is the scenario execution environment: one database and one
// engine per scenario, with every committed statement recorded.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	rows     *rows.Loader
	rec      *store.Recorder
	logger   *slog.Logger
	recorder engine.Recorder
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. An error is returned
// only when the scenario could not be executed at all; failed expectations
// are reported in the result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		rec:    &store.Recorder{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(":memory:", store.WithObserver(h.rec.Observe))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()
	h.store = st

	loader, err := rows.NewLoader()
	if err != nil {
		return nil, err
	}
	h.rows = loader

	engineOpts := []engine.EngineOption{
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDs("run")),
	}
	if h.recorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(h.recorder))
	}
	h.engine = engine.New(st, engineOpts...)

	for _, name := range scenario.Fixtures {
		if err := h.exec(ctx, fixtureSets[name]); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}
	}
	if err := h.exec(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		run, err := h.runStep(ctx, scenario, i, step)
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		result.Runs = append(result.Runs, run)
		checkRun(result, i, step.Expect, run)
	}

	for _, msg := range EvaluateAssertions(ctx, st, scenario.Assertions) {
		result.AddError("%s", msg)
	}

	return result, nil
}

func (h *Harness) runStep(ctx context.Context, scenario *Scenario, i int, step RunStep) (RunResult, error) {
	if err := h.exec(ctx, step.Setup); err != nil {
		return RunResult{}, fmt.Errorf("setup: %w", err)
	}

	discovered, err := h.parseRows(fmt.Sprintf("%s runs[%d]", scenario.Name, i), &step.Rows)
	if err != nil {
		return RunResult{}, err
	}

	h.rec.Reset()

	var report *engine.Report
	switch scenario.Kind {
	case ir.KindTrigger:
		report, err = h.engine.ReconcileTriggers(ctx, scenario.Prototype, discovered)
	case ir.KindGraph:
		report, err = h.engine.ReconcileGraphs(ctx, scenario.Prototype, discovered)
	default:
		return RunResult{}, fmt.Errorf("unknown kind %q", scenario.Kind)
	}

	run := RunResult{Report: report, Statements: h.rec.Statements}
	if err != nil {
		var evalErr *engine.EvaluationError
		if !errors.As(err, &evalErr) {
			return RunResult{}, err
		}
		run.ErrorCode = string(evalErr.Code)
	}
	return run, nil
}

// parseRows runs inline rows through the row file loader.
func (h *Harness) parseRows(name string, node *yaml.Node) ([]ir.Row, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	data, err := yaml.Marshal(map[string]*yaml.Node{"rows": node})
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	return h.rows.Parse(name, data)
}

func (h *Harness) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := h.store.DB().ExecContext(ctx, h.store.Dialect().Rebind(stmt)); err != nil {
			return fmt.Errorf("%q: %w", stmt, err)
		}
	}
	return nil
}

// checkRun compares one evaluation against its expect clause.
func checkRun(result *Result, i int, expect *RunExpect, run RunResult) {
	if expect == nil {
		expect = &RunExpect{}
	}
	prefix := fmt.Sprintf("run %d", i+1)

	if run.ErrorCode != expect.Error {
		switch {
		case expect.Error == "":
			result.AddError("%s: unexpected evaluation error %s", prefix, run.ErrorCode)
		case run.ErrorCode == "":
			result.AddError("%s: expected evaluation error %s, evaluation succeeded", prefix, expect.Error)
		default:
			result.AddError("%s: evaluation error = %s, want %s", prefix, run.ErrorCode, expect.Error)
		}
		return
	}

	counters := []struct {
		name string
		want *int
		got  int
	}{
		{"created", expect.Created, run.Report.Created},
		{"updated", expect.Updated, run.Report.Updated},
		{"sub_created", expect.SubCreated, run.Report.SubCreated},
		{"sub_updated", expect.SubUpdated, run.Report.SubUpdated},
		{"sub_deleted", expect.SubDeleted, run.Report.SubDeleted},
		{"statements", expect.Statements, len(run.Statements)},
	}
	for _, c := range counters {
		if c.want != nil && *c.want != c.got {
			result.AddError("%s: %s = %d, want %d", prefix, c.name, c.got, *c.want)
		}
	}

	if expect.Problems == nil {
		return
	}
	messages := run.Report.Messages()
	if len(messages) != len(expect.Problems) {
		result.AddError("%s: %d problems, want %d: %q", prefix, len(messages), len(expect.Problems), messages)
		return
	}
	for j, want := range expect.Problems {
		if !strings.Contains(messages[j], want) {
			result.AddError("%s: problem %d = %q, want it to contain %q", prefix, j+1, messages[j], want)
		}
	}
}
