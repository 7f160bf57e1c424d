package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lldsync/internal/engine"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/metrics"
	"github.com/roach88/lldsync/internal/rows"
)

// reconcileKind binds a reconcile command to an engine entry point.
type reconcileKind struct {
	command string
	kind    ir.Kind
	run     func(*engine.Engine) func(context.Context, uint64, []ir.Row) (*engine.Report, error)
}

var (
	kindTriggers = reconcileKind{
		command: "triggers",
		kind:    ir.KindTrigger,
		run:     func(e *engine.Engine) func(context.Context, uint64, []ir.Row) (*engine.Report, error) { return e.ReconcileTriggers },
	}
	kindGraphs = reconcileKind{
		command: "graphs",
		kind:    ir.KindGraph,
		run:     func(e *engine.Engine) func(context.Context, uint64, []ir.Row) (*engine.Report, error) { return e.ReconcileGraphs },
	}
)

// ReconcileOptions holds flags for the triggers and graphs commands.
type ReconcileOptions struct {
	*RootOptions
	Database string

	// RunIDs overrides the run id generator (for testing).
	RunIDs engine.RunIDGenerator
}

// ReportView renders an evaluation report.
type ReportView struct {
	*engine.Report
}

func (v ReportView) String() string {
	r := v.Report
	var b strings.Builder
	mark := okMark
	if len(r.Problems) > 0 {
		mark = failMark
	}
	fmt.Fprintf(&b, "%s %s prototype %d: %d rows, %d created, %d updated (sub-records: %d created, %d updated, %d deleted)",
		mark, kindWord(string(r.Kind)), r.PrototypeID, r.Rows, r.Created, r.Updated, r.SubCreated, r.SubUpdated, r.SubDeleted)
	for _, p := range r.Problems {
		fmt.Fprintf(&b, "\n  %s: %s", warnWord, p.Message)
	}
	return b.String()
}

// NewReconcileCommand creates the triggers or graphs command.
func NewReconcileCommand(rootOpts *RootOptions, k reconcileKind) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   k.command + " <prototype-id> <rows-file>",
		Short: fmt.Sprintf("Reconcile a %s prototype with discovered rows", k.kind),
		Long: fmt.Sprintf(`Reconcile the %[1]ss materialized from a %[1]s prototype with the rows
of a discovery run. The rows file is YAML or JSON (see "lldsync validate").

Exit codes:
  0 - Evaluation committed without problems
  1 - Evaluation committed, some rows or %[1]ss reported problems
  2 - Command error (invalid arguments, missing prototype, database error)

Example:
  lldsync %[2]s --db ./lldsync.db 500 ./rows.yaml`, k.kind, k.command),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, k, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path or DSN (defaults to the configured DSN)")

	return cmd
}

func runReconcile(opts *ReconcileOptions, k reconcileKind, idArg, rowsFile string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	prototypeID, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil || prototypeID == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, fmt.Sprintf("invalid prototype id %q", idArg), nil)
	}

	loader, err := rows.NewLoader()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRowsInvalid, "failed to load row schema", err)
	}
	discovered, err := loader.LoadFile(rowsFile)
	if err != nil {
		var ve *rows.ValidationError
		if errors.As(err, &ve) {
			if outErr := formatter.Error(ErrCodeRowsInvalid, "invalid rows file", ve.Details); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "invalid rows file", err)
		}
		return formatter.Fail(ExitCommandError, ErrCodeRowsInvalid, "failed to read rows file", err)
	}
	formatter.VerboseLog("Loaded %d row(s) from %s", len(discovered), rowsFile)

	st, _, err := opts.openStore(ctx, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	collector := metrics.New()
	engineOpts := []engine.EngineOption{
		engine.WithLogger(opts.logger()),
		engine.WithRecorder(collector),
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(st, engineOpts...)

	report, evalErr := k.run(eng)(ctx, prototypeID, discovered)
	if err := opts.writeMetrics(collector); err != nil {
		opts.logger().Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
	}

	if evalErr != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluation, fmt.Sprintf("%s evaluation failed", k.kind), evalErr)
	}

	view := ReportView{Report: report}
	if len(report.Problems) == 0 {
		return formatter.Success(view)
	}

	msg := fmt.Sprintf("%d problem(s) reported", len(report.Problems))
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   report,
			Error:  &CLIError{Code: ErrCodeProblems, Message: msg},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, view)
	}
	return NewExitError(ExitFailure, msg)
}
