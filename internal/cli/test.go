package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/lldsync/internal/harness"
	"github.com/roach88/lldsync/internal/metrics"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run reconciliation scenarios",
		Long: `Run the YAML scenarios of a directory, each against a fresh in-memory
database, and compare their statement logs with the golden files in
<scenarios-dir>/golden when present.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  lldsync test ./scenarios
  lldsync test ./scenarios --filter "cpu_*"
  lldsync test ./scenarios --update
  lldsync test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs, fmt.Sprintf("scenarios directory not found: %s", dir), nil)
	}

	scenarios, err := harness.LoadDir(dir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to load scenarios", err)
	}

	collector := metrics.New()
	results, err := harness.RunDir(cmd.Context(), scenarios, dir, opts.Update, harness.WithRecorder(collector))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenario, "failed to run scenarios", err)
	}
	if err := opts.writeMetrics(collector); err != nil {
		opts.logger().Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(results)), Total: len(results)}
	for i, r := range results {
		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   scenarios[i].Name,
			Pass:   r.Pass,
			Errors: r.Errors,
		})
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.JSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result, opts.Update)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeScenario,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(formatter *OutputFormatter, result TestResult, updated bool) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, s := range result.Scenarios {
		if s.Pass {
			suffix := ""
			if updated {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "%s %s%s\n", okMark, s.Name, suffix)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", failMark, s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintf(w, "%s All scenarios passed\n", okMark)
	return nil
}
