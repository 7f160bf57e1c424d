package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/lldsync/internal/rows"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	File   string   `json:"file"`
	Rows   int      `json:"rows"`
	Errors []string `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	return fmt.Sprintf("%s %s: %d row(s) valid", okMark, r.File, r.Rows)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rows-file>",
		Short: "Validate a discovered rows file",
		Long: `Validate a rows file against the row schema without touching a database.

A rows file is YAML or JSON:

  rows:
    - macros:
        CPUNAME: cpu0
      links:
        - {prototype: 1000, item: 100}

Macro names are written in full ({#CPUNAME}) or bare (CPUNAME).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loader, err := rows.NewLoader()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRowsInvalid, "failed to load row schema", err)
	}

	discovered, err := loader.LoadFile(path)
	if err != nil {
		var ve *rows.ValidationError
		if !errors.As(err, &ve) {
			return formatter.Fail(ExitCommandError, ErrCodeRowsInvalid, "failed to read rows file", err)
		}
		return outputValidateErrors(formatter, path, ve.Details)
	}

	formatter.VerboseLog("Validated %d row(s) in %s", len(discovered), path)
	return formatter.Success(ValidationResult{Valid: true, File: path, Rows: len(discovered)})
}

func outputValidateErrors(formatter *OutputFormatter, path string, details []string) error {
	msg := fmt.Sprintf("%s: %d validation error(s)", path, len(details))
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, File: path, Errors: details},
			Error:  &CLIError{Code: ErrCodeRowsInvalid, Message: msg},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "%s %s\n", failMark, msg)
		for _, d := range details {
			fmt.Fprintf(formatter.Writer, "  %s\n", d)
		}
	}
	return NewExitError(ExitFailure, msg)
}
