package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// InitResult is the init command output.
type InitResult struct {
	Database string `json:"database"`
	Driver   string `json:"driver"`
}

func (r InitResult) String() string {
	return fmt.Sprintf("%s Database ready: %s (%s)", okMark, r.Database, r.Driver)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the database",
		Long: `Create the database schema, or migrate an existing database to the
current schema version. Safe to run repeatedly.

Example:
  lldsync init --db ./lldsync.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path or DSN (defaults to the configured DSN)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, dsn, err := opts.openStore(cmd.Context(), opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	return formatter.Success(InitResult{Database: dsn, Driver: st.Dialect().String()})
}
