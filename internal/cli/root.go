package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/lldsync/internal/config"
	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/metrics"
	"github.com/roach88/lldsync/internal/store"
)

// RootOptions holds global flags for all commands, and the configuration
// and logger built from them before a command runs.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	MetricsFile string

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lldsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lldsync",
		Short: "lldsync - low-level discovery reconciliation",
		Long: `Materialize trigger and graph prototypes into discovered triggers and graphs.

Each evaluation reconciles one prototype against a list of discovered rows:
existing entities are matched and updated in place, missing ones created,
and the whole batch is written in one transaction.`,
		Version:       ir.EngineVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts, kindTriggers))
	cmd.AddCommand(NewReconcileCommand(opts, kindGraphs))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup validates global flags, loads the configuration and installs the
// logger. Flags override configuration values.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	o.Config = cfg

	level, err := cfg.LogLevel()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if o.MetricsFile == "" {
		o.MetricsFile = cfg.Metrics.Textfile
	}
	return nil
}

// formatter returns an output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// config returns the loaded configuration, loading it on first use when
// the command runs without the root command.
func (o *RootOptions) config() (*config.Config, error) {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		o.Config = cfg
	}
	return o.Config, nil
}

// openStore opens the configured database and returns it with the DSN
// used. A non-empty db overrides the configured DSN.
func (o *RootOptions) openStore(ctx context.Context, db string) (*store.Store, string, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, "", err
	}
	dsn := cfg.Database.DSN
	if db != "" {
		dsn = db
	}
	o.logger().Debug("opening database", "driver", cfg.Database.Driver, "dsn", dsn)
	st, err := store.OpenDriver(ctx, cfg.Database.Driver, dsn, store.WithBatchSize(cfg.Engine.BatchSize))
	if err != nil {
		return nil, dsn, err
	}
	return st, dsn, nil
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// writeMetrics exports the collector when a metrics file is configured.
func (o *RootOptions) writeMetrics(c *metrics.Collector) error {
	if o.MetricsFile == "" {
		return nil
	}
	if err := c.WriteTextfile(o.MetricsFile); err != nil {
		return err
	}
	o.logger().Debug("metrics written", "path", o.MetricsFile)
	return nil
}
