package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Kind     string
}

// PrototypeListing is a prototype with its discovered entities.
type PrototypeListing struct {
	store.PrototypeSummary
	Entities []store.EntitySummary `json:"entities"`
}

// ListResult is the list command output.
type ListResult struct {
	Prototypes []PrototypeListing `json:"prototypes"`
}

func (r ListResult) String() string {
	if len(r.Prototypes) == 0 {
		return "No prototypes found."
	}
	var b strings.Builder
	for i, p := range r.Prototypes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %d %q (%d discovered)", kindWord(string(p.Kind)), p.ID, p.Name, p.Discovered)
		for _, e := range p.Entities {
			fmt.Fprintf(&b, "\n  %d %q", e.ID, e.Name)
			if e.Expression != "" {
				fmt.Fprintf(&b, " %s", e.Expression)
			}
		}
	}
	return b.String()
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prototypes and their discovered entities",
		Long: `List trigger and graph prototypes with the entities materialized from them.

Example:
  lldsync list --db ./lldsync.db
  lldsync list --db ./lldsync.db --kind graph --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path or DSN (defaults to the configured DSN)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list prototypes of this kind (trigger|graph)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	var kinds []ir.Kind
	switch ir.Kind(opts.Kind) {
	case "":
		kinds = []ir.Kind{ir.KindTrigger, ir.KindGraph}
	case ir.KindTrigger, ir.KindGraph:
		kinds = []ir.Kind{ir.Kind(opts.Kind)}
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgs,
			fmt.Sprintf("invalid kind %q: must be trigger or graph", opts.Kind), nil)
	}

	st, _, err := opts.openStore(ctx, opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	result := ListResult{Prototypes: []PrototypeListing{}}
	for _, kind := range kinds {
		protos, err := st.ListPrototypes(ctx, kind)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list prototypes", err)
		}
		for _, p := range protos {
			entities, err := st.ListDiscovered(ctx, kind, p.ID)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeDatabase, "failed to list discovered entities", err)
			}
			result.Prototypes = append(result.Prototypes, PrototypeListing{PrototypeSummary: p, Entities: entities})
		}
	}

	return formatter.Success(result)
}
