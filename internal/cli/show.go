package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chronotree/internal/ir"
)

// ShowResult is the data reported by the show command.
type ShowResult struct {
	Replica  string    `json:"replica"`
	Head     ir.Hash   `json:"head"`
	Frontier []ir.Hash `json:"frontier"`
	Known    int       `json:"known"`
	Dump     string    `json:"dump,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the replica's head, frontier and known count",
		Long: `Show the replica's head, frontier and known count.

With --dump, also print every known record.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			rep := s.replica
			result := ShowResult{
				Replica:  rep.Name(),
				Head:     rep.Head(),
				Frontier: rep.Frontier(),
				Known:    len(rep.Known()),
			}
			if dump {
				result.Dump = rep.Dump()
			}

			var b strings.Builder
			fmt.Fprintf(&b, "replica:  %s\n", result.Replica)
			fmt.Fprintf(&b, "head:     %s\n", result.Head)
			fmt.Fprintf(&b, "known:    %d\n", result.Known)
			fmt.Fprintf(&b, "frontier: %d tip(s)", len(result.Frontier))
			for _, h := range result.Frontier {
				fmt.Fprintf(&b, "\n  %s", h)
			}
			if dump {
				fmt.Fprintf(&b, "\n\n%s", result.Dump)
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Success(result, b.String())
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print every known record")
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <hash>",
		Short: "Print a record the replica knows",
		Long: `Print a record the replica knows.

Only records in the replica's known set are visible; merge first to see
records from another replica.

Exit codes:
  0 - Record printed
  1 - NOT_FOUND
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := newFormatter(rootOpts, cmd.OutOrStdout())

			s, err := openSession(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.replica.Get(ir.Hash(args[0]))
			if err != nil {
				return replicaError(out, "get", err)
			}

			view := recordView(rec)
			text, err := ir.MarshalCanonical(view)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to render record", err)
			}
			return out.Success(view, string(text))
		},
	}
	return cmd
}

// NewHeadsCommand creates the heads command.
func NewHeadsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "heads",
		Short:         "List the recorded head of every named replica",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, closeFn, err := openBackend(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to open %s backend", rootOpts.Backend), err)
			}
			defer closeFn()

			heads, err := st.Heads(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list heads", err)
			}

			var b strings.Builder
			for i, name := range slices.Sorted(maps.Keys(heads)) {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "%s\t%s", name, heads[name])
			}
			if len(heads) == 0 {
				b.WriteString("No replicas recorded.")
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Success(heads, b.String())
		},
	}
	return cmd
}
