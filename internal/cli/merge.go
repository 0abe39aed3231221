package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/chronotree/internal/ir"
)

// MergeResult is the data reported by the merge command.
type MergeResult struct {
	Head     ir.Hash   `json:"head"`
	Frontier []ir.Hash `json:"frontier"`
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <hash>...",
		Short: "Merge remote heads or records into the replica",
		Long: `Merge one or more hashes into the replica and print the new head.

A hash may be another replica's head aggregate or any content record in the
store. Hashes are merged left to right; the first failure stops the command
and leaves the replica at the last successful merge.

Exit codes:
  0 - Merged
  1 - Rejected (MISSING_NODE, MALFORMED_RECORD)
  2 - Command error

Examples:
  chronotree merge "$(chronotree --replica laptop show --format json | jq -r .data.head)"
  chronotree --replica phone merge 9c1e... 77ab...`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runMerge(cmd *cobra.Command, opts *RootOptions, args []string) error {
	ctx := cmd.Context()
	out := newFormatter(opts, cmd.OutOrStdout())

	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, arg := range args {
		if _, err := s.replica.Merge(ctx, ir.Hash(arg)); err != nil {
			if perr := s.persist(ctx); perr != nil {
				return perr
			}
			return replicaError(out, "merge", err)
		}
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	head := s.replica.Head()
	return out.Success(MergeResult{Head: head, Frontier: s.replica.Frontier()}, string(head))
}
