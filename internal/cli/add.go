package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chronotree/internal/ir"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Parent  string
	Payload string
}

// AddResult is the data reported by the add command.
type AddResult struct {
	Hash    ir.Hash `json:"hash"`
	Head    ir.Hash `json:"head"`
	Applied bool    `json:"applied"`
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a content record to the replica",
		Long: `Append a content record to the replica and print its hash.

The first record of an empty replica needs no parent. Every later record
must name a content record the replica already knows.

Exit codes:
  0 - Record added (or already known)
  1 - Rejected (INVALID_PARENT)
  2 - Command error (bad payload, unreadable store)

Examples:
  chronotree add --payload '"hello"'
  chronotree add --parent 3f2a... --payload '{"text":"reply","n":2}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "hash of the parent content record")
	cmd.Flags().StringVar(&opts.Payload, "payload", "{}", "record payload as JSON (no floats or nulls)")

	return cmd
}

func runAdd(cmd *cobra.Command, opts *AddOptions) error {
	ctx := cmd.Context()
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	payload, err := ir.ParseValue([]byte(opts.Payload))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --payload", err)
	}

	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	before := s.replica.Head()
	h, err := s.replica.Add(ctx, ir.NewContent(ir.Hash(opts.Parent), payload))
	if err != nil {
		return replicaError(out, "add", err)
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	result := AddResult{Hash: h, Head: s.replica.Head(), Applied: s.replica.Head() != before}
	text := string(h)
	if !result.Applied {
		text = fmt.Sprintf("%s (already known)", h)
	}
	return out.Success(result, text)
}
