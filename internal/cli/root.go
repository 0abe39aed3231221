package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/chronotree/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Backend  string // "sqlite" | "badger" | "memory"
	DB       string
	Replica  string
	LogLevel string

	// Logger is built from the flags before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.Formats

// NewRootCommand creates the root command for the chronotree CLI.
// Flag defaults come from the CHRONOTREE_* environment.
func NewRootCommand() *cobra.Command {
	cfg, cfgErr := config.Load()
	opts := &RootOptions{
		Format:   cfg.Format,
		Backend:  cfg.Backend,
		DB:       cfg.DB,
		Replica:  cfg.Replica,
		LogLevel: cfg.LogLevel,
	}

	cmd := &cobra.Command{
		Use:   "chronotree",
		Short: "chronotree - replicated causal history",
		Long: `A content-addressed causal history that replicas grow independently
and merge into the same state in any order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			merged := config.Config{
				Backend:  opts.Backend,
				DB:       opts.DB,
				Replica:  opts.Replica,
				LogLevel: opts.LogLevel,
				Format:   opts.Format,
			}
			if err := merged.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid flags", err)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts)
			return nil
		},
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", opts.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", opts.Backend, "storage backend (sqlite|badger|memory)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", opts.DB, "database file (sqlite) or directory (badger)")
	cmd.PersistentFlags().StringVar(&opts.Replica, "replica", opts.Replica, "name of the replica to act as")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewMergeCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewHeadsCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// newLogger writes structured logs to w, as JSON when the output format is
// JSON. Verbose forces debug level.
func newLogger(w io.Writer, opts *RootOptions) *slog.Logger {
	level, err := config.ParseLevel(opts.LogLevel)
	if err != nil || opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// logger returns the configured logger, or a discarding one when a
// subcommand runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
