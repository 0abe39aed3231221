package cli

import (
	"context"
	"fmt"

	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/config"
	"github.com/roach88/chronotree/internal/ir"
	"github.com/roach88/chronotree/internal/store"
	"github.com/roach88/chronotree/internal/store/badgerstore"
	"github.com/roach88/chronotree/internal/store/memstore"
)

// backend is a record store that also remembers named replica heads.
type backend interface {
	chrono.Store
	Head(ctx context.Context, name string) (ir.Hash, error)
	SetHead(ctx context.Context, name string, head ir.Hash) error
	Heads(ctx context.Context) (map[string]ir.Hash, error)
}

// openBackend opens the configured store. The returned close function is
// never nil.
func openBackend(opts *RootOptions) (backend, func() error, error) {
	switch opts.Backend {
	case config.BackendSQLite:
		st, err := store.Open(opts.DB)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendBadger:
		cfg := badgerstore.DefaultConfig(opts.DB)
		cfg.Logger = opts.logger()
		st, err := badgerstore.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendMemory:
		return memstore.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}

// session is one CLI invocation acting as a named replica.
type session struct {
	opts    *RootOptions
	store   backend
	replica *chrono.Replica
	close   func() error
}

// openSession opens the backend and restores the replica from its
// recorded head.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	st, closeFn, err := openBackend(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open %s backend", opts.Backend), err)
	}

	head, err := st.Head(ctx, opts.Replica)
	if err != nil {
		_ = closeFn()
		return nil, WrapExitError(ExitCommandError, "failed to read replica head", err)
	}

	rep, err := chrono.New(ctx, st,
		chrono.WithName(opts.Replica),
		chrono.WithInitial(head),
		chrono.WithLogger(opts.logger()),
	)
	if err != nil {
		_ = closeFn()
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("failed to restore replica %q", opts.Replica), err)
	}

	opts.logger().Debug("session opened",
		"backend", opts.Backend,
		"replica", opts.Replica,
		"head", head.Short(),
	)
	return &session{opts: opts, store: st, replica: rep, close: closeFn}, nil
}

// persist records the replica's current head under its name.
func (s *session) persist(ctx context.Context) error {
	if err := s.store.SetHead(ctx, s.opts.Replica, s.replica.Head()); err != nil {
		return WrapExitError(ExitCommandError, "failed to record replica head", err)
	}
	return nil
}

func (s *session) Close() error {
	return s.close()
}

// replicaError converts a replica error into an ExitError, reporting it
// through the formatter first.
func replicaError(f *OutputFormatter, op string, err error) error {
	code := chrono.CodeOf(err)
	if code == "" {
		return WrapExitError(ExitCommandError, op+" failed", err)
	}
	_ = f.Error(string(code), err.Error(), nil)
	return WrapExitError(ExitFailure, op+" rejected", err)
}

// recordView renders a record for output.
func recordView(rec ir.Record) map[string]any {
	view := map[string]any{
		"hash":         rec.Hash,
		"kind":         rec.Kind,
		"parent":       rec.Parent,
		"predecessors": rec.Predecessors,
	}
	if rec.Payload != nil {
		view["payload"] = rec.Payload
	}
	return view
}
