package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/ir"
	"github.com/roach88/chronotree/internal/store/memstore"
)

// Harness is the scenario execution engine.
type Harness struct {
	store    chrono.Store
	logger   *slog.Logger
	replicas map[string]*chrono.Replica
	result   *Result
}

// Option configures a scenario run.
type Option func(*Harness)

// WithStore runs the scenario against st instead of a fresh in-memory store.
func WithStore(st chrono.Store) Option {
	return func(h *Harness) { h.store = st }
}

// WithLogger routes harness and replica logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory store unless WithStore is given.
// Step failures that carry a replica error code are checked against the
// step's expect clause and recorded on the Result; any other error (a store
// failure) aborts the run.
//
// Execution flow:
// 1. Save the shared root, if any, and create every replica
// 2. Execute steps in order, checking expect clauses
// 3. Evaluate assertions against the final replicas
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		replicas: make(map[string]*chrono.Replica),
		result:   NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		h.store = memstore.New()
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", h.result.Pass,
		"errors", len(h.result.Errors),
	)
	return h.result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	var root ir.Hash
	if scenario.Root != nil {
		payload, err := ir.FromAny(scenario.Root)
		if err != nil {
			return fmt.Errorf("root payload: %w", err)
		}
		root, err = h.store.Save(ctx, ir.NewContent(ir.NoHash, payload))
		if err != nil {
			return fmt.Errorf("save root: %w", err)
		}
		h.result.bind(RootLabel, root)
	}

	for _, name := range scenario.Replicas {
		opts := []chrono.Option{chrono.WithName(name), chrono.WithLogger(h.logger)}
		if !root.IsZero() {
			opts = append(opts, chrono.WithInitial(root))
		}
		rep, err := chrono.New(ctx, h.store, opts...)
		if err != nil {
			return fmt.Errorf("create replica %s: %w", name, err)
		}
		h.replicas[name] = rep
		h.result.Replicas = append(h.result.Replicas, rep)
	}
	return nil
}

// resolve turns a scenario reference into a hash. References are tried as
// record labels, snapshot labels and replica names (current head), in that
// order; anything else is used verbatim as a hash.
func (h *Harness) resolve(ref string) ir.Hash {
	if hash, ok := h.result.labels[ref]; ok {
		return hash
	}
	if hash, ok := h.result.snapshots[ref]; ok {
		return hash
	}
	if rep, ok := h.replicas[ref]; ok {
		return rep.Head()
	}
	return ir.Hash(ref)
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step) error {
	rep := h.replicas[step.Replica]
	sr := StepResult{Index: i, Replica: step.Replica, Op: step.Kind()}
	before := rep.Head()

	var (
		added ir.Hash
		err   error
	)
	switch {
	case step.Add != nil:
		sr.Target = step.Add.Label
		added, err = h.add(ctx, rep, step.Add)
	case step.Merge != "":
		sr.Target = step.Merge
		_, err = rep.Merge(ctx, h.resolve(step.Merge))
	case step.Snapshot != "":
		sr.Target = step.Snapshot
		h.result.snapshots[step.Snapshot] = rep.Head()
	}

	if err != nil {
		code := chrono.CodeOf(err)
		if code == "" {
			return err
		}
		sr.Outcome = string(code)
	} else {
		switch {
		case step.Snapshot != "":
			sr.Outcome = OutcomeSnapshot
		case rep.Head() == before:
			sr.Outcome = OutcomeNoop
		default:
			sr.Outcome = OutcomeApplied
		}
		if step.Add != nil {
			h.result.bind(step.Add.Label, added)
		}
	}
	h.result.Steps = append(h.result.Steps, sr)

	switch {
	case err != nil && step.Expect == "":
		h.result.AddError(fmt.Sprintf("steps[%d]: %s on %s failed: %v", i, sr.Op, step.Replica, err))
	case err == nil && step.Expect != "":
		h.result.AddError(fmt.Sprintf("steps[%d]: %s on %s succeeded, expected %s", i, sr.Op, step.Replica, step.Expect))
	case err != nil && chrono.CodeOf(err) != step.Expect:
		h.result.AddError(fmt.Sprintf("steps[%d]: %s on %s failed with %s, expected %s", i, sr.Op, step.Replica, chrono.CodeOf(err), step.Expect))
	}

	h.logger.Debug("step completed",
		"step", i,
		"replica", step.Replica,
		"op", sr.Op,
		"target", sr.Target,
		"outcome", sr.Outcome,
	)
	return nil
}

func (h *Harness) add(ctx context.Context, rep *chrono.Replica, add *AddStep) (ir.Hash, error) {
	parent := ir.NoHash
	if add.Parent != "" {
		parent = h.resolve(add.Parent)
	}

	var payload ir.Value = ir.String(add.Label)
	if add.Payload != nil {
		v, err := ir.FromAny(add.Payload)
		if err != nil {
			return ir.NoHash, fmt.Errorf("payload for %q: %w", add.Label, err)
		}
		payload = v
	}

	return rep.Add(ctx, ir.NewContent(parent, payload))
}
