// Package sim drives replicas through seeded randomized add and merge
// rounds over the public replica API and checks that they converge.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/ir"
)

// RootPayload is the payload of the shared root every replica starts from.
const RootPayload = "-1"

// Mode selects how rounds schedule merges.
type Mode int

const (
	// ModeMergeEveryRound adds one record per replica, then merges every
	// ordered pair. Replicas must be equal after each round.
	ModeMergeEveryRound Mode = iota

	// ModeRandom adds with probability 1/2 and merges each ordered pair with
	// probability 1/4. Replicas are fully merged once after the last round.
	ModeRandom
)

// String returns the mode name used on the command line.
func (m Mode) String() string {
	switch m {
	case ModeMergeEveryRound:
		return "every-round"
	case ModeRandom:
		return "random"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode parses a mode name produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "every-round":
		return ModeMergeEveryRound, nil
	case "random":
		return ModeRandom, nil
	default:
		return 0, fmt.Errorf("unknown simulation mode %q (want every-round or random)", s)
	}
}

// Config configures a simulation run.
type Config struct {
	Seed     uint64
	Rounds   int
	Replicas int
	Mode     Mode

	// Logger receives per-round progress. Nil discards.
	Logger *slog.Logger
}

// DefaultConfig returns the standard three-replica, hundred-round run.
func DefaultConfig() Config {
	return Config{
		Seed:     1,
		Rounds:   100,
		Replicas: 3,
		Mode:     ModeRandom,
	}
}

// Result summarizes a completed run.
type Result struct {
	Root     ir.Hash
	Replicas []*chrono.Replica
	Adds     int
	Merges   int

	// Converged is true if every replica ended with identical head,
	// frontier and known sets.
	Converged bool

	// Divergence describes the first difference found when Converged is
	// false. In ModeMergeEveryRound, Round is the round it was found in.
	Divergence error
	Round      int
}

type runner struct {
	cfg      Config
	rng      *rand.Rand
	logger   *slog.Logger
	replicas []*chrono.Replica
	result   *Result
}

// Run executes the simulation against st.
//
// Errors from the replicas themselves (store failures, rejected adds) abort
// the run. Divergence is not an error; it is reported on the Result.
func Run(ctx context.Context, st chrono.Store, cfg Config) (*Result, error) {
	if cfg.Replicas < 2 {
		return nil, fmt.Errorf("simulation needs at least 2 replicas, got %d", cfg.Replicas)
	}
	if cfg.Rounds < 0 {
		return nil, fmt.Errorf("rounds must be non-negative, got %d", cfg.Rounds)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	root, err := st.Save(ctx, ir.NewContent(ir.NoHash, ir.String(RootPayload)))
	if err != nil {
		return nil, fmt.Errorf("save root: %w", err)
	}

	r := &runner{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		logger: logger,
		result: &Result{Root: root},
	}
	for i := 0; i < cfg.Replicas; i++ {
		rep, err := chrono.New(ctx, st,
			chrono.WithInitial(root),
			chrono.WithName(replicaName(i)),
			chrono.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create replica %s: %w", replicaName(i), err)
		}
		r.replicas = append(r.replicas, rep)
	}
	r.result.Replicas = r.replicas

	logger.Info("simulation started",
		"seed", cfg.Seed,
		"rounds", cfg.Rounds,
		"replicas", cfg.Replicas,
		"mode", cfg.Mode.String(),
	)

	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch cfg.Mode {
		case ModeMergeEveryRound:
			if err := r.mergeEveryRound(ctx, round); err != nil {
				return nil, err
			}
			if err := Diverged(r.replicas); err != nil {
				r.result.Divergence = err
				r.result.Round = round
				logger.Warn("replicas diverged", "round", round, "error", err)
				return r.result, nil
			}
		case ModeRandom:
			if err := r.randomRound(ctx, round); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown simulation mode %v", cfg.Mode)
		}
	}

	if err := r.mergeAll(ctx); err != nil {
		return nil, err
	}
	if err := Diverged(r.replicas); err != nil {
		r.result.Divergence = err
		r.result.Round = cfg.Rounds
		logger.Warn("replicas diverged after final merge", "error", err)
		return r.result, nil
	}

	r.result.Converged = true
	logger.Info("simulation converged",
		"head", r.replicas[0].Head().Short(),
		"known", len(r.replicas[0].Known()),
		"adds", r.result.Adds,
		"merges", r.result.Merges,
	)
	return r.result, nil
}

func (r *runner) mergeEveryRound(ctx context.Context, round int) error {
	for _, rep := range r.replicas {
		if err := r.addRandom(ctx, rep, round); err != nil {
			return err
		}
	}
	return r.mergeAll(ctx)
}

func (r *runner) randomRound(ctx context.Context, round int) error {
	for _, rep := range r.replicas {
		if r.rng.IntN(2) == 0 {
			if err := r.addRandom(ctx, rep, round); err != nil {
				return err
			}
		}
	}
	for _, pair := range orderedPairs(len(r.replicas)) {
		if r.rng.IntN(4) == 0 {
			if err := r.merge(ctx, pair[0], pair[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

// addRandom appends a child of a uniformly chosen known content record.
func (r *runner) addRandom(ctx context.Context, rep *chrono.Replica, round int) error {
	candidates := contentHashes(rep)
	parent := candidates[r.rng.IntN(len(candidates))]

	h, err := rep.Add(ctx, ir.NewContent(parent, ir.String(strconv.Itoa(round))))
	if err != nil {
		return fmt.Errorf("round %d: %s add: %w", round, rep.Name(), err)
	}
	r.result.Adds++
	r.logger.Debug("add", "round", round, "replica", rep.Name(), "hash", h.Short())
	return nil
}

func (r *runner) merge(ctx context.Context, dst, src int) error {
	to, from := r.replicas[dst], r.replicas[src]
	if _, err := to.Merge(ctx, from.Head()); err != nil {
		return fmt.Errorf("merge %s -> %s: %w", from.Name(), to.Name(), err)
	}
	r.result.Merges++
	return nil
}

// mergeAll merges every replica's head into every other replica.
func (r *runner) mergeAll(ctx context.Context) error {
	for _, pair := range orderedPairs(len(r.replicas)) {
		if err := r.merge(ctx, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// Diverged returns nil if all replicas are structurally equal, otherwise the
// first difference between a pair.
func Diverged(replicas []*chrono.Replica) error {
	for i := 0; i+1 < len(replicas); i++ {
		if err := chrono.Compare(replicas[i], replicas[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// contentHashes returns the replica's known content hashes in sorted order so
// that random picks depend only on the seed.
func contentHashes(rep *chrono.Replica) []ir.Hash {
	var out []ir.Hash
	for h, rec := range rep.Known() {
		if rec.IsContent() {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// orderedPairs lists every (i, j) with i != j, row by row.
func orderedPairs(n int) [][2]int {
	pairs := make([][2]int, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

func replicaName(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "R" + strconv.Itoa(i)
}
