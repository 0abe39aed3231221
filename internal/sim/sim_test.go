package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/ir"
	"github.com/roach88/chronotree/internal/store/badgerstore"
	"github.com/roach88/chronotree/internal/store/memstore"
)

func TestRun_MergeEveryRound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeMergeEveryRound

	res, err := Run(context.Background(), memstore.New(), cfg)
	require.NoError(t, err)
	require.NoError(t, res.Divergence)
	assert.True(t, res.Converged)
	assert.Equal(t, 300, res.Adds)
	assert.Len(t, res.Replicas, 3)
}

func TestRun_Random(t *testing.T) {
	res, err := Run(context.Background(), memstore.New(), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, res.Divergence)
	assert.True(t, res.Converged)
	assert.Positive(t, res.Adds)
	assert.Positive(t, res.Merges)
}

func TestRun_ManySeeds(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		cfg := Config{Seed: seed, Rounds: 30, Replicas: 4, Mode: ModeRandom}
		res, err := Run(context.Background(), memstore.New(), cfg)
		require.NoError(t, err, "seed %d", seed)
		assert.True(t, res.Converged, "seed %d: %v", seed, res.Divergence)
	}
}

func TestRun_Deterministic(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Seed: 42, Rounds: 40, Replicas: 3, Mode: ModeRandom}

	a, err := Run(ctx, memstore.New(), cfg)
	require.NoError(t, err)
	b, err := Run(ctx, memstore.New(), cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Replicas[0].Head(), b.Replicas[0].Head())
	assert.Equal(t, a.Adds, b.Adds)
	assert.Equal(t, a.Merges, b.Merges)
}

func TestRun_FinalStateContainsEveryAdd(t *testing.T) {
	cfg := Config{Seed: 7, Rounds: 20, Replicas: 3, Mode: ModeMergeEveryRound}
	st := memstore.New()

	res, err := Run(context.Background(), st, cfg)
	require.NoError(t, err)
	require.True(t, res.Converged)

	// Every content record in the store is known to every replica: the root
	// plus each distinct add. Only aggregates live outside known.
	content := len(contentHashes(res.Replicas[0]))
	assert.LessOrEqual(t, content, 1+res.Adds)
	for _, rep := range res.Replicas {
		assert.Len(t, contentHashes(rep), content)
	}
}

func TestRun_BadgerStore(t *testing.T) {
	st, err := badgerstore.Open(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	defer st.Close()

	cfg := Config{Seed: 3, Rounds: 25, Replicas: 3, Mode: ModeRandom}
	res, err := Run(context.Background(), st, cfg)
	require.NoError(t, err)
	assert.True(t, res.Converged)
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, memstore.New(), Config{Replicas: 1, Rounds: 1})
	assert.Error(t, err)

	_, err = Run(ctx, memstore.New(), Config{Replicas: 2, Rounds: -1})
	assert.Error(t, err)

	_, err = Run(ctx, memstore.New(), Config{Replicas: 2, Rounds: 1, Mode: Mode(9)})
	assert.Error(t, err)
}

func TestRun_ZeroRounds(t *testing.T) {
	res, err := Run(context.Background(), memstore.New(), Config{Replicas: 2})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, chrono.Frontier{res.Root}, res.Replicas[0].Frontier())
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeMergeEveryRound, ModeRandom} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("sometimes")
	assert.Error(t, err)
}

func TestDiverged(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	a, err := chrono.New(ctx, st, chrono.WithName("a"))
	require.NoError(t, err)
	b, err := chrono.New(ctx, st, chrono.WithName("b"))
	require.NoError(t, err)

	assert.NoError(t, Diverged([]*chrono.Replica{a, b}))

	_, err = a.Add(ctx, ir.NewContent(ir.NoHash, ir.String(RootPayload)))
	require.NoError(t, err)
	assert.Error(t, Diverged([]*chrono.Replica{a, b}))
}
