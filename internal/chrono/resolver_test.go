package chrono

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chronotree/internal/ir"
	"github.com/roach88/chronotree/internal/store/memstore"
)

// chain saves root -> a -> b and a sibling c under root.
func chain(t *testing.T, st Store) (root, a, b, c ir.Hash) {
	t.Helper()
	ctx := context.Background()
	save := func(parent ir.Hash, p string) ir.Hash {
		h, err := st.Save(ctx, ir.NewContent(parent, ir.String(p)))
		require.NoError(t, err)
		return h
	}
	root = save(ir.NoHash, "-1")
	a = save(root, "a")
	b = save(a, "b")
	c = save(root, "c")
	return root, a, b, c
}

func TestResolver_Reduce(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	root, a, b, c := chain(t, st)

	tests := []struct {
		name       string
		candidates Frontier
		want       Frontier
	}{
		{"empty", NewFrontier(), NewFrontier()},
		{"single", NewFrontier(a), NewFrontier(a)},
		{"ancestor dropped", NewFrontier(root, a, b), NewFrontier(b)},
		{"siblings kept", NewFrontier(b, c), NewFrontier(b, c)},
		{"mixed", NewFrontier(root, a, b, c), NewFrontier(b, c)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newResolver(st, map[ir.Hash]ir.Record{})
			got, err := rs.reduce(ctx, tt.candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_StagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	root, a, b, _ := chain(t, st)

	known := map[ir.Hash]ir.Record{}
	rs := newResolver(st, known)
	require.NoError(t, rs.pullAncestry(ctx, b))

	assert.Empty(t, known)
	assert.Len(t, rs.staged, 3)
	assert.Equal(t, 3, rs.loads)

	rs.commit()
	assert.Contains(t, known, root)
	assert.Contains(t, known, a)
	assert.Contains(t, known, b)
	assert.Empty(t, rs.staged)
}

func TestResolver_PullStopsAtKnown(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	_, a, b, _ := chain(t, st)

	seed := newResolver(st, map[ir.Hash]ir.Record{})
	require.NoError(t, seed.pullAncestry(ctx, a))
	seed.commit()

	rs := newResolver(st, seed.known)
	require.NoError(t, rs.pullAncestry(ctx, b))
	assert.Equal(t, 1, rs.loads)
}

func TestResolver_TipsOfAggregate(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	_, _, b, c := chain(t, st)

	agg, err := buildAggregate(ctx, st, NewFrontier(b, c))
	require.NoError(t, err)

	rs := newResolver(st, map[ir.Hash]ir.Record{})
	tips, err := rs.tips(ctx, agg.Hash)
	require.NoError(t, err)
	assert.Equal(t, NewFrontier(b, c), tips)
	assert.NotContains(t, rs.staged, agg.Hash)

	tips, err = rs.tips(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, Frontier{b}, tips)
}

func TestResolver_NoHashIsMissing(t *testing.T) {
	rs := newResolver(memstore.New(), map[ir.Hash]ir.Record{})
	_, err := rs.lookup(context.Background(), ir.NoHash)
	assert.True(t, IsMissingNode(err))
}
