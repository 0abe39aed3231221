package badgerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chronotree/internal/ir"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestSaveLoad_Content(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	root, err := s.Save(ctx, ir.NewContent(ir.NoHash, ir.String("-1")))
	require.NoError(t, err)

	payload := ir.Object{"n": ir.Int(-7), "ok": ir.Bool(false)}
	rec := ir.NewContent(root, payload)
	h, err := s.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, ir.MustRecordHash(rec), h)

	got, err := s.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, h, got.Hash)
	assert.Equal(t, root, got.Parent)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, []ir.Hash{}, got.Predecessors)
	assert.Equal(t, h, ir.MustRecordHash(got))
}

func TestSaveLoad_Aggregate(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	a, err := s.Save(ctx, ir.NewContent(ir.NoHash, ir.String("a")))
	require.NoError(t, err)
	h, err := s.Save(ctx, ir.NewAggregate([]ir.Hash{a}))
	require.NoError(t, err)

	got, err := s.Load(ctx, h)
	require.NoError(t, err)
	assert.True(t, got.IsAggregate())
	assert.Nil(t, got.Payload)
	assert.Equal(t, []ir.Hash{a}, got.Predecessors)
}

func TestSave_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	rec := ir.NewContent(ir.NoHash, ir.String("same"))
	h1, err := s.Save(ctx, rec)
	require.NoError(t, err)
	h2, err := s.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoad_NotFound(t *testing.T) {
	s := openInMemory(t)
	_, err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrRecordNotFound))
}

func TestHeads(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	h, err := s.Head(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, ir.NoHash, h)

	require.NoError(t, s.SetHead(ctx, "x", "h1"))
	require.NoError(t, s.SetHead(ctx, "y", "h2"))

	h, err = s.Head(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, ir.Hash("h1"), h)

	heads, err := s.Heads(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]ir.Hash{"x": "h1", "y": "h2"}, heads)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := Open(Config{Path: dir})
	require.NoError(t, err)
	h, err := s1.Save(ctx, ir.NewContent(ir.NoHash, ir.String("root")))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.Load(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, ir.String("root"), rec.Payload)
}
