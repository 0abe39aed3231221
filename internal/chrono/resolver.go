package chrono

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/chronotree/internal/ir"
)

// resolver answers ancestry questions for one replica operation.
//
// Lookups go known -> staged -> store. Content records loaded from the store
// are staged and only become part of known when the operation commits.
// Aggregates loaded from the store are returned but never staged.
//
// INVARIANT: known is closed under Parent; if a content hash is in known, so
// is its whole ancestry. Walks stop early on that basis.
type resolver struct {
	store  Store
	known  map[ir.Hash]ir.Record
	staged map[ir.Hash]ir.Record
	loads  int
}

func newResolver(st Store, known map[ir.Hash]ir.Record) *resolver {
	return &resolver{
		store:  st,
		known:  known,
		staged: make(map[ir.Hash]ir.Record),
	}
}

// lookup resolves any record by hash.
func (rs *resolver) lookup(ctx context.Context, h ir.Hash) (ir.Record, error) {
	if h.IsZero() {
		return ir.Record{}, newMissingNodeError(h, nil)
	}
	if rec, ok := rs.known[h]; ok {
		return rec, nil
	}
	if rec, ok := rs.staged[h]; ok {
		return rec, nil
	}

	rec, err := rs.store.Load(ctx, h)
	rs.loads++
	if err != nil {
		if errors.Is(err, ir.ErrRecordNotFound) {
			return ir.Record{}, newMissingNodeError(h, err)
		}
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), err)
	}
	if rec.Hash != h {
		return ir.Record{}, newMalformedRecordError(h, fmt.Sprintf("store returned record %s", rec.Hash.Short()))
	}
	if err := rec.Validate(); err != nil {
		return ir.Record{}, newMalformedRecordError(h, err.Error())
	}

	if rec.IsContent() {
		rs.staged[h] = rec
	}
	return rec, nil
}

// content resolves h and requires it to be a content record.
func (rs *resolver) content(ctx context.Context, h ir.Hash) (ir.Record, error) {
	rec, err := rs.lookup(ctx, h)
	if err != nil {
		return ir.Record{}, err
	}
	if !rec.IsContent() {
		return ir.Record{}, newMalformedRecordError(h, "aggregate used as a causal predecessor")
	}
	return rec, nil
}

// tips returns the candidate frontier a hash denotes: an aggregate's
// predecessors, or the content hash itself.
func (rs *resolver) tips(ctx context.Context, h ir.Hash) (Frontier, error) {
	rec, err := rs.lookup(ctx, h)
	if err != nil {
		return nil, err
	}
	if rec.IsAggregate() {
		return NewFrontier(rec.Predecessors...), nil
	}
	return NewFrontier(h), nil
}

// pullAncestry resolves h and every ancestor on its parent chain, failing with
// MISSING_NODE if any link cannot be loaded.
func (rs *resolver) pullAncestry(ctx context.Context, h ir.Hash) error {
	for cur := h; !cur.IsZero(); {
		if rec, ok := rs.known[cur]; ok && rec.IsContent() {
			return nil
		}
		rec, err := rs.content(ctx, cur)
		if err != nil {
			return err
		}
		cur = rec.Parent
	}
	return nil
}

// walkAncestors calls visit for each strict ancestor of h, nearest first,
// until visit returns false or the root is passed.
func (rs *resolver) walkAncestors(ctx context.Context, h ir.Hash, visit func(ir.Hash) bool) error {
	rec, err := rs.content(ctx, h)
	if err != nil {
		return err
	}
	for cur := rec.Parent; !cur.IsZero(); {
		if !visit(cur) {
			return nil
		}
		rec, err := rs.content(ctx, cur)
		if err != nil {
			return err
		}
		cur = rec.Parent
	}
	return nil
}

// isAncestor reports whether a is reachable by following b's parent chain.
func (rs *resolver) isAncestor(ctx context.Context, a, b ir.Hash) (bool, error) {
	found := false
	err := rs.walkAncestors(ctx, b, func(h ir.Hash) bool {
		found = h == a
		return !found
	})
	return found, err
}

// reduce returns the maximal elements of candidates: every hash that is an
// ancestor of another candidate is discarded. Each candidate's chain is walked
// at most once; a candidate already known to be dominated is skipped, since
// its ancestors lie on its dominator's chain too.
func (rs *resolver) reduce(ctx context.Context, candidates Frontier) (Frontier, error) {
	dominated := mapset.NewThreadUnsafeSet[ir.Hash]()
	for _, h := range candidates {
		if dominated.Contains(h) {
			continue
		}
		err := rs.walkAncestors(ctx, h, func(a ir.Hash) bool {
			if candidates.Contains(a) {
				dominated.Add(a)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	maximal := make([]ir.Hash, 0, len(candidates))
	for _, h := range candidates {
		if !dominated.Contains(h) {
			maximal = append(maximal, h)
		}
	}
	return NewFrontier(maximal...), nil
}

// commit moves staged content into known.
func (rs *resolver) commit() {
	for h, rec := range rs.staged {
		rs.known[h] = rec
	}
	rs.staged = make(map[ir.Hash]ir.Record)
}
