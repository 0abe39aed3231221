package chrono

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/chronotree/internal/ir"
)

// Frontier is a canonical set of causal tips: duplicate-free and sorted by
// hash. Two replicas holding the same tips hold byte-identical frontiers.
//
// Frontier values are never mutated in place; every operation returns a new
// Frontier.
type Frontier []ir.Hash

// NewFrontier builds a canonical frontier from arbitrary hashes.
// The NoHash sentinel is dropped.
func NewFrontier(hashes ...ir.Hash) Frontier {
	set := mapset.NewThreadUnsafeSet[ir.Hash]()
	for _, h := range hashes {
		if !h.IsZero() {
			set.Add(h)
		}
	}
	return fromSet(set)
}

func fromSet(set mapset.Set[ir.Hash]) Frontier {
	f := Frontier(set.ToSlice())
	slices.Sort(f)
	if f == nil {
		f = Frontier{}
	}
	return f
}

func (f Frontier) set() mapset.Set[ir.Hash] {
	return mapset.NewThreadUnsafeSet[ir.Hash](f...)
}

// Contains reports whether h is one of the tips.
func (f Frontier) Contains(h ir.Hash) bool {
	_, ok := slices.BinarySearch(f, h)
	return ok
}

// Equal reports whether both frontiers hold the same tips.
func (f Frontier) Equal(other Frontier) bool {
	return slices.Equal(f, other)
}

// Union returns the canonical union of both frontiers. The result is not
// reduced: it may contain tips that are ancestors of other tips.
func (f Frontier) Union(other Frontier) Frontier {
	return fromSet(f.set().Union(other.set()))
}

// With returns the frontier with h added.
func (f Frontier) With(h ir.Hash) Frontier {
	return NewFrontier(append(f.Slice(), h)...)
}

// Without returns the frontier with h removed (if present).
func (f Frontier) Without(h ir.Hash) Frontier {
	set := f.set()
	set.Remove(h)
	return fromSet(set)
}

// Slice returns a copy of the tips.
func (f Frontier) Slice() []ir.Hash {
	out := make([]ir.Hash, len(f))
	copy(out, f)
	return out
}
