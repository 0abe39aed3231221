package chrono

import (
	"fmt"
	"maps"
	"slices"
)

// Compare returns nil if both replicas hold identical head, frontier and
// known sets, and otherwise an error describing the first difference.
// Names are diagnostic and are not compared.
//
// Known records are compared by hash only; content addressing makes equal
// hashes equal records.
func Compare(a, b *Replica) error {
	if a.head != b.head {
		return fmt.Errorf("head differs: %s=%s, %s=%s", a.name, a.head.Short(), b.name, b.head.Short())
	}
	if !a.frontier.Equal(b.frontier) {
		return fmt.Errorf("frontier differs: %s=%v, %s=%v", a.name, a.frontier, b.name, b.frontier)
	}

	ak := slices.Sorted(maps.Keys(a.known))
	bk := slices.Sorted(maps.Keys(b.known))
	if !slices.Equal(ak, bk) {
		return fmt.Errorf("known differs: %s has %d records, %s has %d", a.name, len(ak), b.name, len(bk))
	}
	return nil
}
