package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/chronotree/internal/ir"
)

// ErrInjected is returned by FaultyStore for injected I/O failures.
var ErrInjected = errors.New("injected store fault")

// RecordStore is the record persistence contract FaultyStore wraps.
// It mirrors chrono.Store without importing it.
type RecordStore interface {
	Save(ctx context.Context, rec ir.Record) (ir.Hash, error)
	Load(ctx context.Context, h ir.Hash) (ir.Record, error)
}

// FaultyStore wraps a RecordStore and injects failures for tests.
//
// Hidden hashes load as ir.ErrRecordNotFound, which replicas surface as
// MISSING_NODE. Broken hashes load as ErrInjected. Saves can be cut off after
// a fixed number of successful calls.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FaultyStore struct {
	inner RecordStore

	mu         sync.Mutex
	hidden     map[ir.Hash]bool
	broken     map[ir.Hash]bool
	saveBudget int // -1 means unlimited
	loads      []ir.Hash
	saves      int
}

// NewFaultyStore wraps inner with no faults enabled.
func NewFaultyStore(inner RecordStore) *FaultyStore {
	return &FaultyStore{
		inner:      inner,
		hidden:     make(map[ir.Hash]bool),
		broken:     make(map[ir.Hash]bool),
		saveBudget: -1,
	}
}

// Hide makes Load report the given hashes as never saved.
func (f *FaultyStore) Hide(hashes ...ir.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hashes {
		f.hidden[h] = true
	}
}

// Break makes Load of the given hashes fail with ErrInjected.
func (f *FaultyStore) Break(hashes ...ir.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hashes {
		f.broken[h] = true
	}
}

// FailSavesAfter lets n more saves succeed, then fails every later save.
func (f *FaultyStore) FailSavesAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveBudget = n
}

// Heal clears every injected fault. Counters are kept.
func (f *FaultyStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden = make(map[ir.Hash]bool)
	f.broken = make(map[ir.Hash]bool)
	f.saveBudget = -1
}

// ResetCounts zeroes the load and save counters.
func (f *FaultyStore) ResetCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = nil
	f.saves = 0
}

// Loads returns the hashes passed to Load since the last reset, in call order.
func (f *FaultyStore) Loads() []ir.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ir.Hash, len(f.loads))
	copy(out, f.loads)
	return out
}

// Saves returns the number of successful saves since the last reset.
func (f *FaultyStore) Saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// Save forwards to the wrapped store unless the save budget is spent.
func (f *FaultyStore) Save(ctx context.Context, rec ir.Record) (ir.Hash, error) {
	f.mu.Lock()
	if f.saveBudget == 0 {
		f.mu.Unlock()
		return ir.NoHash, fmt.Errorf("save: %w", ErrInjected)
	}
	if f.saveBudget > 0 {
		f.saveBudget--
	}
	f.mu.Unlock()

	h, err := f.inner.Save(ctx, rec)
	if err != nil {
		return ir.NoHash, err
	}

	f.mu.Lock()
	f.saves++
	f.mu.Unlock()
	return h, nil
}

// Load forwards to the wrapped store unless h is hidden or broken.
func (f *FaultyStore) Load(ctx context.Context, h ir.Hash) (ir.Record, error) {
	f.mu.Lock()
	f.loads = append(f.loads, h)
	hidden, broken := f.hidden[h], f.broken[h]
	f.mu.Unlock()

	if hidden {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), ir.ErrRecordNotFound)
	}
	if broken {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), ErrInjected)
	}
	return f.inner.Load(ctx, h)
}
