// Package memstore provides an in-process record store for tests, the
// simulation driver and the scenario harness.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/chronotree/internal/ir"
)

// Memory is a map-backed record store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[ir.Hash]ir.Record
	heads   map[string]ir.Hash
	saves   int
	loads   int
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		records: make(map[ir.Hash]ir.Record),
		heads:   make(map[string]ir.Hash),
	}
}

// Save stores rec under its content hash. Saving identical content twice is
// a no-op that returns the same hash.
func (m *Memory) Save(ctx context.Context, rec ir.Record) (ir.Hash, error) {
	if err := ctx.Err(); err != nil {
		return ir.NoHash, err
	}
	h, err := ir.RecordHash(rec)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if _, ok := m.records[h]; !ok {
		m.records[h] = cloneRecord(rec, h)
	}
	return h, nil
}

// Load returns the record stored under h.
func (m *Memory) Load(ctx context.Context, h ir.Hash) (ir.Record, error) {
	if err := ctx.Err(); err != nil {
		return ir.Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	rec, ok := m.records[h]
	if !ok {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), ir.ErrRecordNotFound)
	}
	return cloneRecord(rec, h), nil
}

// Head returns the head recorded for a named replica, or ir.NoHash.
func (m *Memory) Head(_ context.Context, name string) (ir.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heads[name], nil
}

// SetHead records the head of a named replica.
func (m *Memory) SetHead(_ context.Context, name string, head ir.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heads[name] = head
	return nil
}

// Heads returns a copy of every named head.
func (m *Memory) Heads(_ context.Context) (map[string]ir.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]ir.Hash, len(m.heads))
	for k, v := range m.heads {
		out[k] = v
	}
	return out, nil
}

// Len returns the number of distinct records stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Loads returns how many Load calls have been served.
func (m *Memory) Loads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loads
}

// Saves returns how many Save calls have been served.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// cloneRecord copies the predecessor slice so callers cannot alias stored
// state. Payload values are immutable once built.
func cloneRecord(rec ir.Record, h ir.Hash) ir.Record {
	preds := make([]ir.Hash, len(rec.Predecessors))
	copy(preds, rec.Predecessors)
	rec.Predecessors = preds
	rec.Hash = h
	return rec
}
