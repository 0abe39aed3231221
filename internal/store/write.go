package store

import (
	"context"
	"fmt"

	"github.com/roach88/chronotree/internal/ir"
)

// Save inserts a record and returns its content hash.
// Uses ON CONFLICT(hash) DO NOTHING for idempotency - saving identical content
// twice is a no-op. The record's Hash field is ignored and recomputed.
func (s *Store) Save(ctx context.Context, rec ir.Record) (ir.Hash, error) {
	h, err := ir.RecordHash(rec)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	predsJSON, err := marshalPredecessors(rec.Predecessors)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	payload, err := marshalPayload(rec.Payload)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(hash, kind, parent, predecessors, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		string(h),
		string(rec.Kind),
		string(rec.Parent),
		predsJSON,
		payload,
	)
	if err != nil {
		return ir.NoHash, fmt.Errorf("save record: %w", err)
	}

	return h, nil
}

// SetHead records the latest head of a named replica, replacing any previous
// value.
func (s *Store) SetHead(ctx context.Context, name string, head ir.Hash) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heads (name, head) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET head = excluded.head
	`, name, string(head))
	if err != nil {
		return fmt.Errorf("set head %q: %w", name, err)
	}
	return nil
}
