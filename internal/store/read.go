package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chronotree/internal/ir"
)

// Load retrieves a record by hash.
// Returns an error wrapping ir.ErrRecordNotFound if the hash was never saved.
func (s *Store) Load(ctx context.Context, h ir.Hash) (ir.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, kind, parent, predecessors, payload
		FROM records
		WHERE hash = ?
	`, string(h))

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), ir.ErrRecordNotFound)
	}
	if err != nil {
		return ir.Record{}, fmt.Errorf("load %s: %w", h.Short(), err)
	}
	return rec, nil
}

// Has reports whether a record with the given hash exists.
func (s *Store) Has(ctx context.Context, h ir.Hash) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE hash = ?`, string(h)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check record: %w", err)
	}
	return count > 0, nil
}

// Children returns the hashes of content records whose parent is h,
// ordered by hash.
func (s *Store) Children(ctx context.Context, h ir.Hash) ([]ir.Hash, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash FROM records
		WHERE parent = ? AND kind = 'content'
		ORDER BY hash COLLATE BINARY ASC
	`, string(h))
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	children := []ir.Hash{}
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, ir.Hash(child))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

// Count returns the number of stored records of the given kind.
func (s *Store) Count(ctx context.Context, kind ir.Kind) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Head returns the latest head of a named replica, or ir.NoHash if the
// replica has never been recorded.
func (s *Store) Head(ctx context.Context, name string) (ir.Hash, error) {
	var head string
	err := s.db.QueryRowContext(ctx, `SELECT head FROM heads WHERE name = ?`, name).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.NoHash, nil
	}
	if err != nil {
		return ir.NoHash, fmt.Errorf("get head %q: %w", name, err)
	}
	return ir.Hash(head), nil
}

// Heads returns every named replica head.
func (s *Store) Heads(ctx context.Context) (map[string]ir.Hash, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, head FROM heads ORDER BY name COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query heads: %w", err)
	}
	defer rows.Close()

	heads := make(map[string]ir.Hash)
	for rows.Next() {
		var name, head string
		if err := rows.Scan(&name, &head); err != nil {
			return nil, fmt.Errorf("scan head: %w", err)
		}
		heads[name] = ir.Hash(head)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heads: %w", err)
	}
	return heads, nil
}

// scanRecord scans a single row into a Record.
func scanRecord(row *sql.Row) (ir.Record, error) {
	var (
		hash, kind, parent, preds string
		payload                   sql.NullString
	)
	if err := row.Scan(&hash, &kind, &parent, &preds, &payload); err != nil {
		return ir.Record{}, err
	}

	predecessors, err := unmarshalPredecessors(preds)
	if err != nil {
		return ir.Record{}, err
	}
	value, err := unmarshalPayload(payload)
	if err != nil {
		return ir.Record{}, err
	}

	return ir.Record{
		Hash:         ir.Hash(hash),
		Kind:         ir.Kind(kind),
		Parent:       ir.Hash(parent),
		Predecessors: predecessors,
		Payload:      value,
	}, nil
}
