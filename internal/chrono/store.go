package chrono

import (
	"context"

	"github.com/roach88/chronotree/internal/ir"
)

// Store is the content-addressed persistence contract replicas depend on.
//
// Save derives the record hash with ir.RecordHash and persists the record;
// saving identical content again is a no-op returning the same hash.
// Load returns a previously saved record with Hash set, or an error matching
// errors.Is(err, ir.ErrRecordNotFound) when the hash was never saved.
//
// Implementations must make saved records visible to every subsequent Load,
// from any replica.
type Store interface {
	Save(ctx context.Context, rec ir.Record) (ir.Hash, error)
	Load(ctx context.Context, h ir.Hash) (ir.Record, error)
}
