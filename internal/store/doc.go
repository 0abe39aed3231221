// Package store provides SQLite-backed durable storage for chronotree records.
//
// The store implements the replica store contract (chrono.Store):
//   - Records: immutable, keyed by content hash
//   - Heads: the latest head hash of each named replica
//
// # Critical Patterns
//
// Content addressing:
//   - Save computes the hash via ir.RecordHash before writing
//   - INSERT ... ON CONFLICT(hash) DO NOTHING makes repeated saves no-ops
//   - Rows are never updated or deleted
//
// Deterministic serialization:
//   - predecessors and payload columns hold RFC 8785 canonical JSON
//   - List queries use ORDER BY hash COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Named heads are an integration concern for the CLI; replicas themselves
// never read them.
package store
