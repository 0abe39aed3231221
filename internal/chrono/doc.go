// Package chrono implements the convergent causal history: one Replica per
// actor, appending content records and merging other replicas' frontiers.
//
// # Model
//
// A replica tracks its frontier (the sorted antichain of content hashes that
// no other known record has as an ancestor) and its head (the hash of an
// aggregate record whose predecessors are exactly that frontier). Replicas
// exchange heads; merging a head is the join of a join-semilattice, so any
// order or grouping of merges converges to the same head, frontier and known
// set on every replica.
//
// # Critical Patterns
//
// Single writer:
//   - Add and Merge mutate replica state and must be serialized per instance
//   - Many replicas may share one Store concurrently
//
// All-or-nothing:
//   - Records pulled from the store are staged per operation and committed
//     into known only when the operation succeeds
//   - A failed Add, Merge or New leaves frontier, head and known untouched
//
// Canonical order:
//   - Frontiers are sorted by hash; this, not the order of operations, makes
//     replicas structurally equal after merging the same histories
//
// Aggregates are ephemeral: the replica keeps exactly one (its head) in known
// and evicts it as soon as a newer one supersedes it.
package chrono
