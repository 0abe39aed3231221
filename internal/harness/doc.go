// Package harness runs replica scenarios as executable conformance tests.
//
// A scenario names a set of replicas, optionally a shared root record, a
// script of steps and assertions on the final state. Each run gets a fresh
// in-memory store unless the caller supplies one.
//
// # Scenario Format
//
//	name: divergent_merge
//	description: Two replicas branch from a shared root and converge.
//	replicas: [a, b]
//	root: "-1"
//	steps:
//	  - replica: a
//	    add: {label: x, parent: root, payload: {seq: 1}}
//	  - replica: b
//	    add: {label: y, parent: root}
//	  - replica: a
//	    snapshot: a0
//	  - replica: a
//	    merge: b
//	  - replica: b
//	    add: {label: z}
//	    expect: INVALID_PARENT
//	assertions:
//	  - type: converged
//	  - type: frontier
//	    replica: a
//	    labels: [x, y]
//
// Files are checked against an embedded CUE schema before decoding, so
// unknown fields and bad error codes are rejected with a position.
//
// # References
//
// Parents and merge targets are references. A reference is resolved as a
// record label, then a snapshot label, then a replica name (its current
// head). Anything else is used verbatim as a hash, which is how scenarios
// exercise MISSING_NODE.
//
// # Assertion Types
//
//   - converged: the listed replicas (default: all) are structurally equal
//   - frontier: a replica's frontier is exactly the labeled records
//   - known_count: a replica knows exactly count records, head included
//   - head_equals: a replica's head equals a snapshot or another replica's head
//
// # Golden Files
//
// RunWithGolden compares a label-based snapshot of the result against
// testdata/golden/<name>.golden. Snapshots never contain hashes, so they
// only change when behavior does.
package harness
