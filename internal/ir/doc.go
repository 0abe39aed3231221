// Package ir provides the record model for chronotree.
//
// This package contains the immutable record shape, payload value types and
// content-addressed identity. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Records are immutable once saved; a hash denotes fixed content forever
//   - Identity is SHA-256 over RFC 8785 canonical JSON with domain separation
//   - NO float types in payloads - use int64 for numbers
//   - All JSON tags use snake_case
package ir
