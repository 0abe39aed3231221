package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Hash is the content-addressed identity of a record.
// Real hashes are 64 lowercase hex characters (SHA-256).
type Hash string

// NoHash is the sentinel for "absent": the parent of a root record, the
// parent of every aggregate, and the hash of a record not yet saved.
const NoHash Hash = ""

// IsZero reports whether h is the NoHash sentinel.
func (h Hash) IsZero() bool {
	return h == NoHash
}

// Short returns the first 8 characters of the hash for diagnostics.
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// Kind distinguishes application content from frontier aggregates.
type Kind string

const (
	// KindContent is an application-authored, single-parent append.
	KindContent Kind = "content"

	// KindAggregate summarizes a replica's causal tips. Aggregates are never
	// the parent of another record.
	KindAggregate Kind = "aggregate"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindContent || k == KindAggregate
}

// ErrRecordNotFound is returned (possibly wrapped) by stores when a hash has
// never been saved.
var ErrRecordNotFound = errors.New("record not found")

// Record is an immutable node of the causal history.
type Record struct {
	Hash         Hash   `json:"hash"`         // Assigned at save time
	Kind         Kind   `json:"kind"`         // Content or Aggregate
	Parent       Hash   `json:"parent"`       // NoHash for roots and aggregates
	Predecessors []Hash `json:"predecessors"` // Empty for content
	Payload      Value  `json:"payload,omitempty"`
}

// NewContent creates an unsaved content record.
func NewContent(parent Hash, payload Value) Record {
	return Record{
		Kind:         KindContent,
		Parent:       parent,
		Predecessors: []Hash{},
		Payload:      payload,
	}
}

// NewAggregate creates an unsaved aggregate record over the given tips.
// The slice is copied; callers pass an already canonical frontier.
func NewAggregate(tips []Hash) Record {
	preds := make([]Hash, len(tips))
	copy(preds, tips)
	return Record{
		Kind:         KindAggregate,
		Parent:       NoHash,
		Predecessors: preds,
	}
}

// IsContent reports whether r is a content record.
func (r Record) IsContent() bool {
	return r.Kind == KindContent
}

// IsAggregate reports whether r is an aggregate record.
func (r Record) IsAggregate() bool {
	return r.Kind == KindAggregate
}

// Validate checks the structural rules that hold for every record.
func (r Record) Validate() error {
	switch r.Kind {
	case KindContent:
		if len(r.Predecessors) != 0 {
			return fmt.Errorf("content record has %d predecessors", len(r.Predecessors))
		}
	case KindAggregate:
		if !r.Parent.IsZero() {
			return fmt.Errorf("aggregate record has parent %s", r.Parent.Short())
		}
		if r.Payload != nil {
			return fmt.Errorf("aggregate record has payload")
		}
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	return nil
}

// wireRecord is the JSON shape used to decode records. Payload stays raw so
// it can be decoded into the sealed Value types.
type wireRecord struct {
	Hash         Hash            `json:"hash"`
	Kind         Kind            `json:"kind"`
	Parent       Hash            `json:"parent"`
	Predecessors []Hash          `json:"predecessors"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for Record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var payload Value
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		v, err := ParseValue(w.Payload)
		if err != nil {
			return fmt.Errorf("record payload: %w", err)
		}
		payload = v
	}

	preds := w.Predecessors
	if preds == nil {
		preds = []Hash{}
	}

	*r = Record{
		Hash:         w.Hash,
		Kind:         w.Kind,
		Parent:       w.Parent,
		Predecessors: preds,
		Payload:      payload,
	}
	return nil
}
