package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/chronotree/internal/ir"
)

// marshalPredecessors converts predecessor hashes to canonical JSON TEXT.
func marshalPredecessors(preds []ir.Hash) (string, error) {
	data, err := ir.MarshalCanonical(preds)
	if err != nil {
		return "", fmt.Errorf("marshal predecessors: %w", err)
	}
	return string(data), nil
}

// marshalPayload converts a payload to canonical JSON TEXT.
// A nil payload is stored as SQL NULL.
func marshalPayload(payload ir.Value) (sql.NullString, error) {
	if payload == nil {
		return sql.NullString{}, nil
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal payload: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// unmarshalPredecessors parses predecessor JSON TEXT.
// Always returns a non-nil slice.
func unmarshalPredecessors(data string) ([]ir.Hash, error) {
	preds := []ir.Hash{}
	if data == "" || data == "[]" {
		return preds, nil
	}
	if err := json.Unmarshal([]byte(data), &preds); err != nil {
		return nil, fmt.Errorf("unmarshal predecessors: %w", err)
	}
	return preds, nil
}

// unmarshalPayload parses payload JSON TEXT; NULL becomes a nil payload.
func unmarshalPayload(data sql.NullString) (ir.Value, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.ParseValue([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}
