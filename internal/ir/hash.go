package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord prefixes every record hash.
// The version suffix enables future algorithm migration.
const DomainRecord = "chronotree/record/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator prevents domain/data boundary ambiguity
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash computes the content-addressed identity of a record from
// (kind, parent, predecessors, payload). The Hash field is ignored.
// Identical inputs produce the identical hash in every process.
func RecordHash(r Record) (Hash, error) {
	if err := r.Validate(); err != nil {
		return NoHash, fmt.Errorf("RecordHash: %w", err)
	}

	obj := map[string]any{
		"kind":         r.Kind,
		"parent":       r.Parent,
		"predecessors": r.Predecessors,
	}
	if r.Payload != nil {
		obj["payload"] = r.Payload
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return NoHash, fmt.Errorf("RecordHash: failed to marshal: %w", err)
	}

	return Hash(hashWithDomain(DomainRecord, canonical)), nil
}

// MustRecordHash is like RecordHash but panics on error.
// Use only in tests or when the record is known to be valid.
func MustRecordHash(r Record) Hash {
	h, err := RecordHash(r)
	if err != nil {
		panic(err)
	}
	return h
}
