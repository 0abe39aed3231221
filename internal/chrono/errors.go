package chrono

import (
	"errors"
	"fmt"

	"github.com/roach88/chronotree/internal/ir"
)

// Error reports a replica operation that could not be applied.
// The replica is unchanged whenever an Error is returned.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Hash is the record the error is about, if any.
	Hash ir.Hash

	// Err is the underlying store error, if any.
	Err error
}

// ErrorCode categorizes replica errors.
type ErrorCode string

const (
	// ErrCodeInvalidParent indicates Add referenced an unknown or non-content parent.
	ErrCodeInvalidParent ErrorCode = "INVALID_PARENT"

	// ErrCodeMissingNode indicates a hash or one of its ancestors cannot be
	// resolved through the store.
	ErrCodeMissingNode ErrorCode = "MISSING_NODE"

	// ErrCodeNotFound indicates a direct lookup of a hash absent from known.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeMalformedRecord indicates the store returned a record that breaks
	// the record model (for example an aggregate used as a causal predecessor).
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if !e.Hash.IsZero() {
		msg = fmt.Sprintf("%s (hash=%s)", msg, e.Hash.Short())
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying store error.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsInvalidParent returns true if err is an INVALID_PARENT error.
func IsInvalidParent(err error) bool {
	return CodeOf(err) == ErrCodeInvalidParent
}

// IsMissingNode returns true if err is a MISSING_NODE error.
func IsMissingNode(err error) bool {
	return CodeOf(err) == ErrCodeMissingNode
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsMalformedRecord returns true if err is a MALFORMED_RECORD error.
func IsMalformedRecord(err error) bool {
	return CodeOf(err) == ErrCodeMalformedRecord
}

func newInvalidParentError(parent ir.Hash, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidParent,
		Message: reason,
		Hash:    parent,
	}
}

func newMissingNodeError(h ir.Hash, err error) *Error {
	return &Error{
		Code:    ErrCodeMissingNode,
		Message: "record cannot be resolved through the store",
		Hash:    h,
		Err:     err,
	}
}

func newNotFoundError(h ir.Hash) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "record is not known to this replica",
		Hash:    h,
	}
}

func newMalformedRecordError(h ir.Hash, reason string) *Error {
	return &Error{
		Code:    ErrCodeMalformedRecord,
		Message: reason,
		Hash:    h,
	}
}
