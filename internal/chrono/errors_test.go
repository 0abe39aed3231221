package chrono

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/chronotree/internal/ir"
)

func TestError_Format(t *testing.T) {
	err := newInvalidParentError("0123456789abcdef", "parent is not known to this replica")
	assert.Equal(t, "INVALID_PARENT: parent is not known to this replica (hash=01234567)", err.Error())

	cause := fmt.Errorf("load x: %w", ir.ErrRecordNotFound)
	missing := newMissingNodeError("", cause)
	assert.Equal(t, "MISSING_NODE: record cannot be resolved through the store: load x: record not found", missing.Error())
}

func TestError_Unwrap(t *testing.T) {
	err := newMissingNodeError("abc", ir.ErrRecordNotFound)
	assert.True(t, errors.Is(err, ir.ErrRecordNotFound))
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
		is   func(error) bool
	}{
		{"invalid parent", newInvalidParentError("a", "x"), ErrCodeInvalidParent, IsInvalidParent},
		{"missing node", newMissingNodeError("a", nil), ErrCodeMissingNode, IsMissingNode},
		{"not found", newNotFoundError("a"), ErrCodeNotFound, IsNotFound},
		{"malformed", newMalformedRecordError("a", "x"), ErrCodeMalformedRecord, IsMalformedRecord},
		{"wrapped", fmt.Errorf("ctx: %w", newNotFoundError("a")), ErrCodeNotFound, IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
			assert.True(t, tt.is(tt.err))
		})
	}

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
