package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_IsMatchesCode(t *testing.T) {
	err := NewSupplyExhaustedError("Aspirin")

	assert.True(t, stderrors.Is(err, ErrSupplyExhausted))
	assert.False(t, stderrors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("record dose: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrSupplyExhausted))
	assert.Equal(t, ErrCodeSupplyExhausted, CodeOf(wrapped))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewDeliveryFailedError("p@example.com", 3, cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrDeliveryFailed))
	assert.Contains(t, err.Error(), "attempts: 3")
	assert.Equal(t, 3, err.Metadata["attempts"])
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(stderrors.New("boom")))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(nil))
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeDeliveryFailed, "NOTIFICATION"},
		{ErrCodePersistenceFailed, "STORAGE"},
		{ErrCodeSupplyExhausted, "SUPPLY"},
		{ErrCodeNotFound, "DIRECTORY"},
		{ErrCodeDuplicatePatient, "DIRECTORY"},
		{ErrCodeValidationFailed, "VALIDATION"},
		{ErrCodeConfigInvalid, "VALIDATION"},
		{"SOMETHING_ELSE", "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}
