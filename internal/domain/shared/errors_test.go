package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := &DomainError{Domain: "dialogue", Op: "Save", Kind: ErrInvalidState, Message: "save failed", Err: cause}

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dialogue.Save: save failed: boom", err.Error())
	assert.Equal(t, "student.Validate: invalid user ID", ErrInvalidUserID.Error())
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrScoreOutOfRange))
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", ErrInvalidName)))
	assert.False(t, IsValidation(ErrMissingField))
	assert.False(t, IsValidation(errors.New("other")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("list scores: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeout(ErrTimeout))
	assert.False(t, IsTimeout(context.Canceled))
}
