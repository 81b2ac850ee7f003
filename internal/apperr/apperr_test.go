package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := New(KindNotFound, "post not found")
	wrapped := fmt.Errorf("get post: %w", sentinel)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "post not found", MessageOf(wrapped))
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, Is(wrapped, KindNotFound))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Empty(t, MessageOf(plain))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(KindConflict, "already following", cause)

	assert.Equal(t, "already following: duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "already following", MessageOf(err))
}

func TestValidationFormats(t *testing.T) {
	err := Validation("limit must be between 1 and %d", 50)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "limit must be between 1 and 50", err.Error())
	assert.Equal(t, "validation", err.Kind.String())
}
