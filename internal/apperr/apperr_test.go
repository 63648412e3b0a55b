package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input %d", 7)))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("no")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("gone")))
	assert.Equal(t, KindConflict, KindOf(Conflict("raced")))
	assert.Equal(t, KindUnavailable, KindOf(Unavailable(errors.New("down"), "store offline")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	inner := Conflict("raced")
	wrapped := fmt.Errorf("review failed: %w", inner)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := Validation("bad input %d", 7)
	assert.Equal(t, "bad input 7", err.Error())

	cause := errors.New("connection refused")
	err = Unavailable(cause, "store offline")
	assert.Equal(t, "store offline: connection refused", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestIsMatchesByKind(t *testing.T) {
	assert.True(t, errors.Is(Conflict("a"), Conflict("b")))
	assert.False(t, errors.Is(Conflict("a"), NotFound("b")))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", Forbidden("no")), Forbidden("denied")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
