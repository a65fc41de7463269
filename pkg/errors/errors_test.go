package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypePredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
		status    int
	}{
		{"not found", NewNotFoundError("user"), IsNotFound, http.StatusNotFound},
		{"validation", NewValidationError("bad input"), IsValidation, http.StatusBadRequest},
		{"conflict", NewConflictError("already liked"), IsConflict, http.StatusConflict},
		{"forbidden", NewForbiddenError(""), IsForbidden, http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError(""), IsUnauthorized, http.StatusUnauthorized},
		{"invalid operation", NewInvalidOperationError("self follow"), IsInvalidOperation, http.StatusBadRequest},
		{"internal", NewInternalError("boom"), IsInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
			assert.Equal(t, tt.status, GetAppError(tt.err).HTTPStatus)
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFoundError("video")
	assert.Equal(t, "video not found", GetAppError(err).Message)
}

func TestWrapPreservesType(t *testing.T) {
	err := Wrap(NewNotFoundError("user"), "loading follower")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "loading follower: user not found", GetAppError(err).Message)
}

func TestWrapPlainError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, "fetching profile")

	require.True(t, IsInternal(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestUnwrapChain(t *testing.T) {
	cause := fmt.Errorf("throttled")
	err := NewDatabaseError("query", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by")
}

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(NewConflictError("dup")))
	assert.False(t, IsAppError(errors.New("plain")))
	assert.Nil(t, GetAppError(errors.New("plain")))
}
