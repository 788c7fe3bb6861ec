package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(http.StatusConflict, "conflict", "already there")
	assert.Equal(t, "conflict: already there", err.Error())

	wrapped := err.WithInternal(errors.New("dup key"))
	assert.Equal(t, "conflict: already there (dup key)", wrapped.Error())
	assert.Equal(t, "dup key", errors.Unwrap(wrapped).Error())
}

func TestCopiesDoNotMutateSentinels(t *testing.T) {
	msg := ErrNotFound.Message
	custom := ErrNotFound.WithMessage("artifact 'x' not found")
	assert.Equal(t, msg, ErrNotFound.Message)
	assert.Equal(t, "artifact 'x' not found", custom.Message)
	assert.Equal(t, ErrNotFound.Code, custom.Code)
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := ErrArtifactNotFound.WithMessagef("artifact '%s' not found", "abc")
	assert.True(t, errors.Is(err, ErrArtifactNotFound))
	assert.False(t, errors.Is(err, ErrConflict))

	deep := fmt.Errorf("loading: %w", err)
	assert.True(t, errors.Is(deep, ErrArtifactNotFound))
}

func TestWrap(t *testing.T) {
	appErr, ok := Wrap(ErrConflict.WithMessage("uuid exists")).(*Error)
	require.True(t, ok)
	assert.Equal(t, "conflict", appErr.Code)

	wrapped, ok := Wrap(errors.New("pipe burst")).(*Error)
	require.True(t, ok)
	assert.Equal(t, "internal_error", wrapped.Code)
	assert.EqualError(t, wrapped.Internal, "pipe burst")
}

func TestWrapNilStaysNil(t *testing.T) {
	// Must be an untyped nil: a typed *Error nil would make err != nil
	// for every caller that tail-returns Wrap(err) on success.
	err := Wrap(nil)
	assert.NoError(t, err)
	assert.Nil(t, err)
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name                            string
		err                             error
		notFound, conflict, validation bool
	}{
		{"not found", ErrArtifactNotFound, true, false, false},
		{"conflict", ErrRelationshipConflict, false, true, false},
		{"validation", ErrValidation, false, false, true},
		{"bad request counts as validation", ErrBadRequest, false, false, true},
		{"query syntax", ErrQuerySyntax, false, false, true},
		{"internal", ErrInternal, false, false, false},
		{"plain error", errors.New("x"), false, false, false},
		{"wrapped not found", fmt.Errorf("ctx: %w", ErrNotFound), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.conflict, IsConflict(tt.err))
			assert.Equal(t, tt.validation, IsValidation(tt.err))
		})
	}
}
