package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("passes domain errors through", func(t *testing.T) {
		in := NewConflict("taken", map[string]any{"id": "x"})
		got := ToDomainError(fmt.Errorf("wrapped: %w", in))
		require.NotNil(t, got)
		assert.Equal(t, "CONFLICT", got.Code)
		assert.Equal(t, http.StatusConflict, got.HTTPStatus)
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		got := ToDomainError(fmt.Errorf("load ticket: %w", pgx.ErrNoRows))
		assert.Equal(t, "NOT_FOUND", got.Code)
		assert.Equal(t, http.StatusNotFound, got.HTTPStatus)
	})

	t.Run("everything else is internal", func(t *testing.T) {
		cause := errors.New("boom")
		got := ToDomainError(cause)
		assert.Equal(t, "INTERNAL_ERROR", got.Code)
		assert.ErrorIs(t, got, cause)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
		assert.NoError(t, MapError(nil))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(NewNotFound("team", nil)))
	assert.False(t, IsNotFound(NewForbidden("no")))
	assert.False(t, IsNotFound(errors.New("other")))
}
