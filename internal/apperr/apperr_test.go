package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCatalog(t *testing.T) {
	t.Run("numeric codes are stable", func(t *testing.T) {
		assert.Equal(t, 1008, PersonNotFound.Num)
		assert.Equal(t, 2002, ThesisExists.Num)
		assert.Equal(t, 2003, InvalidThesisState.Num)
		assert.Equal(t, 3002, DefenseExists.Num)
		assert.Equal(t, 3003, InvalidDefenseState.Num)
		assert.Equal(t, 4001, Validation.Num)
		assert.Equal(t, 4002, Unauthorized.Num)
		assert.Equal(t, 9999, Internal.Num)
	})

	t.Run("New formats the message template", func(t *testing.T) {
		err := New(ThesisNotFound, "abc-123")
		assert.Equal(t, "thesis workflow abc-123 not found", err.Error())
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("Is matches by code", func(t *testing.T) {
		err := New(DefenseExists, "t1")
		assert.True(t, Is(err, DefenseExists))
		assert.False(t, Is(err, DefenseNotFound))
		assert.False(t, Is(errors.New("plain"), DefenseExists))
	})

	t.Run("wrapped errors keep their cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Internalf(cause, "failed to get thesis")

		require.ErrorIs(t, err, cause)
		assert.Equal(t, KindInternal, KindOf(err))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Is sees through wrapping", func(t *testing.T) {
		inner := New(Unauthorized, "requires role SC")
		wrapped := fmt.Errorf("handling request: %w", inner)

		assert.True(t, Is(wrapped, Unauthorized))
		assert.Equal(t, KindUnauthorized, KindOf(wrapped))
	})

	t.Run("unknown errors default to internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})
}
