package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("matches by code through wrapping", func(t *testing.T) {
		copyErr := NewDomainError(ErrNotFound.Code, "Stock row not found")
		wrapped := fmt.Errorf("load stock: %w", copyErr)

		assert.True(t, errors.Is(wrapped, ErrNotFound))
		assert.False(t, errors.Is(wrapped, ErrInvalidState))
		assert.Equal(t, "Stock row not found", copyErr.Error())
	})

	t.Run("AsDomainError unwraps", func(t *testing.T) {
		wrapped := fmt.Errorf("apply: %w", ErrConcurrencyConflict)

		de, ok := AsDomainError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, "CONCURRENCY_CONFLICT", de.Code)
		assert.True(t, IsDomainError(wrapped))
	})

	t.Run("plain errors are not domain errors", func(t *testing.T) {
		_, ok := AsDomainError(errors.New("dial tcp: connection refused"))

		assert.False(t, ok)
		assert.False(t, IsDomainError(nil))
	})
}

func TestDomainError_WithCause(t *testing.T) {
	unavailable := NewDomainError("SERVICE_UNAVAILABLE", "Count session store is unavailable")
	dial := errors.New("dial tcp 10.0.0.5:6379: i/o timeout")

	err := fmt.Errorf("get session: %w", unavailable.WithCause(dial))

	assert.ErrorIs(t, err, unavailable)
	assert.ErrorIs(t, err, dial)
	assert.Equal(t, "get session: Count session store is unavailable: dial tcp 10.0.0.5:6379: i/o timeout", err.Error())
	assert.Nil(t, unavailable.Unwrap(), "sentinel is not modified")
}
