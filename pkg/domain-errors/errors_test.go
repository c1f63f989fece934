package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeMatching(t *testing.T) {
	t.Run("errors.Is compares by code", func(t *testing.T) {
		err := New(CodeAlreadyScheduled, "candidate already scheduled on 2025-03-01")
		require.ErrorIs(t, err, New(CodeAlreadyScheduled, ""))
		assert.NotErrorIs(t, err, New(CodeNotFound, ""))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("batch: %w", New(CodeCapacityExceeded, "venue full"))
		assert.True(t, HasCode(err, CodeCapacityExceeded))
		assert.Equal(t, CodeCapacityExceeded, CodeOf(err))
	})

	t.Run("wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodeInternal, "failed to load venue")
		require.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeNotFound))
	})
}
