package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("wrapped sentinels remain detectable", func(t *testing.T) {
		err := Wrap(ErrNotTrackable, "resolving type office")
		assert.True(t, IsNotTrackableError(err))
		assert.False(t, IsNoTargetRecordError(err))

		err = Wrap(ErrNoTargetRecord, "check-in to facilities/42")
		assert.True(t, IsNoTargetRecordError(err))
		assert.False(t, IsNotTrackableError(err))
	})

	t.Run("nil is never a sentinel", func(t *testing.T) {
		assert.False(t, IsNotTrackableError(nil))
		assert.False(t, IsNoTargetRecordError(nil))
		assert.False(t, IsNotFoundError(nil))
		assert.False(t, IsInvalidRequestError(nil))
	})

	t.Run("constructors format and preserve type", func(t *testing.T) {
		err := NewNotTrackableError("type %q has no tracking fields", "org_office")
		require.Error(t, err)
		assert.True(t, Is(err, ErrNotTrackable))
		assert.Contains(t, err.Error(), "org_office")

		err = NewNoTargetRecordError("no record %d in %s", 7, "facilities")
		require.Error(t, err)
		assert.True(t, Is(err, ErrNoTargetRecord))
		assert.Contains(t, err.Error(), "facilities")
	})

	t.Run("errors carry stack traces", func(t *testing.T) {
		err := New("boom")
		assert.NotNil(t, GetStack(err))
	})
}
