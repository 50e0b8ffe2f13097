package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		err := Initialize(false)
		require.NoError(t, err)
		require.NotNil(t, Logger)
		assert.False(t, JSONOutput)
	})

	t.Run("json output", func(t *testing.T) {
		err := Initialize(true)
		require.NoError(t, err)
		require.NotNil(t, Logger)
		assert.True(t, JSONOutput)
	})

	t.Run("package wrappers never panic before init", func(t *testing.T) {
		// init() installs a no-op logger, so these are safe in any order
		Info("info")
		Infow("infow", FieldTrackID, 1)
		Warnf("warn %d", 2)
		Errorw("errorw", FieldError, "boom")
		Debug("debug")
	})
}

func TestMinimalEncoder(t *testing.T) {
	enc := newMinimalEncoder()

	t.Run("formats entry with fields", func(t *testing.T) {
		entry := zapcore.Entry{
			Time:       time.Date(2024, 3, 1, 13, 4, 35, 0, time.UTC),
			Level:      zapcore.InfoLevel,
			LoggerName: "track.ledger",
			Message:    "Presence recorded",
		}
		fields := []zapcore.Field{
			{Key: "track_id", Type: zapcore.Int64Type, Integer: 7},
			{Key: "location_id", Type: zapcore.Int64Type, Integer: 12},
		}

		buf, err := enc.EncodeEntry(entry, fields)
		require.NoError(t, err)
		out := buf.String()

		assert.Contains(t, out, "13:04:35")
		assert.Contains(t, out, "t.ledger")
		assert.Contains(t, out, "Presence recorded")
		assert.Contains(t, out, "track_id=")
		assert.Contains(t, out, "7")
		// INFO level marker is suppressed
		assert.NotContains(t, out, "INFO")
	})

	t.Run("warn level is marked", func(t *testing.T) {
		entry := zapcore.Entry{
			Time:    time.Now(),
			Level:   zapcore.WarnLevel,
			Message: "presence append raced",
		}
		buf, err := enc.EncodeEntry(entry, nil)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "WARN")
	})

	t.Run("clone is independent", func(t *testing.T) {
		clone := enc.Clone()
		require.NotNil(t, clone)
		assert.NotSame(t, enc, clone)
	})
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "server", abbreviateName("server"))
	assert.Equal(t, "t.ledger", abbreviateName("track.ledger"))
	assert.Equal(t, "t.resolver.base", abbreviateName("track.resolver.base"))
}

func TestComponentLogger(t *testing.T) {
	require.NoError(t, Initialize(false))
	named := ComponentLogger("track.resolver")
	require.NotNil(t, named)

	child := ChildLogger(named, FieldRequestID, "req-1")
	require.NotNil(t, child)
}
