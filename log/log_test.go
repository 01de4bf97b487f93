package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWithLevel(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, err := NewWithLevel("ingest", lvl, WithEncoder(JSONEncoder), WithOutput(&buf))
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown", zap.Uint64("height", 7))
		require.NoError(t, logger.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "shown", entry["M"])
		require.Equal(t, "ingest", entry["N"])
		require.EqualValues(t, 7, entry["height"])

		buf.Reset()
		lvl.SetLevel(zapcore.DebugLevel)
		logger.Debug("now visible")
		require.Contains(t, buf.String(), "now visible")
	})
	t.Run("unknown encoder", func(t *testing.T) {
		_, err := New("x", WithEncoder("xml"))
		require.Error(t, err)
	})
	t.Run("hooks", func(t *testing.T) {
		var buf bytes.Buffer
		count := 0
		logger, err := New("x", WithOutput(&buf), WithHooks(func(zapcore.Entry) error {
			count++
			return nil
		}))
		require.NoError(t, err)
		logger.Info("one")
		logger.Warn("two")
		require.Equal(t, 2, count)
	})
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestZContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ctx := WithSessionID(context.Background(), "abc", zap.Uint64("height", 3))
	logger.Info("applied", ZContext(ctx))

	ctx = WithNewSessionID(context.Background())
	id, ok := ExtractSessionID(ctx)
	require.True(t, ok)
	require.NotEmpty(t, id)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["sessionId"])
	require.EqualValues(t, 3, fields["height"])
}

type short string

func (s short) ShortString() string { return string(s)[:3] }

func TestZShortStringer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	zap.New(core).Info("x", ZShortStringer("id", short("abcdef")))
	require.Equal(t, "abc", logs.All()[0].ContextMap()["id"])
}
