package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Outputs: []string{"stdout"}})
	require.Error(t, err)
}

func TestNewWithFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{
		Level:      "debug",
		Outputs:    []string{"file"},
		OutputFile: filepath.Join(dir, "feed.log"),
		ErrorFile:  filepath.Join(dir, "feed_errors.log"),
		Format:     "json",
	})
	require.NoError(t, err)
	l.LogFeed("feed_connected", map[string]interface{}{"conn_id": "x"})
	_ = l.Close()
}

func TestLogFeedAndError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.LogFeed("feed_connected", map[string]interface{}{"conn_id": "abc"})
	l.LogError(errors.New("boom"), map[string]interface{}{"action": "dial"})
	l.Sink()("depth_update", map[string]interface{}{"side": "bid"})

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "feed_event", entries[0].Message)
	assert.Equal(t, "feed_connected", entries[0].ContextMap()["event"])
	assert.Equal(t, "abc", entries[0].ContextMap()["conn_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	assert.Equal(t, "depth_update", entries[2].ContextMap()["event"])
}

func TestLogFeedFlagsSchemaViolations(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core))

	l.LogFeed("frame_dropped", map[string]interface{}{"feed_code": 41})
	l.LogFeed("feed_connected", map[string]interface{}{"client_id": "c", "security_id": "2885"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].ContextMap(), "schema_error")
	assert.NotContains(t, entries[1].ContextMap(), "schema_error")
}
