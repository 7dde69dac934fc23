package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriterLogger(&buf, "json")
	require.NoError(t, err)

	l.Info("grade.result", map[string]any{"mission_id": 3, "passed": true})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "grade.result", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(3), entry["mission_id"])
	assert.Equal(t, true, entry["passed"])
}

func TestDebugIsFilteredByDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriterLogger(&buf, "logfmt")
	require.NoError(t, err)

	l.Debug("noisy", nil)
	assert.Empty(t, buf.String())

	l.With(map[string]any{"session_id": "abc"}).Error("query.failed", map[string]any{"error": "boom"})
	out := buf.String()
	assert.Contains(t, out, "query.failed")
	assert.Contains(t, out, "session_id=abc")
	assert.Contains(t, out, "error=boom")
}

func TestNewLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	l, err := NewLogger(path, "json", false)
	require.NoError(t, err)
	l.Info("server.start", map[string]any{"addr": ":8080"})
	require.NoError(t, l.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), `"server.start"`))
}

func TestUnknownFormatIsRejected(t *testing.T) {
	_, err := NewWriterLogger(&bytes.Buffer{}, "xml")
	require.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("ignored", nil)
	assert.NoError(t, l.Close())
}
