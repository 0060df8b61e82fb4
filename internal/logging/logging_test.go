package logging

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelInfo, ParseLevel("anything-else"))
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf strings.Builder
	logger := NewLogger(&buf, LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestWriterForwardsLines(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	input := []byte("Cloning into 'blog'...\nremote: done\n\n")
	w := NewWriter(logger)
	n, err := w.Write(input)
	assert.NoError(t, err)
	assert.Equal(t, len(input), n)

	out := buf.String()
	assert.Contains(t, out, "Cloning into 'blog'...")
	assert.Contains(t, out, "remote: done")
	assert.Equal(t, 2, strings.Count(out, "subprocess output"))
}

func TestWriterNilLogger(t *testing.T) {
	w := NewWriter(nil)
	n, err := w.Write([]byte("ignored\n"))
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
}
