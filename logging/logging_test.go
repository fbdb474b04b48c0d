package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerWithWriterFormats(t *testing.T) {
	var text bytes.Buffer
	NewLoggerWithWriter(slog.LevelInfo, "text", &text).Info("schedule optimized", "tournament_id", 7)
	assert.Contains(t, text.String(), "schedule optimized")
	assert.Contains(t, text.String(), "tournament_id=7")

	var js bytes.Buffer
	NewLoggerWithWriter(slog.LevelInfo, "JSON", &js).Info("schedule optimized", "tournament_id", 7)
	assert.Contains(t, js.String(), `"msg":"schedule optimized"`)
	assert.Contains(t, js.String(), `"tournament_id":7`)
}

func TestNewLoggerWithWriterLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelWarn, "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerWithWriterChildLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter(slog.LevelDebug, "text", &buf).With("component", "hub").Debug("sweep")
	assert.Contains(t, buf.String(), "component=hub")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		" Error ": slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}
