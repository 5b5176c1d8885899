package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureConsole redirects the console writer to a buffer for one test.
func captureConsole(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := consoleWriter
	buf := &bytes.Buffer{}
	consoleWriter = buf
	t.Cleanup(func() { consoleWriter = orig })
	return buf
}

func TestSetup_ConsoleAndFile(t *testing.T) {
	console := captureConsole(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&fileBuf, "info")
	m.Logger().Info("hello run")

	assert.Contains(t, console.String(), "hello run")
	assert.Contains(t, fileBuf.String(), "hello run")
}

func TestSetup_NoFile(t *testing.T) {
	console := captureConsole(t)

	m := NewSlogManager()
	m.Setup(nil, "info")
	m.Logger().Info("console only")

	assert.Contains(t, console.String(), "console only")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	console := captureConsole(t)

	m := NewSlogManager()
	m.Setup(nil, "info")
	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	assert.NotContains(t, console.String(), "should be filtered")
	assert.Contains(t, console.String(), "should appear")
}

func TestSetup_DebugLevel(t *testing.T) {
	console := captureConsole(t)

	m := NewSlogManager()
	m.Setup(nil, "debug")
	m.Logger().Debug("debug msg")

	assert.Contains(t, console.String(), "debug msg")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), tt.input)
	}
}

func TestLogFilePath(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	path := LogFilePath("logs", start)
	assert.Contains(t, path, "video360.20250314_092653.log")
}

func TestTeeHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestTeeHandler_FiltersNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, nil)

	tee := NewTeeHandler(nil, h, nil)
	require.Len(t, tee.handlers, 1)

	slog.New(tee).Info("works")
	assert.Contains(t, buf.String(), "works")
}

func TestTeeHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewTeeHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewTeeHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

	empty := NewTeeHandler()
	assert.False(t, empty.Enabled(context.Background(), slog.LevelInfo))
}

func TestTeeHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	tee := NewTeeHandler(h)

	logger := slog.New(tee.WithAttrs([]slog.Attr{slog.String("component", "test")}).WithGroup("grp"))
	logger.Info("tagged", "key", "val")

	assert.Contains(t, buf.String(), "component=test")
	assert.Contains(t, buf.String(), "grp.key=val")

	assert.Equal(t, tee, tee.WithGroup(""), "empty group name returns same handler")
}

// errorHandler always fails Handle; the tee must keep delivering.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestTeeHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewTeeHandler(&errorHandler{}, spy))
	logger.Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")
}
