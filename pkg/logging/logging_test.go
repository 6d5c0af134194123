package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"warn":       slog.LevelWarn,
		"error":      slog.LevelError,
		"info":       slog.LevelInfo,
		"":           slog.LevelInfo,
		"unexpected": slog.LevelInfo,
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseLevel(name), "name=%q", name)
	}
}

func TestSplitHandler_RoutesByLevel(t *testing.T) {
	var low, high bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	h := &splitHandler{
		low:  slog.NewTextHandler(&low, opts),
		high: slog.NewTextHandler(&high, opts),
	}
	logger := slog.New(h)

	logger.Info("informational line")
	logger.Warn("warning line")
	logger.Error("error line")

	assert.Contains(t, low.String(), "informational line")
	assert.NotContains(t, low.String(), "warning line")
	assert.NotContains(t, low.String(), "error line")

	assert.Contains(t, high.String(), "warning line")
	assert.Contains(t, high.String(), "error line")
	assert.NotContains(t, high.String(), "informational line")
}

func TestSplitHandler_WithAttrsAppliesToBothStreams(t *testing.T) {
	var low, high bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	h := &splitHandler{
		low:  slog.NewTextHandler(&low, opts),
		high: slog.NewTextHandler(&high, opts),
	}
	logger := slog.New(h).With("build_id", "abc123")

	logger.Info("low line")
	logger.Error("high line")

	assert.Contains(t, low.String(), "build_id=abc123")
	assert.Contains(t, high.String(), "build_id=abc123")
}

func TestForBuildAndStep_TagAttributes(t *testing.T) {
	var low bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}
	h := &splitHandler{
		low:  slog.NewTextHandler(&low, opts),
		high: slog.NewTextHandler(&low, opts),
	}
	base := slog.New(h)

	buildLogger := ForBuild(base, "demo", "sim")
	stepLogger := Step(buildLogger, "connections")
	stepLogger.Info("building")

	out := low.String()
	assert.True(t, strings.Contains(out, "system=demo"))
	assert.True(t, strings.Contains(out, "mode=sim"))
	assert.True(t, strings.Contains(out, "step=connections"))
}

func TestNew_SplitsAcrossRealStreamsWithoutPanicking(t *testing.T) {
	logger := New(slog.LevelInfo)
	assert.NotPanics(t, func() {
		logger.Info("hello")
		logger.Warn("careful")
	})
}
