// Package logging provides the split-stream structured logger used across
// asdesigner: INFO and below to stdout, WARN/ERROR to stderr, controlled
// independently from the human-facing build progress printer.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

const (
	EnvLogLevel   = "AUTOWARE_SYSTEM_DESIGNER_LOG_LEVEL"
	EnvPrintLevel = "AUTOWARE_SYSTEM_DESIGNER_PRINT_LEVEL"
)

// splitHandler routes a record to one of two underlying handlers by level:
// everything below WARN goes to the low handler (stdout), WARN and above
// to the high handler (stderr).
type splitHandler struct {
	low  slog.Handler
	high slog.Handler
}

func (h *splitHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.low.Enabled(ctx, level) || h.high.Enabled(ctx, level)
}

func (h *splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.high.Handle(ctx, r)
	}
	return h.low.Handle(ctx, r)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{low: h.low.WithAttrs(attrs), high: h.high.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{low: h.low.WithGroup(name), high: h.high.WithGroup(name)}
}

// ParseLevel maps the four names this tool accepts to a slog.Level,
// defaulting to Info for an empty or unrecognized string.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a split-stream logger at the given level.
func New(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	return slog.New(&splitHandler{
		low:  slog.NewTextHandler(os.Stdout, opts),
		high: slog.NewTextHandler(os.Stderr, opts),
	})
}

// FromEnv builds a logger from EnvLogLevel, defaulting to info.
func FromEnv() *slog.Logger {
	return New(ParseLevel(os.Getenv(EnvLogLevel)))
}

// ForBuild tags every record this logger emits with the system/mode
// currently being built, so a single build's lines correlate without a
// request-id middleware.
func ForBuild(base *slog.Logger, system, mode string) *slog.Logger {
	return base.With("system", system, "mode", mode)
}

// Step further tags a build logger with the set_system pipeline step
// currently executing.
func Step(l *slog.Logger, step string) *slog.Logger {
	return l.With("step", step)
}

// Printer emits human-facing build progress lines to stdout, gated by its
// own level independent of the diagnostic logger (a build can run at
// LOG_LEVEL=error while PRINT_LEVEL=info still narrates each step).
type Printer struct {
	level slog.Level
}

// NewPrinter builds a Printer from EnvPrintLevel, defaulting to info.
func NewPrinter() *Printer {
	return &Printer{level: ParseLevel(os.Getenv(EnvPrintLevel))}
}

func (p *Printer) Infof(format string, args ...any) {
	if p.level <= slog.LevelInfo {
		printf(format, args...)
	}
}

func (p *Printer) Debugf(format string, args ...any) {
	if p.level <= slog.LevelDebug {
		printf(format, args...)
	}
}

func printf(format string, args ...any) {
	os.Stdout.WriteString(fmt.Sprintf(format, args...) + "\n")
}
