// Package logging provides the structured JSON logger shared by the
// simulator, its viewers and the telemetry services. Entries are written by
// log/slog; attributes stored in a context with WithFields travel with it
// into every entry logged under that context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// LevelEnvVar selects the minimum log level. Any level slog understands is
// accepted: DEBUG, INFO, WARN, ERROR, optionally with an offset like INFO+2.
const LevelEnvVar = "SLOSHTVC_LOG_LEVEL"

// FloatDigits is the number of significant digits kept for float attributes
const FloatDigits = 6

// Logger wraps slog.Logger with context-carried attributes
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger writing JSON to stdout at the level named by
// SLOSHTVC_LOG_LEVEL, INFO when unset
func NewLogger() *Logger {
	return NewLoggerWithWriter(os.Stdout)
}

// NewLoggerWithWriter is NewLogger with a caller-chosen destination. The
// terminal viewer uses it to keep log lines off the screen it draws on.
func NewLoggerWithWriter(w io.Writer) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       LevelFromEnv(),
		ReplaceAttr: compactFloats,
	})
	return &Logger{slog.New(handler)}
}

// WithComponent returns a child logger that tags every entry with component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{l.Logger.With("component", component)}
}

// LogWithContext logs msg with the attributes stored in ctx followed by args
func (l *Logger) LogWithContext(ctx context.Context, level slog.Level, msg string, args ...any) {
	if fields := Fields(ctx); len(fields) > 0 {
		args = append(fields, args...)
	}
	l.Log(ctx, level, msg, args...)
}

// Info logs at INFO
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at WARN
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at ERROR with err under the "error" key
func (l *Logger) Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.LogWithContext(ctx, slog.LevelError, msg, args...)
}

// Debug logs at DEBUG
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.LogWithContext(ctx, slog.LevelDebug, msg, args...)
}

type fieldsKey struct{}

// WithFields returns a context whose log entries carry args, given as
// alternating keys and values, ahead of their own attributes
func WithFields(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := Fields(ctx)
	fields := make([]any, 0, len(prev)+len(args))
	fields = append(append(fields, prev...), args...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// WithClient tags entries logged for one telemetry connection
func WithClient(ctx context.Context, clientID uint64, name string) context.Context {
	return WithFields(ctx, "client_id", clientID, "client_name", name)
}

// Fields returns a copy of the attributes stored in ctx
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return append([]any(nil), fields...)
}

// LevelFromEnv reads SLOSHTVC_LOG_LEVEL, falling back to INFO
func LevelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(os.Getenv(LevelEnvVar)))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// compactFloats trims float attributes to FloatDigits significant digits and
// writes NaN and infinities as strings, which JSON cannot carry as numbers.
// A diverging world logs exactly those values.
func compactFloats(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindFloat64 {
		return a
	}
	v := a.Value.Float64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return slog.String(a.Key, strconv.FormatFloat(v, 'g', -1, 64))
	}
	trimmed, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', FloatDigits, 64), 64)
	if err != nil {
		return a
	}
	return slog.Float64(a.Key, trimmed)
}
