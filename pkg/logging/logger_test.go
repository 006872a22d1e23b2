package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
)

// entries decodes one JSON object per line of buf
func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func onlyEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	all := entries(t, buf)
	if len(all) != 1 {
		t.Fatalf("got %d log entries, want 1: %s", len(all), buf.String())
	}
	return all[0]
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"Error", slog.LevelError},
		{" debug ", slog.LevelDebug},
		{"INFO+2", slog.LevelInfo + 2},
		{"chatty", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(LevelEnvVar, tt.value)
			if got := LevelFromEnv(); got != tt.want {
				t.Errorf("LevelFromEnv() with %q = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNewLoggerWithWriter_HonoursLevel(t *testing.T) {
	t.Setenv(LevelEnvVar, "WARN")
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf)
	ctx := context.Background()

	logger.Debug(ctx, "stepping")
	logger.Info(ctx, "frame sent")
	logger.Warn(ctx, "frame dropped")

	entry := onlyEntry(t, &buf)
	if entry["msg"] != "frame dropped" || entry["level"] != "WARN" {
		t.Errorf("entry = %v", entry)
	}
}

func TestWithComponent(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	var buf bytes.Buffer
	root := NewLoggerWithWriter(&buf)
	presenter := root.WithComponent("tcell-presenter")

	presenter.Info(context.Background(), "pause toggled", "running", false)
	entry := onlyEntry(t, &buf)
	if entry["component"] != "tcell-presenter" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["running"] != false {
		t.Errorf("running = %v", entry["running"])
	}

	buf.Reset()
	root.Info(context.Background(), "world created")
	if _, ok := onlyEntry(t, &buf)["component"]; ok {
		t.Error("parent logger should not carry the child's component")
	}
}

func TestWithFields_CarriedByContext(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf)

	conn := WithFields(context.Background(), "remote", "127.0.0.1:5000")
	client := WithClient(conn, 42, "gust-client")
	logger.Info(client, "Control command applied", "op", "add_force")

	entry := onlyEntry(t, &buf)
	want := map[string]any{
		"remote":      "127.0.0.1:5000",
		"client_id":   float64(42),
		"client_name": "gust-client",
		"op":          "add_force",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}

	if got := len(Fields(conn)); got != 2 {
		t.Errorf("parent context has %d fields after deriving a child, want 2", got)
	}
	if Fields(context.Background()) != nil {
		t.Error("a bare context should carry no fields")
	}
}

func TestWithFields_NoArgs(t *testing.T) {
	ctx := context.Background()
	if WithFields(ctx) != ctx {
		t.Error("WithFields without args should return ctx unchanged")
	}
}

func TestFloatAttributes(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  any
	}{
		{"trimmed to six digits", 1.23456789, 1.23457},
		{"short values kept", 0.001, 0.001},
		{"large values", 123456789.0, 1.23457e8},
		{"negative", -9.80665, -9.80665},
		{"nan", math.NaN(), "NaN"},
		{"positive infinity", math.Inf(1), "+Inf"},
		{"negative infinity", math.Inf(-1), "-Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(LevelEnvVar, "")
			var buf bytes.Buffer
			NewLoggerWithWriter(&buf).Info(context.Background(), "sample", "altitude", tt.value)

			if got := onlyEntry(t, &buf)["altitude"]; got != tt.want {
				t.Errorf("altitude = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	t.Setenv(LevelEnvVar, "")
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf)

	logger.Error(context.Background(), "reset failed", errors.New("scenario rejected"), "tick", 12)
	entry := onlyEntry(t, &buf)
	if entry["level"] != "ERROR" || entry["error"] != "scenario rejected" || entry["tick"] != float64(12) {
		t.Errorf("entry = %v", entry)
	}

	buf.Reset()
	logger.Error(context.Background(), "reset failed", nil)
	if _, ok := onlyEntry(t, &buf)["error"]; ok {
		t.Error("a nil error should not add an error attribute")
	}
}
