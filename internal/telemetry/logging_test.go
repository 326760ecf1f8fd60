package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestLogLevelFromEnv verifies LOG_LEVEL parsing and the INFO default.
func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			if got := LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSetupJSONOutput verifies the default handler emits JSON records with
// attributes intact.
func TestSetupJSONOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	logger := Setup(&buf)

	WithSubtask(WithTask(logger, "task_1_abcd"), "subtask_2").Info("task started", "max_parallel", 4)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "task started" || record["task_id"] != "task_1_abcd" {
		t.Errorf("record = %v, want msg and task_id", record)
	}
	if record["subtask_id"] != "subtask_2" {
		t.Errorf("record = %v, want subtask_id", record)
	}
}

// TestSetupTextFormat verifies LOG_FORMAT=text switches handlers.
func TestSetupTextFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "text")

	var buf bytes.Buffer
	logger := Setup(&buf)
	logger.Info("hello")

	if json.Valid(buf.Bytes()) {
		t.Errorf("expected text output, got JSON: %q", buf.String())
	}
}

// TestDebugLevelFiltering verifies records below the configured level are
// dropped.
func TestDebugLevelFiltering(t *testing.T) {
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("LOG_FORMAT", "")

	var buf bytes.Buffer
	logger := Setup(&buf)
	logger.Info("invisible")
	logger.Warn("visible")

	if bytes.Contains(buf.Bytes(), []byte("invisible")) {
		t.Error("info record emitted at WARN level")
	}
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Error("warn record missing at WARN level")
	}
}
