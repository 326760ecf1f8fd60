package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// LogLevel reads the logging level from the LOG_LEVEL environment variable.
// Accepted values: DEBUG, INFO, WARN, ERROR. Defaults to INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the process logger and installs it as the slog default.
// LOG_FORMAT selects the handler: "text" for development, JSON otherwise.
// Output goes to w (typically os.Stderr, so the TUI and report output own
// stdout).
func Setup(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithTask returns a logger carrying the task id attribute.
func WithTask(logger *slog.Logger, taskID string) *slog.Logger {
	return logger.With("task_id", taskID)
}

// WithSubtask returns a logger carrying the subtask id attribute.
func WithSubtask(logger *slog.Logger, subtaskID string) *slog.Logger {
	return logger.With("subtask_id", subtaskID)
}
