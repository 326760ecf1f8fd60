package config

// SchedulerConfig tunes the task scheduler core.
type SchedulerConfig struct {
	// MaxParallelTasks bounds the number of subtasks executing
	// simultaneously per task.
	MaxParallelTasks int `json:"max_parallel_tasks,omitempty"`
}

// RecoveryConfig tunes the single-retry error recovery hook.
type RecoveryConfig struct {
	Enabled             bool    `json:"enabled"`
	InitialIntervalMS   int     `json:"initial_interval_ms,omitempty"`
	MaxIntervalMS       int     `json:"max_interval_ms,omitempty"`
	Multiplier          float64 `json:"multiplier,omitempty"`
	RandomizationFactor float64 `json:"randomization_factor,omitempty"`
	// TripAfter is the number of consecutive failures of one action type
	// after which retries for that type are suppressed.
	TripAfter uint32 `json:"trip_after,omitempty"`
}

// HistoryConfig controls the SQLite archive of terminal task reports.
type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// ExecutorsConfig tunes the built-in action executors.
type ExecutorsConfig struct {
	// CommandWorkDir is the working directory for command actions
	// (defaults to the process working directory).
	CommandWorkDir string `json:"command_workdir,omitempty"`
	// HTTPTimeoutSeconds bounds each http action (default 30).
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler"`
	Recovery  RecoveryConfig  `json:"recovery"`
	History   HistoryConfig   `json:"history"`
	Executors ExecutorsConfig `json:"executors"`
}
