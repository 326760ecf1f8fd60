package config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			MaxParallelTasks: 4,
		},
		Recovery: RecoveryConfig{
			Enabled:             true,
			InitialIntervalMS:   100,
			MaxIntervalMS:       10_000,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
			TripAfter:           5,
		},
		History: HistoryConfig{
			Enabled: false,
			Path:    "", // resolved to ~/.taskfan/history.db when enabled
		},
		Executors: ExecutorsConfig{
			HTTPTimeoutSeconds: 30,
		},
	}
}
