package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// TestLoadDefaults verifies missing files yield the built-in defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		filepath.Join(t.TempDir(), "nope.json"),
		filepath.Join(t.TempDir(), "nope.json"),
	)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Scheduler.MaxParallelTasks != 4 {
		t.Errorf("MaxParallelTasks = %d, want 4", cfg.Scheduler.MaxParallelTasks)
	}
	if !cfg.Recovery.Enabled || cfg.Recovery.TripAfter != 5 {
		t.Errorf("Recovery = %+v, want enabled with TripAfter 5", cfg.Recovery)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false by default")
	}
	if cfg.Executors.HTTPTimeoutSeconds != 30 {
		t.Errorf("HTTPTimeoutSeconds = %d, want 30", cfg.Executors.HTTPTimeoutSeconds)
	}
}

// TestLoadPrecedence verifies project config overrides global, which
// overrides defaults, and untouched keys survive each overlay.
func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	global := writeConfigFile(t, dir, "global.json", `{
		"scheduler": {"max_parallel_tasks": 8},
		"history": {"enabled": true, "path": "/tmp/global.db"}
	}`)
	project := writeConfigFile(t, dir, "project.json", `{
		"scheduler": {"max_parallel_tasks": 2}
	}`)

	cfg, err := Load(global, project)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Scheduler.MaxParallelTasks != 2 {
		t.Errorf("MaxParallelTasks = %d, want 2 (project wins)", cfg.Scheduler.MaxParallelTasks)
	}
	if !cfg.History.Enabled || cfg.History.Path != "/tmp/global.db" {
		t.Errorf("History = %+v, want global values kept", cfg.History)
	}
	if cfg.Recovery.TripAfter != 5 {
		t.Errorf("TripAfter = %d, want default 5 untouched", cfg.Recovery.TripAfter)
	}
}

// TestLoadMalformed verifies broken JSON is an error, not a silent skip.
func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	bad := writeConfigFile(t, dir, "bad.json", `{"scheduler": `)

	_, err := Load(bad, "")
	if err == nil {
		t.Fatal("Load() accepted malformed JSON")
	}
	if !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

// TestSaveRoundTrip verifies Save creates directories and Load reads the
// result back.
func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Scheduler.MaxParallelTasks = 16
	cfg.History.Enabled = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Scheduler.MaxParallelTasks != 16 || !loaded.History.Enabled {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
