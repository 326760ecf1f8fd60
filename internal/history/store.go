// Package history archives terminal task reports to SQLite. The archive is
// write-only audit data: nothing in the scheduler reads it back to resume or
// recover tasks.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// Entry is one archived task report row.
type Entry struct {
	TaskID        string    `json:"task_id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	Progress      float64   `json:"progress"`
	ExecutionTime float64   `json:"execution_time"`
	ArchivedAt    time.Time `json:"archived_at"`
}

// Store implements scheduler.ReportArchive on SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a SQLite-backed archive at the given path, creating parent
// directories and the schema as needed. Enables WAL mode and a busy timeout.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// OpenMemory creates an in-memory archive for testing.
func OpenMemory(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS task_reports (
		task_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		progress REAL NOT NULL,
		execution_ms REAL NOT NULL,
		subtasks TEXT NOT NULL,
		archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_task_reports_archived_at ON task_reports(archived_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveReport archives a terminal task report, replacing any earlier row for
// the same task id.
func (s *Store) SaveReport(ctx context.Context, report *scheduler.Report) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	subtasks, err := json.Marshal(report.Subtasks)
	if err != nil {
		return fmt.Errorf("failed to encode subtasks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_reports (task_id, name, status, progress, execution_ms, subtasks)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			progress = excluded.progress,
			execution_ms = excluded.execution_ms,
			subtasks = excluded.subtasks,
			archived_at = CURRENT_TIMESTAMP
	`, report.TaskID, report.Name, string(report.Status), report.Progress,
		report.ExecutionTime.Seconds()*1000, string(subtasks))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// List returns archived entries, newest first, up to limit. A limit <= 0
// means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT task_id, name, status, progress, execution_ms, archived_at
		FROM task_reports
		ORDER BY archived_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var executionMS float64
		if err := rows.Scan(&e.TaskID, &e.Name, &e.Status, &e.Progress, &executionMS, &e.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		e.ExecutionTime = executionMS
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the full archived report for a task id, or sql.ErrNoRows
// (wrapped) when none exists.
func (s *Store) Get(ctx context.Context, taskID string) (*scheduler.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var report scheduler.Report
	var status string
	var executionMS float64
	var subtasksJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, name, status, progress, execution_ms, subtasks
		FROM task_reports
		WHERE task_id = ?
	`, taskID).Scan(&report.TaskID, &report.Name, &status, &report.Progress, &executionMS, &subtasksJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no report found for task %q: %w", taskID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	report.Status = scheduler.TaskStatus(status)
	report.ExecutionTime = time.Duration(executionMS * float64(time.Millisecond))
	if err := json.Unmarshal([]byte(subtasksJSON), &report.Subtasks); err != nil {
		return nil, fmt.Errorf("failed to decode subtasks: %w", err)
	}
	for id := range report.Subtasks {
		report.SubtaskOrder = append(report.SubtaskOrder, id)
	}
	sort.Strings(report.SubtaskOrder)
	return &report, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
