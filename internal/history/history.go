// Package history records readiness runs in a local SQLite database.
//
// The store is append-only audit data: report operations insert one row
// per completed run, and the table is pruned newest-first down to the
// configured retention. Verdicts are always recomputed from live host
// state; nothing in here feeds back into analysis.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/errors"
)

// DefaultRecentLimit is how many runs Recent returns when the caller
// passes a non-positive limit.
const DefaultRecentLimit = 20

// timeLayout is a fixed-width RFC 3339 variant. Zero-padded fractional
// seconds keep lexical order identical to chronological order, so the
// created_at column can be compared as text in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded readiness check.
type Run struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	ProjectPath     string    `json:"project_path"`
	Ready           bool      `json:"ready"`
	Issues          []string  `json:"issues"`
	FindingCount    int       `json:"findings"`
	DependencyCount int       `json:"dependencies"`
	DurationMS      int64     `json:"duration_ms"`
}

// Store is a SQLite-backed run log.
type Store struct {
	db      *sql.DB
	path    string
	maxRuns int
}

// Open opens (creating if needed) the history database described by cfg.
// An empty path opens an in-memory store, which is useful for tests.
// cfg.MaxRuns <= 0 disables pruning entirely.
//
// Existing databases are integrity-checked before use. A corrupted file
// is reported rather than cleared: run history is audit data and cannot
// be rebuilt the way an index can.
func Open(cfg config.HistoryConfig) (*Store, error) {
	var dsn string
	if cfg.Path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to create history directory", err).
				WithDetail("path", dir)
		}

		if err := validateIntegrity(cfg.Path); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryCorrupt, "history database failed integrity check", err).
				WithDetail("path", cfg.Path).
				WithSuggestion("Remove the file to start a fresh history")
		}

		// WAL mode for concurrent access, busy_timeout for lock contention
		dsn = cfg.Path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to open history database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores some DSN params, so set pragmas explicitly
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to set pragma", err)
		}
	}

	s := &Store{db: db, path: cfg.Path, maxRuns: cfg.MaxRuns}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// validateIntegrity checks an existing database file before opening it
// for writes. A missing file is fine; it will be created.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// initSchema creates the runs table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- One row per readiness run, newest rows win at prune time
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		project_path TEXT NOT NULL,
		ready INTEGER NOT NULL,
		issues TEXT NOT NULL,
		findings INTEGER NOT NULL DEFAULT 0,
		dependencies INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.New(errors.ErrCodeHistoryFailed, "failed to initialize history schema", err)
	}
	return nil
}

// Record inserts one run and trims the table to the retention limit.
// A missing ID gets a fresh UUID and a zero Timestamp gets the current
// time; both are written back to run.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	} else {
		run.Timestamp = run.Timestamp.UTC()
	}

	issues := run.Issues
	if issues == nil {
		issues = []string{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return errors.New(errors.ErrCodeHistoryFailed, "failed to encode issues", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, project_path, ready, issues, findings, dependencies, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Timestamp.Format(timeLayout), run.ProjectPath, run.Ready,
		string(issuesJSON), run.FindingCount, run.DependencyCount, run.DurationMS)
	if err != nil {
		return errors.New(errors.ErrCodeHistoryFailed, "failed to record run", err)
	}

	if _, err := s.Prune(ctx); err != nil {
		return err
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit
// falls back to DefaultRecentLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, project_path, ready, issues, findings, dependencies, duration_ms
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to query recent runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			createdAt  string
			issuesJSON string
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.ProjectPath, &run.Ready,
			&issuesJSON, &run.FindingCount, &run.DependencyCount, &run.DurationMS); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to scan run row", err)
		}

		run.Timestamp, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to parse run timestamp", err)
		}
		if err := json.Unmarshal([]byte(issuesJSON), &run.Issues); err != nil {
			return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to decode run issues", err)
		}
		if run.Issues == nil {
			run.Issues = []string{}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeHistoryFailed, "failed to read run rows", err)
	}
	return runs, nil
}

// Prune deletes everything beyond the newest maxRuns rows and reports
// how many rows went away. A no-op when pruning is disabled.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.maxRuns <= 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE rowid NOT IN (
			SELECT rowid FROM runs
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, s.maxRuns)
	if err != nil {
		return 0, errors.New(errors.ErrCodeHistoryFailed, "failed to prune history", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, errors.New(errors.ErrCodeHistoryFailed, "failed to count pruned rows", err)
	}
	return deleted, nil
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, errors.New(errors.ErrCodeHistoryFailed, "failed to count runs", err)
	}
	return n, nil
}

// Path returns the database file location, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
