package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"podforge/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the ledger is disposable diagnostics, so users can delete it.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the run ledger at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// CreateRun inserts a new run in pending state.
func (s *Store) CreateRun(ctx context.Context, id, title, workDir string) (Run, error) {
	if strings.TrimSpace(id) == "" {
		return Run{}, services.Wrap(services.ErrValidation, "runstore", "create run", "run id required", nil)
	}
	now := time.Now().UTC()
	run := Run{
		ID:        id,
		Title:     strings.TrimSpace(title),
		WorkDir:   workDir,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, title, work_dir, status, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', ?, ?)`,
		run.ID, run.Title, run.WorkDir, string(run.Status), run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// UpdateStatus moves a run to the given status, recording an error message
// for failures.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	if _, ok := statusSet[status]; !ok {
		return services.Wrap(services.ErrValidation, "runstore", "update status",
			fmt.Sprintf("unknown status %q", status), nil)
	}
	err := s.execWithRetry(ctx,
		"UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(status), strings.TrimSpace(errorMessage), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// SetTitle fills the run title once the analysis produces one.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	err := s.execWithRetry(ctx,
		"UPDATE runs SET title = ?, updated_at = ? WHERE id = ?",
		strings.TrimSpace(title), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run title: %w", err)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, work_dir, status, error_message, created_at, updated_at FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "runstore", "get run", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs ordered newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, work_dir, status, error_message, created_at, updated_at FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var status string
	err := row.Scan(&run.ID, &run.Title, &run.WorkDir, &status, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	return run, nil
}

// RecordTransitions appends the engine trace for a run in one transaction.
func (s *Store) RecordTransitions(ctx context.Context, runID string, records []TransitionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transitions tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := time.Now().UTC()
		for i, record := range records {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO transitions (run_id, seq, from_state, action, to_state, section_id, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, i+1, record.FromState, record.Action, record.ToState, record.SectionID, now)
			if err != nil {
				return fmt.Errorf("insert transition %d: %w", i+1, err)
			}
		}
		return tx.Commit()
	})
}

// TransitionsForRun returns the persisted trace ordered by sequence.
func (s *Store) TransitionsForRun(ctx context.Context, runID string) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, from_state, action, to_state, section_id, created_at
		 FROM transitions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var record TransitionRecord
		if err := rows.Scan(&record.RunID, &record.Seq, &record.FromState, &record.Action,
			&record.ToState, &record.SectionID, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
