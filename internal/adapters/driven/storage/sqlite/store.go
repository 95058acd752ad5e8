package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/fiches/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RunStore = (*Store)(nil)

// Store is the SQLite run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.fiches/data/runs.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".fiches", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	// WAL mode for concurrent readers; foreign keys on every pooled connection
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_runs.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRun stores or updates a run record.
func (s *Store) SaveRun(ctx context.Context, run domain.RunRecord) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, started_at, finished_at, attempted, succeeded, failed, skipped, total_fragments, aborted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			attempted = excluded.attempted,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			skipped = excluded.skipped,
			total_fragments = excluded.total_fragments,
			aborted = excluded.aborted
	`, run.ID, run.Source, formatTime(run.StartedAt), formatNullableTime(run.FinishedAt),
		run.Attempted, run.Succeeded, run.Failed, run.Skipped, run.TotalFragments,
		boolToInt(run.Aborted))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// SaveOutcome stores one document outcome for a run.
// The run must already exist.
func (s *Store) SaveOutcome(ctx context.Context, o domain.DocumentOutcome) error {
	if o.RunID == "" || o.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	warnings, err := json.Marshal(o.Warnings)
	if err != nil {
		return fmt.Errorf("marshalling warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_outcomes (run_id, document_id, path, status, stage, cause, fragments, warnings, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, document_id) DO UPDATE SET
			path = excluded.path,
			status = excluded.status,
			stage = excluded.stage,
			cause = excluded.cause,
			fragments = excluded.fragments,
			warnings = excluded.warnings,
			elapsed_ms = excluded.elapsed_ms
	`, o.RunID, o.DocumentID, o.Path, string(o.Status), nullString(string(o.Stage)),
		nullString(o.Cause), o.Fragments, string(warnings), o.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("saving document outcome: %w", err)
	}
	return nil
}

const runColumns = `id, source, started_at, finished_at, attempted, succeeded, failed, skipped, total_fragments, aborted`

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Outcomes returns every document outcome for a run, ordered by path.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]domain.DocumentOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, document_id, path, status, stage, cause, fragments, warnings, elapsed_ms
		FROM document_outcomes
		WHERE run_id = ?
		ORDER BY path
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.DocumentOutcome //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			o                      domain.DocumentOutcome
			status                 string
			stage, cause, warnings sql.NullString
			elapsedMS              int64
		)
		if err := rows.Scan(&o.RunID, &o.DocumentID, &o.Path, &status, &stage, &cause,
			&o.Fragments, &warnings, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Status = domain.DocumentStatus(status)
		o.Stage = domain.Stage(stage.String)
		o.Cause = cause.String
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if warnings.Valid && warnings.String != jsonNull {
			if err := json.Unmarshal([]byte(warnings.String), &o.Warnings); err != nil {
				return nil, fmt.Errorf("unmarshalling warnings: %w", err)
			}
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return outcomes, nil
}

// jsonNull is the JSON representation of null.
const jsonNull = "null"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var (
		run        domain.RunRecord
		startedAt  string
		finishedAt sql.NullString
		aborted    int
	)
	err := row.Scan(&run.ID, &run.Source, &startedAt, &finishedAt, &run.Attempted,
		&run.Succeeded, &run.Failed, &run.Skipped, &run.TotalFragments, &aborted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
	run.FinishedAt = parseNullableTime(finishedAt)
	run.Aborted = aborted != 0
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// formatNullableTime converts a time to RFC3339 or nil if zero.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{} // Return zero time on parse error
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
