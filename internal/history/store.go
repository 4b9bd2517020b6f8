package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"liquidplan/internal/config"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Store manages run history persistence backed by SQLite.
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

// Open initializes or connects to the history database under the output directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
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

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a running row for a new run.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO runs (id, protocol, kind, num_samples, status, started_at, log_path)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.Protocol,
			run.Kind,
			run.NumSamples,
			StatusRunning,
			run.StartedAt.UTC().Format(time.RFC3339Nano),
			nullableString(run.LogPath),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// FinishRun records the outcome and step rows of a run in one transaction.
func (s *Store) FinishRun(ctx context.Context, id string, outcome Outcome) error {
	finished := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin finish tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE runs
             SET status = ?, finished_at = ?, tips_used = ?, tip_refills = ?,
                 error_kind = ?, error_message = ?, reagents_json = ?
             WHERE id = ?`,
			outcome.Status,
			finished,
			outcome.TipsUsed,
			outcome.TipRefills,
			nullableString(outcome.ErrorKind),
			nullableString(outcome.ErrorMessage),
			nullableString(outcome.ReagentsJSON),
			id,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}

		for _, step := range outcome.Steps {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO steps (run_id, number, description, executed, wait_seconds, duration_ms)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				id,
				step.Number,
				step.Description,
				boolToInt(step.Executed),
				step.WaitSeconds,
				step.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert step %d: %w", step.Number, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit finish: %w", err)
		}
		return nil
	})
}

const runColumns = "id, protocol, kind, num_samples, status, started_at, finished_at, tips_used, tip_refills, error_kind, error_message, log_path, reagents_json"

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
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
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its steps. A unique id prefix is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var run *Run
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) == 1:
		run = matches[0]
	default:
		for _, m := range matches {
			if m.ID == id {
				run = m
			}
		}
		if run == nil {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
	}

	steps, err := s.steps(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

func (s *Store) steps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, description, executed, wait_seconds, duration_ms FROM steps WHERE run_id = ? ORDER BY number`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var (
			step     Step
			executed int
			duration int64
		)
		if err := rows.Scan(&step.Number, &step.Description, &executed, &step.WaitSeconds, &duration); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Executed = executed != 0
		step.Duration = time.Duration(duration) * time.Millisecond
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// Clear removes every run and step.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM steps`); err != nil {
			return fmt.Errorf("clear steps: %w", err)
		}
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
		if err != nil {
			return fmt.Errorf("clear runs: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		status       string
		startedRaw   string
		finishedRaw  sql.NullString
		errorKind    sql.NullString
		errorMessage sql.NullString
		logPath      sql.NullString
		reagents     sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Protocol,
		&run.Kind,
		&run.NumSamples,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.TipsUsed,
		&run.TipRefills,
		&errorKind,
		&errorMessage,
		&logPath,
		&reagents,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.LogPath = logPath.String
	run.ReagentsJSON = reagents.String
	return &run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
