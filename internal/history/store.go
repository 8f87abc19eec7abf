package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages fetch history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	// timeLayout is fixed width so stored timestamps sort lexically.
	timeLayout              = "2006-01-02T15:04:05.000000000Z07:00"
	attemptColumns          = "id, pass_id, media_path, outcome, subtitle_path, file_id, error_message, attempted_at"
)

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
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
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record appends an attempt. A zero At is stamped with the current time.
func (s *Store) Record(ctx context.Context, attempt Attempt) error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(attempt.MediaPath) == "" {
		return errors.New("attempt media path is empty")
	}
	at := attempt.At
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO attempts (pass_id, media_path, outcome, subtitle_path, file_id, error_message, attempted_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.PassID,
		attempt.MediaPath,
		attempt.Outcome,
		nullableString(attempt.SubtitlePath),
		nullableInt(attempt.FileID),
		nullableString(attempt.Error),
		at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts ORDER BY attempted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// Summary counts all recorded attempts by outcome.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{ByOutcome: make(map[string]int)}
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1), MAX(attempted_at) FROM attempts GROUP BY outcome`)
	if err != nil {
		return summary, fmt.Errorf("summarize attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome string
			count   int
			lastRaw sql.NullString
		)
		if err := rows.Scan(&outcome, &count, &lastRaw); err != nil {
			return summary, fmt.Errorf("scan summary: %w", err)
		}
		summary.ByOutcome[outcome] = count
		summary.Total += count
		if last, err := parseTimeString(lastRaw.String); err == nil && last.After(summary.LastAt) {
			summary.LastAt = last
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

// Prune deletes attempts recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM attempts WHERE attempted_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		res     sql.Result
		execErr error
	)
	err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
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

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		attempt      Attempt
		subtitlePath sql.NullString
		fileID       sql.NullInt64
		errorMessage sql.NullString
		atRaw        string
	)
	if err := scanner.Scan(
		&attempt.ID,
		&attempt.PassID,
		&attempt.MediaPath,
		&attempt.Outcome,
		&subtitlePath,
		&fileID,
		&errorMessage,
		&atRaw,
	); err != nil {
		return Attempt{}, err
	}
	attempt.SubtitlePath = subtitlePath.String
	attempt.FileID = fileID.Int64
	attempt.Error = errorMessage.String
	if at, err := parseTimeString(atRaw); err == nil {
		attempt.At = at
	}
	return attempt, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(timeLayout, value)
}
