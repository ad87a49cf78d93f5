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

// Outcome values recorded for the primary asset of a unit.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Entry is one processed request.
type Entry struct {
	ID          int64
	UnitID      string
	AssetID     string
	Extension   string
	Kind        string
	Title       string
	Destination string
	Outcome     string
	TagOutcome  string
	Error       string
	CreatedAt   time.Time
}

// Summary aggregates ledger rows by outcome.
type Summary struct {
	Total   int
	Success int
	Skipped int
	Failed  int
	Last    time.Time
}

// Store persists the download ledger in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Units record concurrently; a single connection serializes writers
	// without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns its row id. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.UnitID) == "" {
		return 0, errors.New("entry unit id is required")
	}
	if strings.TrimSpace(entry.Outcome) == "" {
		return 0, errors.New("entry outcome is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	kind := entry.Kind
	if kind == "" {
		kind = "unknown"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (
            unit_id, asset_id, extension, kind, title, destination,
            outcome, tag_outcome, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UnitID,
		entry.AssetID,
		nullableString(entry.Extension),
		kind,
		nullableString(entry.Title),
		nullableString(entry.Destination),
		entry.Outcome,
		nullableString(entry.TagOutcome),
		nullableString(entry.Error),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert download: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const entryColumns = "id, unit_id, asset_id, extension, kind, title, destination, outcome, tag_outcome, error_message, created_at"

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM downloads ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return entries, nil
}

// Summarize counts ledger rows by outcome.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var (
		summary Summary
		last    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
                MAX(created_at)
         FROM downloads`,
		OutcomeSuccess, OutcomeSkipped, OutcomeFailed,
	).Scan(&summary.Total, &summary.Success, &summary.Skipped, &summary.Failed, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize downloads: %w", err)
	}
	summary.Last = parseTime(last)
	return summary, nil
}

// Clear removes every entry and returns the number deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads`)
	if err != nil {
		return 0, fmt.Errorf("clear downloads: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry       Entry
		extension   sql.NullString
		title       sql.NullString
		destination sql.NullString
		tagOutcome  sql.NullString
		errorMsg    sql.NullString
		createdRaw  sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.UnitID,
		&entry.AssetID,
		&extension,
		&entry.Kind,
		&title,
		&destination,
		&entry.Outcome,
		&tagOutcome,
		&errorMsg,
		&createdRaw,
	); err != nil {
		return Entry{}, fmt.Errorf("scan download: %w", err)
	}
	entry.Extension = extension.String
	entry.Title = title.String
	entry.Destination = destination.String
	entry.TagOutcome = tagOutcome.String
	entry.Error = errorMsg.String
	entry.CreatedAt = parseTime(createdRaw)
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
