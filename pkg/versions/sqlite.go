package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS content_versions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	subject      TEXT NOT NULL,
	version      INTEGER NOT NULL,
	content      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	word_count   INTEGER NOT NULL,
	UNIQUE(subject, version)
);
CREATE INDEX IF NOT EXISTS idx_content_versions_subject ON content_versions(subject, version DESC);
`

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and ensures the schema.
// The parent directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Err: fmt.Errorf("create store dir: %w", err)}
		}
	}

	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	// One connection serializes writers within the process; the immediate
	// transaction lock covers other processes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("ping sqlite: %w", err)}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("create schema: %w", err)}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// sqliteDSN builds a file: URI for path. The path is percent-escaped so that
// '?', '#' and '%' in file names cannot truncate it or drop the pragmas.
func sqliteDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve store path: %w", err)
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	u := url.URL{
		Scheme:   "file",
		Path:     abs,
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate",
	}
	return u.String(), nil
}

// SaveVersion implements Store.
func (s *SQLiteStore) SaveVersion(ctx context.Context, subject, content string) (int, error) {
	if err := validSubject("save", subject); err != nil {
		return 0, err
	}
	fail := func(err error) (int, error) {
		return 0, &StorageError{Op: "save", Subject: subject, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) + 1 FROM content_versions WHERE subject = ?", subject,
	).Scan(&next); err != nil {
		return fail(fmt.Errorf("next version: %w", err))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO content_versions (subject, version, content, content_hash, created_at, word_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subject, next, content, ContentHash(content), s.now().UTC().Format(time.RFC3339Nano), WordCount(content),
	); err != nil {
		return fail(fmt.Errorf("insert version: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("commit: %w", err))
	}
	return next, nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, subject string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, created_at, word_count FROM content_versions WHERE subject = ? ORDER BY version DESC",
		subject,
	)
	if err != nil {
		return nil, &StorageError{Op: "history", Subject: subject, Err: err}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.Version, &created, &e.WordCount); err != nil {
			return nil, &StorageError{Op: "history", Subject: subject, Err: err}
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "history", Subject: subject, Err: err}
	}
	return entries, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, subject string, version int) (*Record, error) {
	query := `SELECT version, content, content_hash, created_at, word_count
		FROM content_versions WHERE subject = ? AND version = ?`
	args := []any{subject, version}
	if version <= 0 {
		query = `SELECT version, content, content_hash, created_at, word_count
			FROM content_versions WHERE subject = ? ORDER BY version DESC LIMIT 1`
		args = []any{subject}
	}

	rec := Record{Subject: subject}
	var created string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&rec.Version, &rec.Content, &rec.ContentHash, &created, &rec.WordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(subject, version)
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Subject: subject, Err: err}
	}
	rec.CreatedAt = parseTime(created)
	return &rec, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
