// Package history persists per-bundle conversion results in SQLite so past
// batches can be inspected from the CLI.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"epconvert/internal/convert"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL,
    bundle_name TEXT NOT NULL,
    source_path TEXT NOT NULL,
    dest_path TEXT NOT NULL,
    success INTEGER NOT NULL,
    message TEXT NOT NULL,
    files_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_batch ON conversions(batch_id);
CREATE INDEX IF NOT EXISTS idx_conversions_bundle ON conversions(bundle_name);
`

// Entry is one recorded bundle conversion.
type Entry struct {
	ID         int64
	BatchID    string
	BundleName string
	SourcePath string
	DestPath   string
	Success    bool
	Message    string
	Files      []string
	CreatedAt  time.Time
}

// Store manages conversion history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordBatch stores every result of one batch under a shared batch id and
// returns that id.
func (s *Store) RecordBatch(ctx context.Context, outcome *convert.BatchOutcome) (string, error) {
	batchID := time.Now().UTC().Format("20060102-150405.000000000")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, res := range outcome.Results {
		files, err := json.Marshal(res.Files)
		if err != nil {
			return "", fmt.Errorf("marshal file list: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversions (
                batch_id, bundle_name, source_path, dest_path,
                success, message, files_json, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			batchID,
			filepath.Base(res.SourcePath),
			res.SourcePath,
			res.DestPath,
			boolToInt(res.Success),
			res.Message,
			string(files),
			now,
		)
		if err != nil {
			return "", fmt.Errorf("insert conversion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit history tx: %w", err)
	}
	return batchID, nil
}

// Recent returns the latest entries, newest first, capped at limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, bundle_name, source_path, dest_path,
                success, message, files_json, created_at
         FROM conversions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByBundle returns every recorded conversion of one bundle name, newest
// first.
func (s *Store) ByBundle(ctx context.Context, name string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, bundle_name, source_path, dest_path,
                success, message, files_json, created_at
         FROM conversions WHERE bundle_name = ? ORDER BY id DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("query history by bundle: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			success   int
			filesJSON string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &e.BundleName, &e.SourcePath, &e.DestPath,
			&success, &e.Message, &filesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Success = success != 0
		if filesJSON != "" {
			if err := json.Unmarshal([]byte(filesJSON), &e.Files); err != nil {
				return nil, fmt.Errorf("decode file list: %w", err)
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(createdAt)); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
