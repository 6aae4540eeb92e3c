package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every document in one table, path as primary key.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the document database.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate document database: %w", err)
	}

	log.Printf("[docstore] Store initialized at %s", dbPath)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path        TEXT PRIMARY KEY,
		doc         TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM documents WHERE path = ?`, path).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	return json.RawMessage(doc), nil
}

func (s *SQLiteStore) Set(ctx context.Context, path string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (path, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		path, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) Merge(ctx context.Context, path string, partial any) error {
	rawPartial, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to marshal partial document %s: %w", path, err)
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(rawPartial, &overlay); err != nil {
		return fmt.Errorf("merge requires a JSON object: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin merge on %s: %w", path, err)
	}
	defer tx.Rollback()

	merged := make(map[string]json.RawMessage)
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM documents WHERE path = ?`, path).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// creating fresh
	case err != nil:
		return fmt.Errorf("failed to read document %s for merge: %w", path, err)
	default:
		if err := json.Unmarshal([]byte(existing), &merged); err != nil {
			// Unreadable stored doc: the overlay becomes the document.
			merged = make(map[string]json.RawMessage)
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal merged document %s: %w", path, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (path, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		path, string(raw), time.Now())
	if err != nil {
		return fmt.Errorf("failed to write merged document %s: %w", path, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
