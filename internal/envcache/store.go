// Package envcache persists per-document fingerprints between builds so
// incremental builds can skip documents whose inputs did not change.
package envcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/inful/mdfp"
	_ "modernc.org/sqlite"
)

// Entry is the recorded state of one written document.
type Entry struct {
	Builder     string
	Docname     string
	Fingerprint string
	Title       string
	WrittenAt   time.Time
}

// Store is a SQLite-backed fingerprint store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the store at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		builder TEXT NOT NULL,
		docname TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		written_at INTEGER NOT NULL,
		PRIMARY KEY (builder, docname)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Fingerprint returns the stored fingerprint of docname for builder.
func (s *Store) Fingerprint(ctx context.Context, builder, docname string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fp string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint FROM documents WHERE builder = ? AND docname = ?",
		builder, docname,
	).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query fingerprint: %w", err)
	}
	return fp, true, nil
}

// Record stores the fingerprint of a freshly written document.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.WrittenAt.IsZero() {
		e.WrittenAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (builder, docname, fingerprint, title, written_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(builder, docname) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			title = excluded.title,
			written_at = excluded.written_at`,
		e.Builder, e.Docname, e.Fingerprint, e.Title, e.WrittenAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// Entries lists every recorded document for builder, ordered by docname.
func (s *Store) Entries(ctx context.Context, builder string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT builder, docname, fingerprint, title, written_at FROM documents WHERE builder = ? ORDER BY docname",
		builder,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var writtenAt int64
		if err := rows.Scan(&e.Builder, &e.Docname, &e.Fingerprint, &e.Title, &writtenAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.WrittenAt = time.Unix(writtenAt, 0)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Prune removes entries for builder whose docname is not in keep.
func (s *Store) Prune(ctx context.Context, builder string, keep []string) (int, error) {
	entries, err := s.Entries(ctx, builder)
	if err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		live[name] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, e := range entries {
		if _, ok := live[e.Docname]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			"DELETE FROM documents WHERE builder = ? AND docname = ?", builder, e.Docname); err != nil {
			return removed, fmt.Errorf("prune entry: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Reset removes every entry.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Fingerprint computes the fingerprint of a document source together with
// the settings it was rendered with. Settings keys are sorted so the result
// is independent of map order.
func Fingerprint(source []byte, builder string, settings map[string]any) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "builder: %s\n", builder)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, settings[k])
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(b.String(), "\n"), string(source))
}
