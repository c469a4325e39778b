package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/exemplar-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/exemplar-cli/internal/core/domain"
	"github.com/custodia-labs/exemplar-cli/internal/core/ports/driven"
)

// Ensure PageStore implements the interface.
var _ driven.PageStore = (*PageStore)(nil)

// PageStore caches extracted page text in a SQLite database.
type PageStore struct {
	db   *sql.DB
	path string
}

// NewPageStore creates a SQLite page cache at the specified data
// directory. If dataDir is empty, defaults to ~/.exemplar/data/pages.db.
func NewPageStore(dataDir string) (*PageStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".exemplar", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pages.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &PageStore{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// GetPages returns the cached pages for (path, contentHash).
func (s *PageStore) GetPages(ctx context.Context, path, contentHash string) ([]domain.Page, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_number, text FROM pages
		WHERE path = ? AND content_hash = ?
		ORDER BY page_number
	`, path, contentHash)
	if err != nil {
		return nil, false, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var page domain.Page
		if err := rows.Scan(&page.Number, &page.Text); err != nil {
			return nil, false, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, false, nil
	}
	return pages, true, nil
}

// PutPages stores extracted pages for (path, contentHash), replacing
// any older hash for the same path.
func (s *PageStore) PutPages(ctx context.Context, path, contentHash string, pages []domain.Page) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete stale pages: %w", err)
	}
	for _, page := range pages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pages (path, content_hash, page_number, text)
			VALUES (?, ?, ?, ?)
		`, path, contentHash, page.Number, page.Text)
		if err != nil {
			return fmt.Errorf("insert page %d: %w", page.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteDocument drops all cached pages for a path.
func (s *PageStore) DeleteDocument(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete pages: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *PageStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *PageStore) Path() string {
	return s.path
}

// migrate applies any unapplied versioned migrations from the embedded
// filesystem.
func (s *PageStore) migrate(fsys embed.FS) error {
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
		// Extract version number (e.g., "001_pages.up.sql" -> 1)
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

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
