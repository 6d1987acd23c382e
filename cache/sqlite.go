package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Sqlite is a persistent cache backed by a SQLite database file, for
// CLI-style consumers that want memoized reads to survive restarts.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
//
// Reads and writes are best effort: a storage error behaves like a cache
// miss rather than failing the request that triggered it.
type Sqlite struct {
	db *sql.DB
}

// OpenSqlite opens or creates a cache database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*Sqlite, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Sqlite{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

// NewSqliteInMemory creates an in-memory cache database (useful for testing).
func NewSqliteInMemory() (*Sqlite, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory cache: %w", err)
	}
	c := &Sqlite{db: db}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

func (c *Sqlite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`
	_, err := c.db.Exec(schema)
	return err
}

func (c *Sqlite) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.QueryRow(`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *Sqlite) Set(key string, value []byte) {
	c.db.Exec(
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
}

func (c *Sqlite) Delete(key string) {
	c.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
}

// Close closes the database connection.
func (c *Sqlite) Close() error {
	return c.db.Close()
}
