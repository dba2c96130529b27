// Package buildcache stores generated artifacts keyed by the interface
// identity token, so repeated builds of an unchanged interface skip
// generation entirely.
package buildcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrMiss indicates no cached entry exists for the identity token.
var ErrMiss = errors.New("cache miss")

// Cache is a SQLite-backed artifact store.
type Cache struct {
	db *sql.DB
	mu sync.Mutex
}

// Entry is one cached generation result.
type Entry struct {
	FileID string
	JSON   []byte
	Header []byte
	CUnit  []byte
	GoUnit []byte
	Docs   []byte
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS artifacts (
		file_id TEXT PRIMARY KEY,
		json BLOB NOT NULL,
		header BLOB NOT NULL,
		c_unit BLOB NOT NULL,
		go_unit BLOB NOT NULL,
		docs BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating artifacts table: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get loads the entry for one identity token. Returns ErrMiss when the
// token has never been cached.
func (c *Cache) Get(fileID string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &Entry{FileID: fileID}
	err := c.db.QueryRow(
		`SELECT json, header, c_unit, go_unit, docs FROM artifacts WHERE file_id = ?`,
		fileID,
	).Scan(&e.JSON, &e.Header, &e.CUnit, &e.GoUnit, &e.Docs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("loading cache entry: %w", err)
	}
	return e, nil
}

// Put stores one entry, replacing any previous artifacts for the token.
func (c *Cache) Put(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO artifacts (file_id, json, header, c_unit, go_unit, docs)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.FileID, e.JSON, e.Header, e.CUnit, e.GoUnit, e.Docs,
	)
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}
