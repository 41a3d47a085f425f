// Package cache stores rewritten bundles in a sqlite database under the
// project's .graphir/ directory. The cache key is the fingerprint of the
// input graph plus a format version, so entries are reused until either
// the graph or the rewrite output format changes.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funvibe/graphir/internal/config"
	"github.com/funvibe/graphir/internal/ir"
)

// formatVersion is bumped when the serialized bundle format changes.
// This ensures stale cached rewrites are recomputed.
const formatVersion = "v1"

const schema = `
CREATE TABLE IF NOT EXISTS rewrites (
	key        TEXT PRIMARY KEY,
	bundle     BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Cache is a handle on the sqlite rewrite cache. Safe for use from a
// single process; sqlite's locking covers concurrent CLI invocations.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache under dir/.graphir/.
func Open(dir string) (*Cache, error) {
	cacheDir := filepath.Join(dir, config.CacheDirName)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	path := filepath.Join(cacheDir, config.CacheFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key computes the cache key for a bundle.
func Key(b *ir.Bundle) (string, error) {
	fp, err := b.Fingerprint()
	if err != nil {
		return "", err
	}
	return fp + "-" + formatVersion, nil
}

// Lookup returns the cached rewrite of b, or nil if not cached.
func (c *Cache) Lookup(b *ir.Bundle) (*ir.Bundle, error) {
	key, err := Key(b)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = c.db.QueryRow(`SELECT bundle FROM rewrites WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	cached, err := ir.DeserializeBundle(data)
	if err != nil {
		// A corrupt entry is evicted rather than surfaced.
		c.db.Exec(`DELETE FROM rewrites WHERE key = ?`, key)
		return nil, nil
	}
	return cached, nil
}

// Store records rewritten as the cached rewrite of input.
func (c *Cache) Store(input, rewritten *ir.Bundle) error {
	key, err := Key(input)
	if err != nil {
		return err
	}
	data, err := rewritten.Serialize()
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO rewrites (key, bundle, created_at) VALUES (?, ?, ?)`,
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Clean removes all cached rewrites.
func (c *Cache) Clean() error {
	_, err := c.db.Exec(`DELETE FROM rewrites`)
	return err
}

// Len reports the number of cached entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM rewrites`).Scan(&n)
	return n, err
}
