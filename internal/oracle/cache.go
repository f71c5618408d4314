package oracle

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is a write-once response store keyed by prompt hash. A cached
// negotiation replays byte-identically: the same prompts produce the
// same transcript with no oracle traffic.
type Cache struct {
	db    *sql.DB
	inner Oracle
}

const cacheSchema = `CREATE TABLE IF NOT EXISTS replies (
	key        TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// NewCache opens (creating if needed) the sqlite store at path and
// wraps inner with get-or-compute semantics.
func NewCache(path string, inner Oracle) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Cache{db: db, inner: inner}, nil
}

// WithInner returns a cache backed by the same store but computing
// misses through a different oracle. Used to give both negotiation
// roles one store without opening the database twice; Close the
// original cache only.
func (c *Cache) WithInner(inner Oracle) *Cache {
	return &Cache{db: c.db, inner: inner}
}

// Key derives the cache key for a prompt.
func Key(p Prompt) string {
	h := sha256.New()
	h.Write([]byte(p.System))
	h.Write([]byte("|||"))
	h.Write([]byte(p.User))
	h.Write([]byte("|||"))
	h.Write([]byte(p.Meta))
	return hex.EncodeToString(h.Sum(nil))
}

// Invoke returns the cached reply when present, otherwise computes it
// through the inner oracle and stores it. Entries are never updated.
func (c *Cache) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	key := Key(p)

	var text string
	err := c.db.QueryRowContext(ctx, `SELECT text FROM replies WHERE key = ?`, key).Scan(&text)
	switch {
	case err == nil:
		return Reply{Text: text, CacheHit: true}, nil
	case err != sql.ErrNoRows:
		return Reply{}, fmt.Errorf("cache lookup: %w", err)
	}

	reply, err := c.inner.Invoke(ctx, p)
	if err != nil {
		return Reply{}, err
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO replies (key, text, created_at) VALUES (?, ?, ?)`,
		key, reply.Text, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return Reply{}, fmt.Errorf("cache store: %w", err)
	}

	return reply, nil
}

// Entries reports how many replies are stored.
func (c *Cache) Entries() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM replies`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}
