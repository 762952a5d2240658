// Package cache provides a sqlite-backed TTL cache for scraped page text.
// A cache hit serves a page without consuming a scrape call or budget.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scrape_cache (
	url        TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);`

// Cache stores scraped page text keyed by canonical URL.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "cache: create schema")
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached text for a URL if present and fresh.
func (c *Cache) Get(ctx context.Context, url string) (title, content string, ok bool, err error) {
	var fetchedAt int64
	row := c.db.QueryRowContext(ctx,
		`SELECT title, content, fetched_at FROM scrape_cache WHERE url = ?`, url)
	if err := row.Scan(&title, &content, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, eris.Wrap(err, "cache: get")
	}
	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return "", "", false, nil
	}
	return title, content, true, nil
}

// Put stores (or refreshes) the text for a URL.
func (c *Cache) Put(ctx context.Context, url, title, content string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO scrape_cache (url, title, content, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET title = excluded.title, content = excluded.content, fetched_at = excluded.fetched_at`,
		url, title, content, time.Now().Unix())
	if err != nil {
		return eris.Wrap(err, "cache: put")
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
