// Package cache provides a TTL'd key-value store backed by the relational
// database. It mirrors facts that also live elsewhere (the premium flag,
// the last-issued session token) and is never the source of truth.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Scolaria-io/scolaria/internal/database"
)

// Cache is a small get/put flag store with per-entry expiry.
type Cache struct {
	conn   *sql.DB
	dbType string
}

// New creates a cache over the shared SQL handle.
func New(db *database.DB) *Cache {
	return &Cache{conn: db.Conn(), dbType: db.Type()}
}

func (c *Cache) bind(query string) string {
	return database.Bind(c.dbType, query)
}

// Get returns the value for key, or ok=false when the key is absent or its
// entry has expired. Expired entries are treated as absent without waiting
// for cleanup.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt time.Time
	)
	err := c.conn.QueryRowContext(ctx,
		c.bind("SELECT value, expires_at FROM kv_entries WHERE key = ?"), key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if time.Now().After(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

// Put stores value under key with the given lifetime, replacing any
// existing entry.
func (c *Cache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	expiresAt := time.Now().UTC().Add(ttl)
	_, err := c.conn.ExecContext(ctx,
		c.bind(`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`),
		key, value, expiresAt,
	)
	return err
}

// Delete removes an entry. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.conn.ExecContext(ctx, c.bind("DELETE FROM kv_entries WHERE key = ?"), key)
	return err
}

// CleanupExpired removes entries whose expiry has passed.
func (c *Cache) CleanupExpired(ctx context.Context) error {
	_, err := c.conn.ExecContext(ctx,
		c.bind("DELETE FROM kv_entries WHERE expires_at < ?"), time.Now().UTC())
	return err
}
