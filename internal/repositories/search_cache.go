package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
)

// ErrCacheMiss indicates the query has no fresh cached result.
var ErrCacheMiss = errors.New("cache miss")

const searchCacheSchema = `
CREATE TABLE IF NOT EXISTS search_cache (
	query TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_cache_created_at ON search_cache(created_at);
`

// SearchCache stores catalog search results keyed by the search expression.
// Entries older than the TTL are treated as misses and purged lazily.
type SearchCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSearchCache creates a cache over the given database, ensuring the schema
// exists. A non-positive ttl disables expiry.
func NewSearchCache(db *sql.DB, ttl time.Duration) (*SearchCache, error) {
	if _, err := db.Exec(searchCacheSchema); err != nil {
		return nil, fmt.Errorf("failed to create search_cache schema: %w", err)
	}
	return &SearchCache{db: db, ttl: ttl}, nil
}

// Get returns the cached candidates for query, or [ErrCacheMiss] when the
// entry is absent or stale.
func (c *SearchCache) Get(query string) ([]models.Candidate, error) {
	var payload string
	var createdAt time.Time

	row := c.db.QueryRow("SELECT payload, created_at FROM search_cache WHERE query = ?", query)
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read search cache: %w", err)
	}

	if c.ttl > 0 && time.Since(createdAt) > c.ttl {
		_, _ = c.db.Exec("DELETE FROM search_cache WHERE query = ?", query)
		return nil, ErrCacheMiss
	}

	var candidates []models.Candidate
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode cached candidates: %w", err)
	}

	return candidates, nil
}

// Put stores candidates for query, replacing any existing entry.
func (c *SearchCache) Put(query string, candidates []models.Candidate) error {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("failed to encode candidates: %w", err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO search_cache (query, payload, created_at) VALUES (?, ?, ?)",
		query, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}

	return nil
}

// Clear removes every cached entry and returns how many were deleted.
func (c *SearchCache) Clear() (int64, error) {
	result, err := c.db.Exec("DELETE FROM search_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear search cache: %w", err)
	}
	return result.RowsAffected()
}

// PurgeExpired removes entries older than the TTL and returns how many were
// deleted. No-op when expiry is disabled.
func (c *SearchCache) PurgeExpired() (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-c.ttl)
	result, err := c.db.Exec("DELETE FROM search_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge search cache: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of cached entries.
func (c *SearchCache) Count() (int, error) {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM search_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count search cache: %w", err)
	}
	return count, nil
}
