package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/repositories"
)

// CachedCatalog wraps a Catalog with a sqlite-backed search cache. Only
// SearchTrack is cached; playlist reads and writes always hit the provider.
type CachedCatalog struct {
	inner  Catalog
	cache  *repositories.SearchCache
	logger *log.Logger
}

// NewCachedCatalog wraps inner with cache. The logger may be nil.
func NewCachedCatalog(inner Catalog, cache *repositories.SearchCache, logger *log.Logger) *CachedCatalog {
	return &CachedCatalog{inner: inner, cache: cache, logger: logger}
}

// SearchTrack serves fresh cached results when available, otherwise queries
// the provider and caches the outcome. Cache failures are logged and never
// fail the search.
func (c *CachedCatalog) SearchTrack(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
	query := SearchQuery(title, artist, album)

	cached, err := c.cache.Get(query)
	if err == nil {
		if c.logger != nil {
			c.logger.Debug("search cache hit", "query", query, "candidates", len(cached))
		}
		return cached, nil
	}
	if !errors.Is(err, repositories.ErrCacheMiss) && c.logger != nil {
		c.logger.Warn("search cache read failed", "query", query, "error", err)
	}

	candidates, err := c.inner.SearchTrack(ctx, title, artist, album)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(query, candidates); err != nil && c.logger != nil {
		c.logger.Warn("search cache write failed", "query", query, "error", err)
	}

	return candidates, nil
}

func (c *CachedCatalog) AddToPlaylist(ctx context.Context, playlistID, catalogID string) error {
	return c.inner.AddToPlaylist(ctx, playlistID, catalogID)
}

func (c *CachedCatalog) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	return c.inner.PlaylistTrackIDs(ctx, playlistID)
}

func (c *CachedCatalog) Name() string {
	return c.inner.Name()
}
