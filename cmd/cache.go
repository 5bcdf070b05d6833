package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tracksync/internal/repositories"
	"github.com/urfave/cli/v3"
)

// withCache opens the cache database, runs fn, and closes it.
func (r *Runner) withCache(cmd *cli.Command, fn func(*repositories.SearchCache) error) error {
	r.reloadConfig(cmd.String("config"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	ttl := time.Duration(r.config.Database.CacheTTLMinutes) * time.Minute
	cache, err := repositories.NewSearchCache(db, ttl)
	if err != nil {
		return err
	}

	return fn(cache)
}

// CacheStats prints the number of cached search results.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	return r.withCache(cmd, func(cache *repositories.SearchCache) error {
		count, err := cache.Count()
		if err != nil {
			return err
		}
		return r.writePlain("Cached searches: %d\n", count)
	})
}

// CachePurge removes expired entries.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	return r.withCache(cmd, func(cache *repositories.SearchCache) error {
		removed, err := cache.PurgeExpired()
		if err != nil {
			return fmt.Errorf("purge failed: %w", err)
		}
		r.logger.Info("cache purged", "removed", removed)
		return r.writePlain("Removed %d expired entries\n", removed)
	})
}

// CacheClear removes all entries.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	return r.withCache(cmd, func(cache *repositories.SearchCache) error {
		removed, err := cache.Clear()
		if err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		r.logger.Info("cache cleared", "removed", removed)
		return r.writePlain("Removed %d entries\n", removed)
	})
}
