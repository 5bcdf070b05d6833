package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/retry"
	"github.com/desertthunder/tracksync/internal/services"
)

// SearchPolicy bounds catalog search retries: 3 attempts starting at 1s,
// doubling, capped at 10s.
func SearchPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:        3,
		InitialDelay:       time.Second,
		BackoffCoefficient: 2.0,
		MaxDelay:           10 * time.Second,
	}
}

// CommitPolicy bounds playlist mutation and verification retries: 10 attempts
// starting at 2s, doubling, capped at 60s.
func CommitPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:        10,
		InitialDelay:       2 * time.Second,
		BackoffCoefficient: 2.0,
		MaxDelay:           60 * time.Second,
	}
}

// Steps implements the four pipeline steps over the external collaborators.
// The same implementation backs both execution backends: standalone runs the
// steps through the local retry executor, the durable backend registers them
// as activities and delegates retrying to the engine.
type Steps struct {
	Catalog services.Catalog
	Decider *matching.Disambiguator
	Logger  *log.Logger

	// SearchRetry and CommitRetry override the default policies when their
	// MaxAttempts is set.
	SearchRetry retry.Policy
	CommitRetry retry.Policy
}

func (s *Steps) searchPolicy() retry.Policy {
	if s.SearchRetry.MaxAttempts > 0 {
		return s.SearchRetry
	}
	return SearchPolicy()
}

func (s *Steps) commitPolicy() retry.Policy {
	if s.CommitRetry.MaxAttempts > 0 {
		return s.CommitRetry
	}
	return CommitPolicy()
}

// Search queries the catalog for candidates. Returns the candidates and the
// number of attempts consumed.
func (s *Steps) Search(ctx context.Context, req models.SongRequest) ([]models.Candidate, int, error) {
	candidates, attempts, err := retry.DoValue(ctx, s.searchPolicy(), func(ctx context.Context) ([]models.Candidate, error) {
		return s.Catalog.SearchTrack(ctx, req.Title, req.Artist, req.Album)
	})
	if err != nil {
		return nil, attempts, fmt.Errorf("search failed for %s: %w", req, err)
	}

	if s.Logger != nil {
		s.Logger.Info("search completed", "song", req.String(), "candidates", len(candidates), "attempts", attempts)
	}
	return candidates, attempts, nil
}

// Match scores and ranks the candidates, then applies the disambiguation
// policy. Match never errors: reasoner failures degrade to a no_match
// decision inside the disambiguator.
func (s *Steps) Match(ctx context.Context, req models.SongRequest, candidates []models.Candidate) models.MatchDecision {
	ranked := matching.Rank(req, candidates)
	decision := s.Decider.Decide(ctx, req, ranked)

	if s.Logger != nil {
		s.Logger.Info("match decided", "song", req.String(), "method", decision.Method, "confidence", decision.Confidence)
	}
	return decision
}

// Commit adds the matched track to the playlist. The add is skipped when the
// track is already present, so re-running a commit never duplicates entries.
func (s *Steps) Commit(ctx context.Context, playlistID, catalogID string) (int, error) {
	attempts, err := retry.Do(ctx, s.commitPolicy(), func(ctx context.Context) error {
		ids, err := s.Catalog.PlaylistTrackIDs(ctx, playlistID)
		if err != nil {
			return err
		}
		if contains(ids, catalogID) {
			if s.Logger != nil {
				s.Logger.Debug("track already in playlist, skipping add", "catalog_id", catalogID)
			}
			return nil
		}
		return s.Catalog.AddToPlaylist(ctx, playlistID, catalogID)
	})
	if err != nil {
		return attempts, fmt.Errorf("failed to add track %s to playlist %s: %w", catalogID, playlistID, err)
	}
	return attempts, nil
}

// Verify re-reads the playlist and reports whether the track is present.
func (s *Steps) Verify(ctx context.Context, playlistID, catalogID string) (bool, int, error) {
	ids, attempts, err := retry.DoValue(ctx, s.commitPolicy(), func(ctx context.Context) ([]string, error) {
		return s.Catalog.PlaylistTrackIDs(ctx, playlistID)
	})
	if err != nil {
		return false, attempts, fmt.Errorf("failed to verify playlist %s: %w", playlistID, err)
	}
	return contains(ids, catalogID), attempts, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
