package workflow

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/retry"
	"github.com/desertthunder/tracksync/internal/services"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// fatalErrorType tags activity errors the engine must not retry. It mirrors
// the classification [retry.Fatal] applies in standalone mode.
const fatalErrorType = "FatalError"

// Activities are the pipeline steps as registered with the durable engine.
// They call the collaborators directly: retrying is the engine's job here,
// so the local retry executor is not involved.
type Activities struct {
	Catalog services.Catalog
	Decider *matching.Disambiguator
	Logger  *log.Logger
}

// SearchResult carries the candidates plus the attempt number the engine
// reached, so the workflow can report retry counts.
type SearchResult struct {
	Candidates []models.Candidate
	Attempt    int
}

// CommitResult reports the attempt number of a successful commit.
type CommitResult struct {
	Attempt int
}

// VerifyResult reports presence and the attempt number.
type VerifyResult struct {
	Present bool
	Attempt int
}

// Search queries the catalog for candidates.
func (a *Activities) Search(ctx context.Context, req models.SongRequest) (SearchResult, error) {
	candidates, err := a.Catalog.SearchTrack(ctx, req.Title, req.Artist, req.Album)
	if err != nil {
		return SearchResult{}, asActivityError(err)
	}

	if a.Logger != nil {
		a.Logger.Info("search completed", "song", req.String(), "candidates", len(candidates))
	}
	return SearchResult{Candidates: candidates, Attempt: int(activity.GetInfo(ctx).Attempt)}, nil
}

// Match scores, ranks, and disambiguates. It never returns an error: reasoner
// failures degrade to a no_match decision inside the disambiguator, so the
// engine has nothing to retry.
func (a *Activities) Match(ctx context.Context, req models.SongRequest, candidates []models.Candidate) (models.MatchDecision, error) {
	ranked := matching.Rank(req, candidates)
	decision := a.Decider.Decide(ctx, req, ranked)

	if a.Logger != nil {
		a.Logger.Info("match decided", "song", req.String(), "method", decision.Method, "confidence", decision.Confidence)
	}
	return decision, nil
}

// Commit adds the track to the playlist, skipping the add when it is already
// present so engine-level retries stay idempotent.
func (a *Activities) Commit(ctx context.Context, playlistID, catalogID string) (CommitResult, error) {
	ids, err := a.Catalog.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return CommitResult{}, asActivityError(err)
	}

	if !contains(ids, catalogID) {
		if err := a.Catalog.AddToPlaylist(ctx, playlistID, catalogID); err != nil {
			return CommitResult{}, asActivityError(err)
		}
	}

	return CommitResult{Attempt: int(activity.GetInfo(ctx).Attempt)}, nil
}

// Verify re-reads the playlist and reports whether the track is present.
func (a *Activities) Verify(ctx context.Context, playlistID, catalogID string) (VerifyResult, error) {
	ids, err := a.Catalog.PlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return VerifyResult{}, asActivityError(err)
	}
	return VerifyResult{Present: contains(ids, catalogID), Attempt: int(activity.GetInfo(ctx).Attempt)}, nil
}

// asActivityError marks fatal error classes non-retryable for the engine;
// transient errors pass through and get retried under the activity's policy.
func asActivityError(err error) error {
	if retry.Fatal(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), fatalErrorType, err)
	}
	return err
}
