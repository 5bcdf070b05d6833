// package workflow runs the song placement pipeline: search the catalog,
// score and disambiguate candidates, commit the match to the playlist, and
// verify it landed.
//
// Two execution backends share the pipeline contract: [StandaloneBackend]
// runs it in-process with fire-and-forget semantics, [TemporalBackend] runs
// it on a durable execution engine. Status payloads are identical either way.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
)

// ProgressFunc receives progress updates as the pipeline advances. step is
// one of the models.Step* names; candidatesFound is the search result count
// once known.
type ProgressFunc func(step string, candidatesFound int)

// Backend submits workflows and answers status queries. Both backends return
// structurally identical payloads for the same outcome.
type Backend interface {
	// Submit starts a workflow for the request and returns its id without
	// waiting for completion.
	Submit(ctx context.Context, req models.SongRequest) (string, error)

	// Status reports the current state of the workflow. Unknown ids degrade
	// to a zero-progress running view, never a not-found error.
	Status(ctx context.Context, workflowID string) (models.WorkflowStatus, error)
}

// Pipeline sequences the steps for one song request.
type Pipeline struct {
	Steps *Steps
	// Budget is the wall-clock bound on one run, reported in timeout errors.
	Budget time.Duration
}

// Run executes search, match, commit, and verify for req. It returns a
// terminal Result on success and a non-nil error when the workflow failed,
// including a no-match outcome. Progress callbacks fire before each step
// begins; progress may be nil.
func (p *Pipeline) Run(ctx context.Context, req models.SongRequest, progress ProgressFunc) (models.Result, error) {
	if progress == nil {
		progress = func(string, int) {}
	}

	start := time.Now()
	retries := 0

	finish := func(result models.Result) models.Result {
		result.ExecutionSeconds = time.Since(start).Seconds()
		result.RetryCount = retries
		return result
	}

	progress(models.StepSearching, 0)
	candidates, attempts, err := p.Steps.Search(ctx, req)
	retries += attempts - 1
	if err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	progress(models.StepMatching, len(candidates))
	decision := p.Steps.Match(ctx, req, candidates)
	if decision.Selected == nil {
		return models.Result{}, fmt.Errorf("Track not found: no matches for '%s' by '%s'", req.Title, req.Artist)
	}
	selected := *decision.Selected

	if err := ctx.Err(); err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	progress(models.StepCommitting, len(candidates))
	attempts, err = p.Steps.Commit(ctx, req.PlaylistID, selected.ID)
	retries += attempts - 1
	if err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	if err := ctx.Err(); err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	progress(models.StepVerifying, len(candidates))
	present, attempts, err := p.Steps.Verify(ctx, req.PlaylistID, selected.ID)
	retries += attempts - 1
	if err != nil {
		return models.Result{}, p.classify(ctx, err)
	}

	if !present {
		// The add can land after the verify read on an eventually-consistent
		// playlist view. Re-commit once and re-verify before giving up.
		attempts, err = p.Steps.Commit(ctx, req.PlaylistID, selected.ID)
		retries += attempts - 1
		if err != nil {
			return models.Result{}, p.classify(ctx, err)
		}

		present, attempts, err = p.Steps.Verify(ctx, req.PlaylistID, selected.ID)
		retries += attempts - 1
		if err != nil {
			return models.Result{}, p.classify(ctx, err)
		}
		if !present {
			return models.Result{}, fmt.Errorf("track %s not present in playlist %s after add", selected.ID, req.PlaylistID)
		}
	}

	progress(models.StepDone, len(candidates))
	return finish(models.Result{
		Success:          true,
		Message:          fmt.Sprintf("Successfully added '%s' by %s to playlist", selected.Title, selected.Artist),
		MatchedCatalogID: selected.ID,
		MatchedURI:       selected.URI,
		ConfidenceScore:  decision.Confidence,
		MatchMethod:      decision.Method,
	}), nil
}

// classify rewrites budget expiry into a distinct timeout error so callers
// can report it as such instead of surfacing a raw deadline message.
func (p *Pipeline) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if p.Budget > 0 {
			return fmt.Errorf("%w: workflow timed out after %s", shared.ErrTimeout, p.Budget)
		}
		return fmt.Errorf("%w: workflow timed out", shared.ErrTimeout)
	}
	return err
}
