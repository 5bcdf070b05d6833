package workflow

import (
	"fmt"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
	"go.temporal.io/sdk/temporal"
	tworkflow "go.temporal.io/sdk/workflow"
)

// ProgressQuery is the query name that returns a [models.Progress] snapshot
// for a running workflow.
const ProgressQuery = "progress"

// SyncWorkflowName is the registered name of the durable workflow.
const SyncWorkflowName = "SyncWorkflow"

// searchActivityOptions mirrors [SearchPolicy] as an engine retry policy.
func searchActivityOptions() tworkflow.ActivityOptions {
	return tworkflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{fatalErrorType},
		},
	}
}

// commitActivityOptions mirrors [CommitPolicy] as an engine retry policy.
func commitActivityOptions() tworkflow.ActivityOptions {
	return tworkflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        60 * time.Second,
			MaximumAttempts:        10,
			NonRetryableErrorTypes: []string{fatalErrorType},
		},
	}
}

// matchActivityOptions gives disambiguation room for its internal reasoner
// retries without engine-level retrying on top.
func matchActivityOptions() tworkflow.ActivityOptions {
	return tworkflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
}

// SyncWorkflow is the durable rendition of the pipeline: the same step
// sequence as [Pipeline.Run], with retrying delegated to the engine and
// progress exposed through [ProgressQuery].
func SyncWorkflow(ctx tworkflow.Context, req models.SongRequest) (models.Result, error) {
	start := tworkflow.Now(ctx)
	retries := 0

	progress := models.Progress{
		CurrentStep: models.StepInitializing,
		StepsTotal:  models.StepsTotal,
	}
	advance := func(step string, candidatesFound int) {
		progress.CurrentStep = step
		progress.StepsCompleted = models.StepNumber(step)
		progress.CandidatesFound = candidatesFound
		progress.ElapsedSeconds = tworkflow.Now(ctx).Sub(start).Seconds()
	}

	if err := tworkflow.SetQueryHandler(ctx, ProgressQuery, func() (models.Progress, error) {
		snapshot := progress
		snapshot.ElapsedSeconds = tworkflow.Now(ctx).Sub(start).Seconds()
		return snapshot, nil
	}); err != nil {
		return models.Result{}, err
	}

	var a *Activities

	finish := func(result models.Result) models.Result {
		result.ExecutionSeconds = tworkflow.Now(ctx).Sub(start).Seconds()
		result.RetryCount = retries
		return result
	}

	advance(models.StepSearching, 0)
	var search SearchResult
	searchCtx := tworkflow.WithActivityOptions(ctx, searchActivityOptions())
	if err := tworkflow.ExecuteActivity(searchCtx, a.Search, req).Get(ctx, &search); err != nil {
		return models.Result{}, err
	}
	retries += search.Attempt - 1

	advance(models.StepMatching, len(search.Candidates))
	var decision models.MatchDecision
	matchCtx := tworkflow.WithActivityOptions(ctx, matchActivityOptions())
	if err := tworkflow.ExecuteActivity(matchCtx, a.Match, req, search.Candidates).Get(ctx, &decision); err != nil {
		return models.Result{}, err
	}

	if decision.Selected == nil {
		return models.Result{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("Track not found: no matches for '%s' by '%s'", req.Title, req.Artist),
			fatalErrorType, nil,
		)
	}
	selected := *decision.Selected

	commitCtx := tworkflow.WithActivityOptions(ctx, commitActivityOptions())

	advance(models.StepCommitting, len(search.Candidates))
	var commit CommitResult
	if err := tworkflow.ExecuteActivity(commitCtx, a.Commit, req.PlaylistID, selected.ID).Get(ctx, &commit); err != nil {
		return models.Result{}, err
	}
	retries += commit.Attempt - 1

	advance(models.StepVerifying, len(search.Candidates))
	var verify VerifyResult
	if err := tworkflow.ExecuteActivity(commitCtx, a.Verify, req.PlaylistID, selected.ID).Get(ctx, &verify); err != nil {
		return models.Result{}, err
	}
	retries += verify.Attempt - 1

	if !verify.Present {
		// One re-commit covers an add landing after an eventually-consistent
		// verify read.
		if err := tworkflow.ExecuteActivity(commitCtx, a.Commit, req.PlaylistID, selected.ID).Get(ctx, &commit); err != nil {
			return models.Result{}, err
		}
		retries += commit.Attempt - 1

		if err := tworkflow.ExecuteActivity(commitCtx, a.Verify, req.PlaylistID, selected.ID).Get(ctx, &verify); err != nil {
			return models.Result{}, err
		}
		retries += verify.Attempt - 1

		if !verify.Present {
			return models.Result{}, fmt.Errorf("track %s not present in playlist %s after add", selected.ID, req.PlaylistID)
		}
	}

	advance(models.StepDone, len(search.Candidates))
	return finish(models.Result{
		Success:          true,
		Message:          fmt.Sprintf("Successfully added '%s' by %s to playlist", selected.Title, selected.Artist),
		MatchedCatalogID: selected.ID,
		MatchedURI:       selected.URI,
		ConfidenceScore:  decision.Confidence,
		MatchMethod:      decision.Method,
	}), nil
}
