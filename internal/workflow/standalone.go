package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
)

// StandaloneBackend runs workflows in-process. Submit creates a running
// record, detaches a goroutine for the pipeline, and returns immediately;
// a process crash loses in-flight work, which is the documented tradeoff of
// this mode.
type StandaloneBackend struct {
	pipeline *Pipeline
	store    *Store
	budget   time.Duration
	logger   *log.Logger
}

// NewStandaloneBackend creates a standalone backend. budget bounds each
// pipeline run; non-positive disables the bound.
func NewStandaloneBackend(pipeline *Pipeline, store *Store, budget time.Duration, logger *log.Logger) *StandaloneBackend {
	pipeline.Budget = budget
	return &StandaloneBackend{pipeline: pipeline, store: store, budget: budget, logger: logger}
}

// Submit registers the workflow and starts it in the background. The
// execution context is detached from the caller's: an HTTP request ending
// must not cancel the pipeline it submitted.
func (b *StandaloneBackend) Submit(ctx context.Context, req models.SongRequest) (string, error) {
	now := time.Now()
	id := shared.WorkflowID(req.Requester, now)
	b.store.Create(id, req, now)

	go b.execute(id, req)

	if b.logger != nil {
		b.logger.Info("workflow submitted", "workflow_id", id, "song", req.String())
	}
	return id, nil
}

// Status returns the current snapshot for workflowID. Unknown ids produce a
// zero-progress running placeholder.
func (b *StandaloneBackend) Status(_ context.Context, workflowID string) (models.WorkflowStatus, error) {
	record, ok := b.store.Get(workflowID)
	if !ok {
		return models.RunningPlaceholder(workflowID), nil
	}
	return record.Snapshot(time.Now()), nil
}

// execute owns the record for id: it is the only writer for the workflow's
// lifetime, and it transitions the record to a terminal state exactly once,
// including when the pipeline panics.
func (b *StandaloneBackend) execute(id string, req models.SongRequest) {
	ctx := context.Background()
	if b.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.budget)
		defer cancel()
	}

	var result models.Result
	var runErr error

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("workflow panicked: %v", r)
			if b.logger != nil {
				b.logger.Error("workflow panicked", "workflow_id", id, "panic", r)
			}
		}
		b.finish(id, result, runErr)
	}()

	result, runErr = b.pipeline.Run(ctx, req, func(step string, candidatesFound int) {
		b.store.Update(id, func(record models.WorkflowRecord) models.WorkflowRecord {
			record.Progress.CurrentStep = step
			record.Progress.StepsCompleted = models.StepNumber(step)
			record.Progress.CandidatesFound = candidatesFound
			return record
		})
	})
}

// finish applies the terminal transition for id.
func (b *StandaloneBackend) finish(id string, result models.Result, runErr error) {
	now := time.Now()
	b.store.Update(id, func(record models.WorkflowRecord) models.WorkflowRecord {
		if record.State != models.StateRunning {
			return record
		}
		record.CompletedAt = now

		if runErr != nil {
			record.State = models.StateFailed
			record.Error = runErr.Error()
			return record
		}

		record.State = models.StateCompleted
		final := result
		record.Result = &final
		record.Progress.CurrentStep = models.StepDone
		record.Progress.StepsCompleted = models.StepsTotal
		return record
	})

	if b.logger != nil {
		if runErr != nil {
			b.logger.Error("workflow failed", "workflow_id", id, "error", runErr)
		} else {
			b.logger.Info("workflow completed", "workflow_id", id, "success", result.Success)
		}
	}
}
