package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// TemporalBackend submits workflows to a durable execution engine. Submitted
// work survives process crashes on this side; a worker process (see
// [NewWorker]) picks executions up from the task queue.
type TemporalBackend struct {
	client    client.Client
	taskQueue string
	budget    time.Duration
	logger    *log.Logger
}

// Dial connects to the engine using the configured host and namespace.
func Dial(cfg shared.TemporalConfig) (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:  cfg.Host,
		Namespace: cfg.Namespace,
	})
}

// NewTemporalBackend creates a backend over an established client connection.
func NewTemporalBackend(c client.Client, taskQueue string, budget time.Duration, logger *log.Logger) *TemporalBackend {
	return &TemporalBackend{client: c, taskQueue: taskQueue, budget: budget, logger: logger}
}

// Submit starts a durable workflow for the request and returns its id.
func (b *TemporalBackend) Submit(ctx context.Context, req models.SongRequest) (string, error) {
	id := shared.WorkflowID(req.Requester, time.Now())

	options := client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: b.taskQueue,
	}
	if b.budget > 0 {
		options.WorkflowExecutionTimeout = b.budget
	}

	run, err := b.client.ExecuteWorkflow(ctx, options, SyncWorkflowName, req)
	if err != nil {
		return "", err
	}

	if b.logger != nil {
		b.logger.Info("workflow submitted", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "song", req.String())
	}
	return run.GetID(), nil
}

// Status maps the engine's view of the execution onto the shared status
// payload. Running executions are queried for live progress; closed ones
// resolve to the recorded result or failure. Unknown ids degrade to a
// zero-progress running placeholder, same as the standalone backend.
func (b *TemporalBackend) Status(ctx context.Context, workflowID string) (models.WorkflowStatus, error) {
	desc, err := b.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return models.RunningPlaceholder(workflowID), nil
		}
		return models.WorkflowStatus{}, err
	}

	info := desc.GetWorkflowExecutionInfo()
	status := models.WorkflowStatus{WorkflowID: workflowID}
	if ts := info.GetStartTime(); ts != nil {
		started := ts.AsTime()
		status.StartedAt = &started
	}

	switch info.GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		status.Status = models.StateRunning
		status.Progress = b.queryProgress(ctx, workflowID)

	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		status.Status = models.StateCompleted
		if ts := info.GetCloseTime(); ts != nil {
			closed := ts.AsTime()
			status.CompletedAt = &closed
		}
		var result models.Result
		if err := b.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result); err != nil {
			return models.WorkflowStatus{}, err
		}
		status.Result = &result

	default:
		status.Status = models.StateFailed
		if ts := info.GetCloseTime(); ts != nil {
			closed := ts.AsTime()
			status.CompletedAt = &closed
		}
		msg := b.failureMessage(ctx, workflowID)
		status.Error = &msg
	}

	return status, nil
}

// queryProgress fetches the live progress snapshot, falling back to a zeroed
// view when the query races workflow startup.
func (b *TemporalBackend) queryProgress(ctx context.Context, workflowID string) *models.Progress {
	progress := models.Progress{StepsTotal: models.StepsTotal}

	resp, err := b.client.QueryWorkflow(ctx, workflowID, "", ProgressQuery)
	if err != nil {
		if b.logger != nil {
			b.logger.Debug("progress query failed", "workflow_id", workflowID, "error", err)
		}
		return &progress
	}
	if err := resp.Get(&progress); err != nil && b.logger != nil {
		b.logger.Debug("progress decode failed", "workflow_id", workflowID, "error", err)
	}
	progress.StepsTotal = models.StepsTotal
	return &progress
}

// failureMessage resolves the recorded failure for a closed execution.
func (b *TemporalBackend) failureMessage(ctx context.Context, workflowID string) string {
	var result models.Result
	err := b.client.GetWorkflow(ctx, workflowID, "").Get(ctx, &result)
	if err == nil {
		return "workflow failed"
	}
	return err.Error()
}

// NewWorker builds a worker that hosts the workflow and its activities on
// the given task queue. The caller runs it with worker.InterruptCh or its
// own stop channel.
func NewWorker(c client.Client, taskQueue string, activities *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(SyncWorkflow)
	w.RegisterActivity(activities)
	return w
}
