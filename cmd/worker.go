package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tracksync/internal/workflow"
	"github.com/urfave/cli/v3"
	"go.temporal.io/sdk/worker"
)

// Worker runs a Temporal worker hosting the sync workflow and its activities
// until interrupted.
func (r *Runner) Worker(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	steps, cleanup, err := r.buildSteps(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := workflow.Dial(r.config.Temporal)
	if err != nil {
		return fmt.Errorf("failed to connect to temporal: %w", err)
	}
	defer c.Close()

	activities := &workflow.Activities{
		Catalog: steps.Catalog,
		Decider: steps.Decider,
		Logger:  r.logger,
	}

	w := workflow.NewWorker(c, r.config.Temporal.TaskQueue, activities)

	r.logger.Info("worker starting",
		"host", r.config.Temporal.Host,
		"namespace", r.config.Temporal.Namespace,
		"task_queue", r.config.Temporal.TaskQueue,
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
