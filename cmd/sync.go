package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tracksync/internal/formatter"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
	"github.com/desertthunder/tracksync/internal/ui"
	"github.com/desertthunder/tracksync/internal/workflow"
	"github.com/urfave/cli/v3"
)

// pollInterval is how often sync --wait and status polling re-query.
const pollInterval = time.Second

// Sync submits a song placement request and, with --wait, polls until the
// workflow reaches a terminal state.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	req := models.SongRequest{
		Title:      cmd.String("title"),
		Artist:     cmd.String("artist"),
		Album:      cmd.String("album"),
		ISRC:       cmd.String("isrc"),
		PlaylistID: cmd.String("playlist"),
		Requester:  cmd.String("requester"),
		Threshold:  cmd.Float("threshold"),
		UseAI:      !cmd.Bool("no-ai") && r.config.Matching.UseAI,
	}

	backend, cleanup, err := r.buildBackend(ctx, cmd.String("server"))
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := backend.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit workflow: %w", err)
	}

	r.logger.Info("workflow submitted", "workflow_id", id)
	r.writePlain("Workflow: %s\n", id)

	if !cmd.Bool("wait") {
		return nil
	}

	status, err := r.poll(ctx, backend, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.StatusToText(status))
}

// poll re-queries the backend until the workflow leaves the running state.
func (r *Runner) poll(ctx context.Context, backend workflow.Backend, id string) (models.WorkflowStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		status, err := backend.Status(ctx, id)
		if err != nil {
			return models.WorkflowStatus{}, fmt.Errorf("status query failed: %w", err)
		}
		if status.Status != models.StateRunning {
			return status, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return models.WorkflowStatus{}, ctx.Err()
		}
	}
}

// Status prints the status of one workflow.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: workflow id", shared.ErrMissingArgument)
	}

	backend, cleanup, err := r.buildBackend(ctx, cmd.String("server"))
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := backend.Status(ctx, id)
	if err != nil {
		return fmt.Errorf("status query failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.StatusToText(status))
}

// Watch follows a workflow in the TUI until it finishes.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: workflow id", shared.ErrMissingArgument)
	}

	backend, cleanup, err := r.buildBackend(ctx, cmd.String("server"))
	if err != nil {
		return err
	}
	defer cleanup()

	model := ui.NewModel(ctx, backend, id)
	program := tea.NewProgram(model)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	if m, ok := final.(ui.Model); ok {
		if status, fetched := m.Final(); fetched && status.Status != models.StateRunning {
			return r.writePlain("%s", formatter.StatusToText(status))
		}
	}
	return nil
}
