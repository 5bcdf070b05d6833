package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tracksync/internal/formatter"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/workflow"
)

const pollInterval = time.Second

// Model is the watch TUI state: one workflow id polled until terminal.
type Model struct {
	ctx        context.Context
	backend    workflow.Backend
	workflowID string

	status  models.WorkflowStatus
	fetched bool
	done    bool
	err     error

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a watch model for the given workflow.
func NewModel(ctx context.Context, backend workflow.Backend, workflowID string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	return Model{
		ctx:        ctx,
		backend:    backend,
		workflowID: workflowID,
		spinner:    s,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

type statusMsg struct {
	status models.WorkflowStatus
	err    error
}

type pollMsg struct{}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch())
}

// fetch queries the backend for the current status.
func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		status, err := m.backend.Status(m.ctx, m.workflowID)
		return statusMsg{status: status, err: err}
	}
}

func schedulePoll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetch()
		}

	case statusMsg:
		m.fetched = true
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			if msg.status.Status != models.StateRunning {
				m.done = true
				return m, tea.Quit
			}
		}
		return m, schedulePoll()

	case pollMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	out := styles.title.Render("tracksync watch") + "\n"
	out += fmt.Sprintf("Workflow: %s\n\n", m.workflowID)

	switch {
	case m.err != nil:
		out += styles.err.Render(fmt.Sprintf("status query failed: %v", m.err)) + "\n"

	case !m.fetched:
		out += m.spinner.View() + " connecting...\n"

	case m.status.Status == models.StateRunning:
		p := m.status.Progress
		if p == nil {
			placeholder := models.RunningPlaceholder(m.workflowID)
			p = placeholder.Progress
		}
		out += fmt.Sprintf("%s %s %s %d/%d\n",
			m.spinner.View(),
			p.CurrentStep,
			formatter.ProgressBar(p.StepsCompleted, p.StepsTotal, 20),
			p.StepsCompleted, p.StepsTotal,
		)
		if p.CandidatesFound > 0 {
			out += fmt.Sprintf("  %d candidates\n", p.CandidatesFound)
		}
		out += fmt.Sprintf("  %.1fs elapsed\n", p.ElapsedSeconds)

	case m.status.Status == models.StateCompleted:
		if m.status.Result != nil && m.status.Result.Success {
			out += styles.ok.Render("✓ "+m.status.Result.Message) + "\n"
		} else if m.status.Result != nil {
			out += styles.warn.Render(m.status.Result.Message) + "\n"
		}

	case m.status.Status == models.StateFailed:
		msg := "workflow failed"
		if m.status.Error != nil {
			msg = *m.status.Error
		}
		out += styles.err.Render("✗ "+msg) + "\n"
	}

	if !m.done {
		out += "\n" + styles.help.Render(m.help.View(m.keys))
	}
	return out
}

// Final returns the last observed status once the program exits.
func (m Model) Final() (models.WorkflowStatus, bool) {
	return m.status, m.fetched
}
