package models

import "time"

// WorkflowState enumerates the externally observable workflow states.
// Records are created already running; queued is never observable because the
// background task starts before the submission response returns.
type WorkflowState string

const (
	StateRunning   WorkflowState = "running"
	StateCompleted WorkflowState = "completed"
	StateFailed    WorkflowState = "failed"
)

// Step names as reported in progress snapshots.
const (
	StepInitializing = "initializing"
	StepSearching    = "searching"
	StepMatching     = "matching"
	StepAI           = "ai_disambiguation"
	StepCommitting   = "adding"
	StepVerifying    = "verifying"
	StepDone         = "completed"
)

// StepsTotal is the number of pipeline steps reported to callers.
const StepsTotal = 4

// StepNumber maps a step name to how many steps are complete when it is the
// current step.
func StepNumber(step string) int {
	switch step {
	case StepSearching:
		return 1
	case StepMatching, StepAI:
		return 2
	case StepCommitting, StepVerifying:
		return 3
	case StepDone:
		return 4
	default:
		return 0
	}
}

// Progress is the point-in-time progress snapshot of a running workflow.
type Progress struct {
	CurrentStep     string  `json:"current_step"`
	StepsCompleted  int     `json:"steps_completed"`
	StepsTotal      int     `json:"steps_total"`
	CandidatesFound int     `json:"candidates_found"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// Result is the terminal outcome of a completed workflow.
type Result struct {
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
	MatchedCatalogID string      `json:"matched_catalog_id,omitempty"`
	MatchedURI       string      `json:"matched_uri,omitempty"`
	ConfidenceScore  float64     `json:"confidence_score"`
	ExecutionSeconds float64     `json:"execution_time_seconds"`
	RetryCount       int         `json:"retry_count"`
	MatchMethod      MatchMethod `json:"match_method,omitempty"`
}

// WorkflowRecord is the unit of the workflow state store: one record per
// workflow id, created exactly once at submission and mutated only by the
// pipeline execution that owns it.
type WorkflowRecord struct {
	ID          string
	Request     SongRequest
	State       WorkflowState
	StartedAt   time.Time
	CompletedAt time.Time
	Progress    Progress
	Result      *Result
	Error       string
}

// Snapshot converts a record into the caller-facing status payload.
func (r WorkflowRecord) Snapshot(now time.Time) WorkflowStatus {
	status := WorkflowStatus{
		WorkflowID: r.ID,
		Status:     r.State,
		StartedAt:  &r.StartedAt,
	}
	if r.StartedAt.IsZero() {
		status.StartedAt = nil
	}

	switch r.State {
	case StateRunning:
		progress := r.Progress
		progress.StepsTotal = StepsTotal
		progress.ElapsedSeconds = now.Sub(r.StartedAt).Seconds()
		if r.StartedAt.IsZero() {
			progress.ElapsedSeconds = 0
		}
		status.Progress = &progress
	case StateCompleted:
		completed := r.CompletedAt
		status.CompletedAt = &completed
		status.Result = r.Result
	case StateFailed:
		completed := r.CompletedAt
		status.CompletedAt = &completed
		msg := r.Error
		status.Error = &msg
	}

	return status
}
