package models

import "time"

// WorkflowStatus is the wire shape returned by status queries. The same
// struct is produced by every execution backend so payloads for the same
// outcome are identical regardless of backend.
//
// Exactly one of Progress (running), Result (completed), or Error (failed)
// is non-null; the others marshal as null.
type WorkflowStatus struct {
	WorkflowID  string        `json:"workflow_id"`
	Status      WorkflowState `json:"status"`
	StartedAt   *time.Time    `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Progress    *Progress     `json:"progress"`
	Result      *Result       `json:"result"`
	Error       *string       `json:"error"`
}

// RunningPlaceholder is the status view for a workflow id the store has no
// record of yet. Lookups can race ahead of record creation, so unknown ids
// degrade to a zero-progress running view instead of a not-found error.
func RunningPlaceholder(workflowID string) WorkflowStatus {
	return WorkflowStatus{
		WorkflowID: workflowID,
		Status:     StateRunning,
		Progress:   &Progress{StepsTotal: StepsTotal},
	}
}

// SubmitResponse acknowledges an accepted sync submission.
type SubmitResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusURL  string `json:"status_url"`
}
