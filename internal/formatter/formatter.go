// package formatter renders workflow status and results for CLI output (plain text, JSON)
package formatter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
)

// StatusToText renders a workflow status as human-readable text.
func StatusToText(status models.WorkflowStatus) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Workflow: %s\n", status.WorkflowID)
	fmt.Fprintf(&buf, "Status:   %s\n", status.Status)

	if status.StartedAt != nil {
		fmt.Fprintf(&buf, "Started:  %s\n", status.StartedAt.Format(time.RFC3339))
	}
	if status.CompletedAt != nil {
		fmt.Fprintf(&buf, "Finished: %s\n", status.CompletedAt.Format(time.RFC3339))
	}

	switch {
	case status.Progress != nil && status.Status == models.StateRunning:
		p := status.Progress
		fmt.Fprintf(&buf, "Step:     %s (%d/%d)\n", p.CurrentStep, p.StepsCompleted, p.StepsTotal)
		if p.CandidatesFound > 0 {
			fmt.Fprintf(&buf, "Found:    %d candidates\n", p.CandidatesFound)
		}
		fmt.Fprintf(&buf, "Elapsed:  %.1fs\n", p.ElapsedSeconds)

	case status.Result != nil:
		buf.WriteString(ResultToText(*status.Result))

	case status.Error != nil:
		fmt.Fprintf(&buf, "Error:    %s\n", *status.Error)
	}

	return buf.String()
}

// ResultToText renders a terminal result as human-readable text.
func ResultToText(result models.Result) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Message:  %s\n", result.Message)
	if result.Success {
		fmt.Fprintf(&buf, "Track:    %s\n", result.MatchedCatalogID)
		if result.MatchedURI != "" {
			fmt.Fprintf(&buf, "URI:      %s\n", result.MatchedURI)
		}
		fmt.Fprintf(&buf, "Method:   %s\n", result.MatchMethod)
	}
	fmt.Fprintf(&buf, "Score:    %.2f\n", result.ConfidenceScore)
	fmt.Fprintf(&buf, "Took:     %.1fs (%d retries)\n", result.ExecutionSeconds, result.RetryCount)

	return buf.String()
}

// StatusToJSON renders a workflow status as JSON, optionally pretty-printed.
func StatusToJSON(status models.WorkflowStatus, pretty bool) ([]byte, error) {
	data, err := shared.MarshalJSON(status, pretty)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	return data, nil
}

// ProgressBar renders a fixed-width textual progress bar for steps completed.
func ProgressBar(completed, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := completed * width / total
	if filled > width {
		filled = width
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < width; i++ {
		if i < filled {
			buf.WriteByte('=')
		} else {
			buf.WriteByte(' ')
		}
	}
	buf.WriteByte(']')
	return buf.String()
}
