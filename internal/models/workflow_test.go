package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStepNumber(t *testing.T) {
	tests := []struct {
		step string
		want int
	}{
		{StepInitializing, 0},
		{StepSearching, 1},
		{StepMatching, 2},
		{StepAI, 2},
		{StepCommitting, 3},
		{StepVerifying, 3},
		{StepDone, 4},
		{"unknown", 0},
	}

	for _, tc := range tests {
		if got := StepNumber(tc.step); got != tc.want {
			t.Errorf("StepNumber(%q) = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	started := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	now := started.Add(3 * time.Second)

	t.Run("running snapshot computes elapsed and nulls the rest", func(t *testing.T) {
		record := WorkflowRecord{
			ID:        "wf1",
			State:     StateRunning,
			StartedAt: started,
			Progress:  Progress{CurrentStep: StepSearching, StepsCompleted: 1},
		}

		status := record.Snapshot(now)
		if status.Progress == nil {
			t.Fatal("running snapshot must carry progress")
		}
		if status.Progress.ElapsedSeconds != 3.0 {
			t.Errorf("expected 3s elapsed, got %v", status.Progress.ElapsedSeconds)
		}
		if status.Progress.StepsTotal != StepsTotal {
			t.Errorf("steps_total not normalized, got %d", status.Progress.StepsTotal)
		}
		if status.Result != nil || status.Error != nil {
			t.Error("running snapshot must have nil result and error")
		}
	})

	t.Run("completed snapshot carries the result", func(t *testing.T) {
		record := WorkflowRecord{
			ID:          "wf1",
			State:       StateCompleted,
			StartedAt:   started,
			CompletedAt: now,
			Result:      &Result{Success: true, Message: "done"},
		}

		status := record.Snapshot(now)
		if status.Result == nil || !status.Result.Success {
			t.Errorf("expected result, got %+v", status.Result)
		}
		if status.CompletedAt == nil || !status.CompletedAt.Equal(now) {
			t.Error("completed_at missing")
		}
		if status.Progress != nil || status.Error != nil {
			t.Error("completed snapshot must have nil progress and error")
		}
	})

	t.Run("failed snapshot carries the error", func(t *testing.T) {
		record := WorkflowRecord{
			ID:          "wf1",
			State:       StateFailed,
			StartedAt:   started,
			CompletedAt: now,
			Error:       "search failed",
		}

		status := record.Snapshot(now)
		if status.Error == nil || *status.Error != "search failed" {
			t.Errorf("expected error, got %v", status.Error)
		}
		if status.Progress != nil || status.Result != nil {
			t.Error("failed snapshot must have nil progress and result")
		}
	})
}

func TestWorkflowStatusJSON(t *testing.T) {
	t.Run("running payload has explicit nulls", func(t *testing.T) {
		status := RunningPlaceholder("wf1")

		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		out := string(data)
		for _, want := range []string{`"progress":{`, `"result":null`, `"error":null`, `"started_at":null`} {
			if !strings.Contains(out, want) {
				t.Errorf("payload missing %q:\n%s", want, out)
			}
		}
		if strings.Contains(out, "completed_at") {
			t.Errorf("running payload should omit completed_at:\n%s", out)
		}
	})
}
