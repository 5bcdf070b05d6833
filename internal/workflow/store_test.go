package workflow

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tracksync/internal/models"
)

func TestStore(t *testing.T) {
	req := models.SongRequest{Title: "Africa", Artist: "Toto", PlaylistID: "pl1"}

	t.Run("create and get", func(t *testing.T) {
		store := NewStore()
		started := time.Now()
		store.Create("wf1", req, started)

		record, ok := store.Get("wf1")
		if !ok {
			t.Fatal("expected record")
		}
		if record.State != models.StateRunning {
			t.Errorf("expected running, got %s", record.State)
		}
		if record.Progress.CurrentStep != models.StepInitializing {
			t.Errorf("expected initializing step, got %s", record.Progress.CurrentStep)
		}
		if record.Progress.StepsTotal != models.StepsTotal {
			t.Errorf("expected steps_total %d, got %d", models.StepsTotal, record.Progress.StepsTotal)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		store := NewStore()
		if _, ok := store.Get("missing"); ok {
			t.Error("expected no record")
		}
	})

	t.Run("create never overwrites", func(t *testing.T) {
		store := NewStore()
		store.Create("wf1", req, time.Now())
		store.Update("wf1", func(r models.WorkflowRecord) models.WorkflowRecord {
			r.State = models.StateCompleted
			return r
		})

		store.Create("wf1", req, time.Now())

		record, _ := store.Get("wf1")
		if record.State != models.StateCompleted {
			t.Errorf("second create overwrote record, state %s", record.State)
		}
	})

	t.Run("update missing id is a no-op", func(t *testing.T) {
		store := NewStore()
		store.Update("missing", func(r models.WorkflowRecord) models.WorkflowRecord {
			t.Error("update fn should not run for missing record")
			return r
		})
	})

	t.Run("concurrent creates land in distinct records", func(t *testing.T) {
		store := NewStore()
		const n = 64

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				store.Create(fmt.Sprintf("wf-%d", i), req, time.Now())
			}(i)
		}
		wg.Wait()

		if store.Len() != n {
			t.Errorf("expected %d records, got %d", n, store.Len())
		}
		for i := 0; i < n; i++ {
			if _, ok := store.Get(fmt.Sprintf("wf-%d", i)); !ok {
				t.Errorf("missing record wf-%d", i)
			}
		}
	})
}
