package workflow

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
	th "github.com/desertthunder/tracksync/internal/testing"
	"go.temporal.io/sdk/testsuite"
)

func newWorkflowEnv(t *testing.T, catalog *th.MockCatalog) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(SyncWorkflow)
	env.RegisterActivity(&Activities{
		Catalog: catalog,
		Decider: matching.NewDisambiguator(matching.DefaultConfig(), nil, nil),
	})
	return env
}

func TestSyncWorkflow(t *testing.T) {
	req := models.SongRequest{Title: "Africa", Artist: "Toto", PlaylistID: "pl1"}

	t.Run("happy path completes with an exact match", func(t *testing.T) {
		added := false
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return []models.Candidate{
					{ID: "t1", Title: req.Title, Artist: req.Artist, URI: "spotify:track:t1"},
					{ID: "t2", Title: "Something Else", Artist: "Nobody"},
				}, nil
			},
			AddFn: func(ctx context.Context, playlistID, catalogID string) error {
				added = true
				return nil
			},
			ListFn: func(ctx context.Context, playlistID string) ([]string, error) {
				if added {
					return []string{"t1"}, nil
				}
				return nil, nil
			},
		}

		env := newWorkflowEnv(t, catalog)
		env.ExecuteWorkflow(SyncWorkflow, req)

		if !env.IsWorkflowCompleted() {
			t.Fatal("workflow did not complete")
		}
		if err := env.GetWorkflowError(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result models.Result
		if err := env.GetWorkflowResult(&result); err != nil {
			t.Fatalf("failed to read result: %v", err)
		}
		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
		if result.MatchedCatalogID != "t1" || result.MatchedURI != "spotify:track:t1" {
			t.Errorf("unexpected match: %+v", result)
		}
		if result.MatchMethod != models.MatchExact {
			t.Errorf("expected exact_match, got %s", result.MatchMethod)
		}
	})

	t.Run("no matches fails with the not-found message", func(t *testing.T) {
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return nil, nil
			},
		}

		env := newWorkflowEnv(t, catalog)
		env.ExecuteWorkflow(SyncWorkflow, req)

		err := env.GetWorkflowError()
		if err == nil {
			t.Fatal("expected a no-match failure")
		}
		if !strings.Contains(err.Error(), "Track not found: no matches for 'Africa' by 'Toto'") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("verify absence triggers one re-commit", func(t *testing.T) {
		addCalls := 0
		listCalls := 0
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return []models.Candidate{{ID: "t1", Title: req.Title, Artist: req.Artist}}, nil
			},
			AddFn: func(ctx context.Context, playlistID, catalogID string) error {
				addCalls++
				return nil
			},
			ListFn: func(ctx context.Context, playlistID string) ([]string, error) {
				listCalls++
				// commit pre-list, verify: missing; re-commit pre-list,
				// re-verify: present.
				if listCalls >= 4 {
					return []string{"t1"}, nil
				}
				return nil, nil
			},
		}

		env := newWorkflowEnv(t, catalog)
		env.ExecuteWorkflow(SyncWorkflow, req)

		if err := env.GetWorkflowError(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var result models.Result
		if err := env.GetWorkflowResult(&result); err != nil {
			t.Fatalf("failed to read result: %v", err)
		}
		if !result.Success {
			t.Fatal("expected success after re-commit")
		}
		if addCalls != 2 {
			t.Errorf("expected 2 add calls, got %d", addCalls)
		}
	})

	t.Run("fatal search error is not retried by the engine", func(t *testing.T) {
		searchCalls := 0
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				searchCalls++
				return nil, fmt.Errorf("%w: token revoked", shared.ErrAuthFailed)
			},
		}

		env := newWorkflowEnv(t, catalog)
		env.ExecuteWorkflow(SyncWorkflow, req)

		err := env.GetWorkflowError()
		if err == nil {
			t.Fatal("expected failure")
		}
		if !strings.Contains(err.Error(), "token revoked") {
			t.Errorf("expected auth failure, got %v", err)
		}
		if searchCalls != 1 {
			t.Errorf("fatal error must not be retried, got %d search calls", searchCalls)
		}
	})

	t.Run("transient search error is retried up to the policy cap", func(t *testing.T) {
		searchCalls := 0
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				searchCalls++
				return nil, fmt.Errorf("%w: 503", shared.ErrServiceUnavailable)
			},
		}

		env := newWorkflowEnv(t, catalog)
		env.ExecuteWorkflow(SyncWorkflow, req)

		if env.GetWorkflowError() == nil {
			t.Fatal("expected failure after exhausting retries")
		}
		if searchCalls != 3 {
			t.Errorf("expected 3 search attempts, got %d", searchCalls)
		}
	})
}
