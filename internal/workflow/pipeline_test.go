package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/retry"
	"github.com/desertthunder/tracksync/internal/shared"
	th "github.com/desertthunder/tracksync/internal/testing"
)

func fastRetry(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts:        attempts,
		InitialDelay:       time.Millisecond,
		BackoffCoefficient: 2.0,
		MaxDelay:           5 * time.Millisecond,
	}
}

func newTestPipeline(catalog *th.MockCatalog) *Pipeline {
	decider := matching.NewDisambiguator(matching.DefaultConfig(), nil, nil)
	return &Pipeline{
		Steps: &Steps{
			Catalog:     catalog,
			Decider:     decider,
			SearchRetry: fastRetry(3),
			CommitRetry: fastRetry(10),
		},
	}
}

func exactCandidates(req models.SongRequest) []models.Candidate {
	return []models.Candidate{
		{ID: "t1", Title: req.Title, Artist: req.Artist, URI: "spotify:track:t1"},
		{ID: "t2", Title: "Something Else", Artist: "Nobody"},
	}
}

func TestPipelineRun(t *testing.T) {
	req := models.SongRequest{Title: "Africa", Artist: "Toto", PlaylistID: "pl1"}

	t.Run("happy path completes with an exact match", func(t *testing.T) {
		added := false
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return exactCandidates(req), nil
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

		var steps []string
		result, err := newTestPipeline(catalog).Run(context.Background(), req, func(step string, _ int) {
			steps = append(steps, step)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
		if result.MatchedCatalogID != "t1" {
			t.Errorf("expected t1, got %s", result.MatchedCatalogID)
		}
		if result.MatchedURI != "spotify:track:t1" {
			t.Errorf("expected uri, got %s", result.MatchedURI)
		}
		if result.MatchMethod != models.MatchExact {
			t.Errorf("expected exact_match, got %s", result.MatchMethod)
		}
		if result.RetryCount != 0 {
			t.Errorf("expected no retries, got %d", result.RetryCount)
		}

		want := []string{
			models.StepSearching, models.StepMatching,
			models.StepCommitting, models.StepVerifying, models.StepDone,
		}
		if strings.Join(steps, ",") != strings.Join(want, ",") {
			t.Errorf("step order %v, want %v", steps, want)
		}
	})

	t.Run("no matches fails with the not-found message", func(t *testing.T) {
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return nil, nil
			},
		}

		_, err := newTestPipeline(catalog).Run(context.Background(), req, nil)
		if err == nil {
			t.Fatal("expected a no-match failure")
		}
		want := "Track not found: no matches for 'Africa' by 'Toto'"
		if err.Error() != want {
			t.Errorf("error %q, want %q", err.Error(), want)
		}
		if _, addCalls, _ := catalog.Calls(); addCalls != 0 {
			t.Errorf("no-match must not touch the playlist, got %d add calls", addCalls)
		}
	})

	t.Run("rate-limited commit is retried and counted", func(t *testing.T) {
		addCalls := 0
		added := false
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return exactCandidates(req), nil
			},
			AddFn: func(ctx context.Context, playlistID, catalogID string) error {
				addCalls++
				if addCalls <= 2 {
					return fmt.Errorf("%w: 429", shared.ErrRateLimited)
				}
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

		result, err := newTestPipeline(catalog).Run(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Success {
			t.Fatal("expected success after retries")
		}
		if result.RetryCount != 2 {
			t.Errorf("expected retry_count 2, got %d", result.RetryCount)
		}
	})

	t.Run("commit skips the add when the track is already present", func(t *testing.T) {
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return exactCandidates(req), nil
			},
			ListFn: func(ctx context.Context, playlistID string) ([]string, error) {
				return []string{"t1"}, nil
			},
		}

		result, err := newTestPipeline(catalog).Run(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Success {
			t.Fatal("expected success")
		}
		if _, addCalls, _ := catalog.Calls(); addCalls != 0 {
			t.Errorf("expected no add calls, got %d", addCalls)
		}
	})

	t.Run("verify absence triggers one re-commit", func(t *testing.T) {
		listCalls := 0
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return exactCandidates(req), nil
			},
			ListFn: func(ctx context.Context, playlistID string) ([]string, error) {
				listCalls++
				// first commit pre-list, first verify: track missing;
				// second commit pre-list, second verify: present.
				if listCalls >= 4 {
					return []string{"t1"}, nil
				}
				return nil, nil
			},
		}

		result, err := newTestPipeline(catalog).Run(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Success {
			t.Fatal("expected success after re-commit")
		}
		if _, addCalls, _ := catalog.Calls(); addCalls != 2 {
			t.Errorf("expected 2 add calls, got %d", addCalls)
		}
	})

	t.Run("fatal search error fails the workflow", func(t *testing.T) {
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				return nil, fmt.Errorf("%w: token revoked", shared.ErrAuthFailed)
			},
		}

		_, err := newTestPipeline(catalog).Run(context.Background(), req, nil)
		if err == nil {
			t.Fatal("expected failure")
		}
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected auth error, got %v", err)
		}
		if searchCalls, _, _ := catalog.Calls(); searchCalls != 1 {
			t.Errorf("fatal error must not be retried, got %d search calls", searchCalls)
		}
	})

	t.Run("budget expiry surfaces as a timeout error", func(t *testing.T) {
		catalog := &th.MockCatalog{
			SearchFn: func(ctx context.Context, title, artist, album string) ([]models.Candidate, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}

		pipeline := newTestPipeline(catalog)
		pipeline.Budget = 20 * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), pipeline.Budget)
		defer cancel()

		_, err := pipeline.Run(ctx, req, nil)
		if err == nil {
			t.Fatal("expected timeout failure")
		}
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout error, got %v", err)
		}
		if !strings.Contains(err.Error(), "workflow timed out after") {
			t.Errorf("timeout message missing budget: %v", err)
		}
	})
}
