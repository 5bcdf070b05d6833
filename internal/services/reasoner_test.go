package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/shared"
)

func TestParseSelection(t *testing.T) {
	t.Run("well-formed response", func(t *testing.T) {
		sel, err := parseSelection("ID: abc123\nREASON: Same album and release year.")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if sel.CatalogID != "abc123" {
			t.Errorf("expected abc123, got %q", sel.CatalogID)
		}
		if sel.Rationale != "Same album and release year." {
			t.Errorf("unexpected rationale %q", sel.Rationale)
		}
	})

	t.Run("tolerates surrounding whitespace and extra lines", func(t *testing.T) {
		sel, err := parseSelection("\nSure, here's my pick.\n  ID:  abc123 \n  REASON: Studio version.\n")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if sel.CatalogID != "abc123" {
			t.Errorf("expected abc123, got %q", sel.CatalogID)
		}
	})

	t.Run("full uri collapses to the bare id", func(t *testing.T) {
		sel, err := parseSelection("ID: spotify:track:abc123\nREASON: Best match.")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if sel.CatalogID != "abc123" {
			t.Errorf("expected abc123, got %q", sel.CatalogID)
		}
	})

	t.Run("NONE selection is a track-not-found error", func(t *testing.T) {
		_, err := parseSelection("ID: NONE\nREASON: No candidate is the requested song.")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected track not found, got %v", err)
		}
	})

	t.Run("missing ID line is a malformed response", func(t *testing.T) {
		_, err := parseSelection("The best match is clearly the first one.")
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Errorf("expected malformed response, got %v", err)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	req := models.SongRequest{Title: "Africa", Artist: "Toto"}
	candidates := []models.Candidate{
		{ID: "t1", Title: "Africa", Artist: "Toto", Album: "Toto IV", Score: 0.91, Popularity: 85, ReleaseDate: "1982-04-08"},
		{ID: "t2", Title: "Africa", Artist: "Weezer", Album: "Weezer", Score: 0.89, Popularity: 70},
	}

	prompt := buildPrompt(req, candidates)

	for _, want := range []string{"Africa", "Toto", "t1", "t2", "0.91", "1982-04-08", "Album: Unknown"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestNewGeminiReasonerRequiresKey(t *testing.T) {
	_, err := NewGeminiReasoner(context.Background(), "", "gemini-1.5-flash")
	if !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("expected missing credentials, got %v", err)
	}
}
