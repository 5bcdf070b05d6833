package matching

import (
	"testing"

	"github.com/desertthunder/tracksync/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Bohemian Rhapsody", "bohemian rhapsody"},
		{"strips parenthetical", "Creep (Acoustic Version)", "creep"},
		{"strips bracketed", "Africa [Remastered 2011]", "africa"},
		{"removes punctuation", "Don't Stop Me Now!", "don t stop me now"},
		{"collapses whitespace", "  So   Far	Away ", "so far away"},
		{"nested qualifiers", "Song (Live [2019])", "song"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	req := models.SongRequest{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"}

	t.Run("isrc match short-circuits to 1.0", func(t *testing.T) {
		withISRC := req
		withISRC.ISRC = "GBUM71029604"
		c := models.Candidate{Title: "Completely Different", Artist: "Someone Else", ISRC: "GBUM71029604"}
		if got := Score(withISRC, c); got != 1.0 {
			t.Errorf("expected 1.0 for ISRC match, got %v", got)
		}
	})

	t.Run("identical track scores above exact cutoff", func(t *testing.T) {
		c := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"}
		if got := Score(req, c); got < 0.98 {
			t.Errorf("expected near-perfect score, got %v", got)
		}
	})

	t.Run("qualifier variants still score high", func(t *testing.T) {
		c := models.Candidate{Title: "Bohemian Rhapsody (Remastered 2011)", Artist: "Queen"}
		if got := Score(req, c); got < 0.9 {
			t.Errorf("expected high score for remaster variant, got %v", got)
		}
	})

	t.Run("wrong artist drags score down", func(t *testing.T) {
		right := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Queen"}
		wrong := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Panic! At The Disco"}
		if Score(req, wrong) >= Score(req, right) {
			t.Error("wrong artist should score lower than right artist")
		}
	})

	t.Run("album bonus only when albums match", func(t *testing.T) {
		with := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"}
		without := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "Greatest Hits"}
		if Score(req, with) <= Score(req, without) {
			t.Error("matching album should add a bonus")
		}
	})

	t.Run("score never exceeds 1.0", func(t *testing.T) {
		c := models.Candidate{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera"}
		if got := Score(req, c); got > 1.0 {
			t.Errorf("score exceeds 1.0: %v", got)
		}
	})
}

func TestRank(t *testing.T) {
	req := models.SongRequest{Title: "Africa", Artist: "Toto"}
	candidates := []models.Candidate{
		{ID: "cover", Title: "Africa", Artist: "Weezer"},
		{ID: "original", Title: "Africa", Artist: "Toto"},
		{ID: "unrelated", Title: "Rosanna", Artist: "Toto"},
	}

	ranked := Rank(req, candidates)

	if ranked[0].ID != "original" {
		t.Errorf("expected original first, got %s", ranked[0].ID)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("ranking not descending at index %d", i)
		}
	}

	if candidates[0].Score != 0 {
		t.Error("Rank mutated the input slice")
	}
}
