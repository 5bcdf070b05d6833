package models

import "fmt"

// SongRequest describes one song to be placed into a target playlist.
// Immutable once it enters the core; validated at the transport boundary.
type SongRequest struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album,omitempty"`
	ISRC       string  `json:"isrc,omitempty"`
	PlaylistID string  `json:"playlist_id"`
	Requester  string  `json:"requester_id,omitempty"`
	Threshold  float64 `json:"match_threshold,omitempty"`
	UseAI      bool    `json:"use_ai_disambiguation"`
}

func (r SongRequest) String() string {
	return fmt.Sprintf("'%s' by %s", r.Title, r.Artist)
}

// Candidate is one catalog search result considered as a possible match.
// Candidates are ephemeral: produced by the search step, scored, and
// discarded when the workflow completes.
type Candidate struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	URI         string  `json:"uri"`
	ISRC        string  `json:"isrc,omitempty"`
	DurationMS  int     `json:"duration_ms"`
	Popularity  int     `json:"popularity"`
	ReleaseDate string  `json:"release_date"`
	Score       float64 `json:"score"` // computed, not stored from source
}

func (c Candidate) String() string {
	return fmt.Sprintf("'%s' by %s on %s", c.Title, c.Artist, c.Album)
}

// MatchMethod tags how a match decision was reached.
type MatchMethod string

const (
	MatchExact MatchMethod = "exact_match"
	MatchFuzzy MatchMethod = "fuzzy"
	MatchAI    MatchMethod = "ai_disambiguation"
	MatchNone  MatchMethod = "no_match"
)

// MatchDecision is the outcome of disambiguation. Immutable once produced.
// Selected is nil when Method is MatchNone; Confidence then carries the best
// observed score for diagnostics.
type MatchDecision struct {
	Selected   *Candidate  `json:"selected,omitempty"`
	Method     MatchMethod `json:"method"`
	Confidence float64     `json:"confidence"`
	Rationale  string      `json:"rationale,omitempty"`
}

func (d MatchDecision) String() string {
	if d.Selected == nil {
		return fmt.Sprintf("no match (best: %.2f)", d.Confidence)
	}
	return fmt.Sprintf("match %s (confidence: %.2f, method: %s)", d.Selected.ID, d.Confidence, d.Method)
}
