// package matching implements candidate scoring and disambiguation for
// resolving a requested song against fuzzy catalog search results.
//
// Scoring is deterministic and pure; disambiguation may escalate ambiguous
// results to an external reasoning service.
package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/desertthunder/tracksync/internal/models"
)

// Weights for combining per-term similarities. Title dominates because
// catalogs disagree on artist credit formatting far more than on titles.
const (
	titleWeight  = 0.6
	artistWeight = 0.4
	albumBonus   = 0.05
)

// Normalize lowercases s, strips parenthetical and bracketed qualifiers
// ("(Live)", "[Remastered 2011]"), and removes punctuation, collapsing
// whitespace. Used for both scoring and cache keys.
func Normalize(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case depth > 0:
			// inside a qualifier
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Score computes the similarity between a requested song and one catalog
// candidate, in [0,1]. An ISRC match short-circuits to 1.0. Candidates
// missing an album are not penalized; the album term only contributes a
// bonus when the request supplied an album that matches.
func Score(req models.SongRequest, c models.Candidate) float64 {
	if req.ISRC != "" && c.ISRC != "" && req.ISRC == c.ISRC {
		return 1.0
	}

	title := similarity(Normalize(req.Title), Normalize(c.Title))
	artist := similarity(Normalize(req.Artist), Normalize(c.Artist))

	score := title*titleWeight + artist*artistWeight

	if req.Album != "" && c.Album != "" {
		if similarity(Normalize(req.Album), Normalize(c.Album)) >= 0.9 {
			score += albumBonus
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Rank scores every candidate against the request and returns them sorted by
// score descending. The input slice is not mutated.
func Rank(req models.SongRequest, candidates []models.Candidate) []models.Candidate {
	ranked := make([]models.Candidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score = Score(req, ranked[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// similarity returns the better of token-set overlap and normalized edit
// distance for two normalized strings. Empty terms score 0.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	dice := tokenOverlap(a, b)
	edit := editSimilarity(a, b)
	if dice > edit {
		return dice
	}
	return edit
}

// tokenOverlap computes the Dice coefficient over whitespace tokens.
func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]int, len(ta))
	for _, tok := range ta {
		set[tok]++
	}

	shared := 0
	for _, tok := range tb {
		if set[tok] > 0 {
			set[tok]--
			shared++
		}
	}

	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

// editSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)).
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
