package matching

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/models"
	"github.com/desertthunder/tracksync/internal/retry"
)

// Config contains the disambiguation policy knobs. All values are
// configuration, not hardcoded policy; see config.example.toml.
type Config struct {
	// Threshold is the minimum acceptable score, overridable per request.
	Threshold float64
	// Margin is the required gap between the top two candidates for the top
	// one to count as unambiguously best.
	Margin float64
	// AIFloor is the minimum best score that justifies an AI escalation.
	AIFloor float64
	// ExactCutoff is the score at or above which a direct match is tagged
	// exact_match instead of fuzzy.
	ExactCutoff float64
	// TopN bounds how many candidates are handed to the reasoner.
	TopN int
}

// DefaultConfig returns the stock thresholds: 0.85 accept, 0.05 margin,
// 0.5 AI floor, 0.98 exact cutoff, top 5 candidates.
func DefaultConfig() Config {
	return Config{Threshold: 0.85, Margin: 0.05, AIFloor: 0.5, ExactCutoff: 0.98, TopN: 5}
}

// Selection is the reasoning service's choice among candidates.
type Selection struct {
	CatalogID string
	Rationale string
}

// Reasoner is the narrow decision interface over the external reasoning
// service: given a song request and candidates, return a ranked choice with
// a rationale. Implementations live in the services package.
type Reasoner interface {
	Disambiguate(ctx context.Context, req models.SongRequest, candidates []models.Candidate) (Selection, error)
}

// aiConfidence is reported for reasoner-selected matches, which carry no
// numeric score of their own.
const aiConfidence = 0.90

// Disambiguator decides whether a top candidate is acceptable outright, must
// be escalated to the reasoner, or yields no acceptable match.
type Disambiguator struct {
	cfg      Config
	reasoner Reasoner
	policy   retry.Policy
	logger   *log.Logger
}

// NewDisambiguator creates a Disambiguator. The reasoner may be nil, in which
// case AI escalation is skipped regardless of the request flag.
func NewDisambiguator(cfg Config, reasoner Reasoner, logger *log.Logger) *Disambiguator {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultConfig().TopN
	}
	return &Disambiguator{
		cfg:      cfg,
		reasoner: reasoner,
		// Mirrors the reasoning service retry policy: 3 attempts starting at
		// 2s, doubling, capped at 30s. Malformed responses classify as fatal
		// and are not retried.
		policy: retry.Policy{
			MaxAttempts:        3,
			InitialDelay:       2 * time.Second,
			BackoffCoefficient: 2.0,
			MaxDelay:           30 * time.Second,
		},
		logger: logger,
	}
}

// Decide applies the disambiguation policy to candidates ranked by score
// descending. Reasoner failures never propagate: they fall through to a
// no_match decision carrying the best observed score.
func (d *Disambiguator) Decide(ctx context.Context, req models.SongRequest, ranked []models.Candidate) models.MatchDecision {
	if len(ranked) == 0 {
		return models.MatchDecision{Method: models.MatchNone}
	}

	threshold := d.cfg.Threshold
	if req.Threshold > 0 {
		threshold = req.Threshold
	}

	top := ranked[0]
	if top.Score >= threshold && d.unambiguous(ranked, threshold) {
		method := models.MatchFuzzy
		if top.Score >= d.cfg.ExactCutoff {
			method = models.MatchExact
		}
		selected := top
		return models.MatchDecision{Selected: &selected, Method: method, Confidence: top.Score}
	}

	if req.UseAI && d.reasoner != nil && top.Score >= d.cfg.AIFloor {
		if decision, ok := d.escalate(ctx, req, ranked); ok {
			return decision
		}
	}

	return models.MatchDecision{Method: models.MatchNone, Confidence: top.Score}
}

// unambiguous reports whether the top candidate is clearly best: either it
// leads the runner-up by the margin, or it is the only one above threshold.
func (d *Disambiguator) unambiguous(ranked []models.Candidate, threshold float64) bool {
	if len(ranked) == 1 {
		return true
	}
	if ranked[0].Score-ranked[1].Score >= d.cfg.Margin {
		return true
	}
	return ranked[1].Score < threshold
}

// escalate asks the reasoner to choose among the top-N candidates. Returns
// ok=false when the reasoner fails or its selection matches no candidate.
func (d *Disambiguator) escalate(ctx context.Context, req models.SongRequest, ranked []models.Candidate) (models.MatchDecision, bool) {
	topN := ranked
	if len(topN) > d.cfg.TopN {
		topN = topN[:d.cfg.TopN]
	}

	selection, _, err := retry.DoValue(ctx, d.policy, func(ctx context.Context) (Selection, error) {
		return d.reasoner.Disambiguate(ctx, req, topN)
	})
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("reasoner escalation failed", "error", err)
		}
		return models.MatchDecision{}, false
	}

	for i := range topN {
		if topN[i].ID == selection.CatalogID {
			selected := topN[i]
			return models.MatchDecision{
				Selected:   &selected,
				Method:     models.MatchAI,
				Confidence: aiConfidence,
				Rationale:  selection.Rationale,
			}, true
		}
	}

	if d.logger != nil {
		d.logger.Warn("reasoner selected unknown candidate", "catalog_id", selection.CatalogID)
	}
	return models.MatchDecision{}, false
}
