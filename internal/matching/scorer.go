package matching

import (
	"context"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// ComponentResult is a single scoring dimension's raw outcome before
// weighting. Score is always within [0,1]; Details carries per-component
// explainability data.
type ComponentResult struct {
	Score   float64
	Details map[string]interface{}
}

// ComponentScorer scores one dimension of an opportunity/company pairing.
// Implementations other than the semantic scorer are pure functions of their
// inputs and perform no I/O.
type ComponentScorer interface {
	Name() string
	Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
