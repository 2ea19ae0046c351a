package matching

import (
	"context"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// NAICS codes are hierarchical: 2-digit sector, 3-digit subsector, 4-digit
// industry group, 5-digit industry, 6-digit national industry. Alignment is
// scored by the deepest shared prefix against the company's best code.
type NAICSAlignmentScorer struct{}

func NewNAICSAlignmentScorer() *NAICSAlignmentScorer {
	return &NAICSAlignmentScorer{}
}

func (s *NAICSAlignmentScorer) Name() string {
	return matchcfg.ComponentNAICSAlignment
}

type naicsLevel struct {
	prefixLen int
	score     float64
	label     string
}

var naicsLevels = []naicsLevel{
	{6, 1.0, "exact"},
	{5, 0.85, "industry"},
	{4, 0.60, "industry_group"},
	{3, 0.35, "subsector"},
	{2, 0.15, "sector"},
}

func (s *NAICSAlignmentScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	if opp.NAICSCode == "" || len(profile.NAICSCodes) == 0 {
		return ComponentResult{
			Score: 0,
			Details: map[string]interface{}{
				"match_level": "none",
			},
		}, nil
	}

	bestScore := 0.0
	bestLevel := "none"
	bestCode := ""

	for _, code := range profile.NAICSCodes {
		shared := sharedPrefixLen(opp.NAICSCode, code)
		for _, level := range naicsLevels {
			if shared >= level.prefixLen {
				if level.score > bestScore {
					bestScore = level.score
					bestLevel = level.label
					bestCode = code
				}
				break
			}
		}
	}

	details := map[string]interface{}{
		"match_level":       bestLevel,
		"opportunity_naics": opp.NAICSCode,
	}
	if bestCode != "" {
		details["matched_company_naics"] = bestCode
	}

	return ComponentResult{Score: bestScore, Details: details}, nil
}
