package matching

import (
	"context"
	"strings"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// KeywordMatchScorer scores lexical overlap with a TF-weighted accumulation:
// each opportunity keyword found in the company text contributes its term
// frequency scaled by tfScale (capped at 1), normalized by the keyword count,
// plus a flat bonus when a title phrase occurs verbatim in the capability
// statement. The scaling constants are tunable algorithm parameters.
type KeywordMatchScorer struct {
	tfScale     float64
	phraseBonus float64
	minTokenLen int
}

func NewKeywordMatchScorer(tfScale, phraseBonus float64, minTokenLen int) *KeywordMatchScorer {
	if tfScale <= 0 {
		tfScale = 10.0
	}
	if phraseBonus < 0 {
		phraseBonus = 0
	}
	if minTokenLen <= 0 {
		minTokenLen = 3
	}
	return &KeywordMatchScorer{
		tfScale:     tfScale,
		phraseBonus: phraseBonus,
		minTokenLen: minTokenLen,
	}
}

func (s *KeywordMatchScorer) Name() string {
	return matchcfg.ComponentKeywordMatching
}

func (s *KeywordMatchScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	keywords := uniqueTokens(tokenize(opp.Title+" "+opp.Description, s.minTokenLen))

	var companyText strings.Builder
	companyText.WriteString(profile.CapabilityStatement)
	for _, perf := range profile.PastPerformance {
		companyText.WriteString(" ")
		companyText.WriteString(perf.Description)
	}
	companyTokens := tokenize(companyText.String(), s.minTokenLen)

	if len(keywords) == 0 || len(companyTokens) == 0 {
		return ComponentResult{
			Score: 0,
			Details: map[string]interface{}{
				"exact_matches":    0,
				"tfidf_similarity": 0.0,
			},
		}, nil
	}

	tf := termFrequencies(companyTokens)

	exactMatches := 0
	accum := 0.0
	for _, kw := range keywords {
		freq, ok := tf[kw]
		if !ok {
			continue
		}
		exactMatches++
		contribution := freq * s.tfScale
		if contribution > 1 {
			contribution = 1
		}
		accum += contribution
	}

	tfidfSimilarity := accum / float64(len(keywords))

	phraseMatched := s.phraseMatch(opp.Title, profile.CapabilityStatement)
	score := tfidfSimilarity
	if phraseMatched {
		score += s.phraseBonus
	}

	return ComponentResult{
		Score: clamp01(score),
		Details: map[string]interface{}{
			"exact_matches":    exactMatches,
			"keyword_count":    len(keywords),
			"tfidf_similarity": tfidfSimilarity,
			"phrase_match":     phraseMatched,
		},
	}, nil
}

// phraseMatch reports whether any adjacent keyword pair from the title
// occurs verbatim in the capability statement.
func (s *KeywordMatchScorer) phraseMatch(title, capability string) bool {
	titleTokens := tokenize(title, s.minTokenLen)
	if len(titleTokens) < 2 {
		return false
	}

	haystack := strings.ToLower(capability)
	for i := 0; i+1 < len(titleTokens); i++ {
		phrase := titleTokens[i] + " " + titleTokens[i+1]
		if strings.Contains(haystack, phrase) {
			return true
		}
	}
	return false
}
