package matching

import (
	"context"
	"testing"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

func TestNAICSAlignmentLevels(t *testing.T) {
	s := NewNAICSAlignmentScorer()

	tests := []struct {
		name      string
		oppCode   string
		codes     []string
		wantScore float64
		wantLevel string
	}{
		{"exact six digit", "541512", []string{"541512"}, 1.0, "exact"},
		{"five digit industry", "541512", []string{"541511"}, 0.85, "industry"},
		{"four digit industry group", "541512", []string{"541590"}, 0.60, "industry_group"},
		{"three digit subsector", "541512", []string{"541611"}, 0.35, "subsector"},
		{"two digit sector", "541512", []string{"561210"}, 0.15, "sector"},
		{"no overlap", "541512", []string{"238210"}, 0, ""},
		{"best code wins", "541512", []string{"238210", "541511", "541512"}, 1.0, "exact"},
		{"no opportunity code", "", []string{"541512"}, 0, ""},
		{"no company codes", "541512", nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := &models.Opportunity{NAICSCode: tt.oppCode}
			profile := &models.CompanyProfile{NAICSCodes: tt.codes}

			result, err := s.Score(context.Background(), opp, profile)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", result.Score, tt.wantScore)
			}
			if tt.wantLevel != "" {
				if got := result.Details["match_level"]; got != tt.wantLevel {
					t.Errorf("match_level = %v, want %v", got, tt.wantLevel)
				}
			}
		})
	}
}
