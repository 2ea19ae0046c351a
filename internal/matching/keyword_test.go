package matching

import (
	"context"
	"math"
	"testing"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

func TestKeywordMatchScorer(t *testing.T) {
	s := NewKeywordMatchScorer(10, 0.5, 3)

	tests := []struct {
		name        string
		opp         models.Opportunity
		profile     models.CompanyProfile
		wantScore   float64
		wantMatches int
	}{
		{
			name:        "full overlap with phrase bonus saturates",
			opp:         models.Opportunity{Title: "Cybersecurity assessment", Description: "cybersecurity assessment required"},
			profile:     models.CompanyProfile{CapabilityStatement: "cybersecurity assessment and penetration testing"},
			wantScore:   1.0,
			wantMatches: 2,
		},
		{
			name:        "no overlap scores zero",
			opp:         models.Opportunity{Title: "Janitorial support", Description: "Daily cleaning of federal facilities"},
			profile:     models.CompanyProfile{CapabilityStatement: "Machine learning research"},
			wantScore:   0,
			wantMatches: 0,
		},
		{
			name:        "empty capability statement scores zero",
			opp:         models.Opportunity{Title: "Cybersecurity assessment"},
			profile:     models.CompanyProfile{},
			wantScore:   0,
			wantMatches: 0,
		},
		{
			name:        "empty opportunity text scores zero",
			opp:         models.Opportunity{},
			profile:     models.CompanyProfile{CapabilityStatement: "cybersecurity assessment"},
			wantScore:   0,
			wantMatches: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Score(context.Background(), &tt.opp, &tt.profile)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(result.Score-tt.wantScore) > 1e-9 {
				t.Errorf("score = %v, want %v (details: %v)", result.Score, tt.wantScore, result.Details)
			}
			if got := result.Details["exact_matches"]; got != tt.wantMatches {
				t.Errorf("exact_matches = %v, want %v", got, tt.wantMatches)
			}
		})
	}
}

func TestKeywordScorerUsesPastPerformanceText(t *testing.T) {
	s := NewKeywordMatchScorer(10, 0.5, 3)

	opp := &models.Opportunity{Title: "Network modernization"}
	profile := &models.CompanyProfile{
		CapabilityStatement: "General consulting",
		PastPerformance: []models.PastPerformance{
			{Description: "Enterprise network modernization for a federal agency"},
		},
	}

	result, err := s.Score(context.Background(), opp, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score <= 0 {
		t.Errorf("expected positive score from past performance text, got %v", result.Score)
	}
}

func TestKeywordPhraseBonus(t *testing.T) {
	withBonus := NewKeywordMatchScorer(10, 0.5, 3)
	noBonus := NewKeywordMatchScorer(10, 0, 3)

	opp := &models.Opportunity{
		Title:       "Data migration services",
		Description: "Migrate legacy records",
	}
	profile := &models.CompanyProfile{
		CapabilityStatement: "Specialists in data migration projects",
	}

	bonus, _ := withBonus.Score(context.Background(), opp, profile)
	plain, _ := noBonus.Score(context.Background(), opp, profile)

	if bonus.Details["phrase_match"] != true {
		t.Fatalf("expected phrase match, details: %v", bonus.Details)
	}
	if bonus.Score <= plain.Score {
		t.Errorf("phrase bonus should raise the score: with=%v without=%v", bonus.Score, plain.Score)
	}
}
