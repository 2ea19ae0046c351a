package matching

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

func TestPastPerformanceScorer(t *testing.T) {
	s := NewPastPerformanceScorer()
	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	opp := &models.Opportunity{
		Title:          "Cybersecurity assessment",
		Description:    "Assess agency networks",
		Agency:         "Department of Defense",
		EstimatedValue: 500_000,
	}

	t.Run("no history scores zero", func(t *testing.T) {
		result, err := s.Score(context.Background(), opp, &models.CompanyProfile{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Score != 0 {
			t.Errorf("score = %v, want 0", result.Score)
		}
	})

	t.Run("relevant recent project scores high", func(t *testing.T) {
		profile := &models.CompanyProfile{
			PastPerformance: []models.PastPerformance{
				{
					Description: "Cybersecurity assessment of defense networks",
					Agency:      "Department of Defense",
					Value:       500_000,
					Year:        2025,
				},
			},
		}
		result, err := s.Score(context.Background(), opp, profile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Score < 0.7 {
			t.Errorf("score = %v, want >= 0.7 (details: %v)", result.Score, result.Details)
		}
		if got := result.Details["agency_matches"]; got != 1 {
			t.Errorf("agency_matches = %v, want 1", got)
		}
	})

	t.Run("old projects weigh less than recent ones", func(t *testing.T) {
		relevant := models.PastPerformance{
			Description: "Cybersecurity assessment of defense networks",
			Agency:      "Department of Defense",
			Value:       500_000,
		}
		irrelevant := models.PastPerformance{
			Description: "Lawn maintenance",
			Agency:      "Park Service",
			Value:       10_000,
		}

		recentRelevant := relevant
		recentRelevant.Year = 2025
		oldIrrelevant := irrelevant
		oldIrrelevant.Year = 2010

		oldRelevant := relevant
		oldRelevant.Year = 2010
		recentIrrelevant := irrelevant
		recentIrrelevant.Year = 2025

		good, _ := s.Score(context.Background(), opp, &models.CompanyProfile{
			PastPerformance: []models.PastPerformance{recentRelevant, oldIrrelevant},
		})
		bad, _ := s.Score(context.Background(), opp, &models.CompanyProfile{
			PastPerformance: []models.PastPerformance{oldRelevant, recentIrrelevant},
		})

		if good.Score <= bad.Score {
			t.Errorf("recent relevant work should outscore old relevant work: %v <= %v", good.Score, bad.Score)
		}
	})
}

func TestValueProximity(t *testing.T) {
	tests := []struct {
		past, opp float64
		want      float64
	}{
		{500_000, 500_000, 1.0},
		{500_000, 5_000_000, 0.5},
		{500_000, 50_000_000, 0},
		{0, 500_000, 0},
		{500_000, 0, 0},
	}

	for _, tt := range tests {
		if got := valueProximity(tt.past, tt.opp); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("valueProximity(%v, %v) = %v, want %v", tt.past, tt.opp, got, tt.want)
		}
	}
}

func TestCertificationBonusScorer(t *testing.T) {
	s := NewCertificationBonusScorer()

	tests := []struct {
		name     string
		setAside string
		certs    []string
		want     float64
	}{
		{"exact match", "SDVOSB", []string{"SDVOSB"}, 1.0},
		{"case and punctuation insensitive", "8(a)", []string{"8A"}, 1.0},
		{"held but not matching", "WOSB", []string{"HUBZone"}, 0.3},
		{"requirement unmet", "SDVOSB", nil, 0},
		{"open competition with certs", "", []string{"8A"}, 0.3},
		{"open competition without certs", "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := &models.Opportunity{SetAsideCode: tt.setAside}
			profile := &models.CompanyProfile{Certifications: tt.certs}

			result, err := s.Score(context.Background(), opp, profile)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.want {
				t.Errorf("score = %v, want %v", result.Score, tt.want)
			}
		})
	}
}

func TestGeographicMatchScorer(t *testing.T) {
	s := NewGeographicMatchScorer()

	tests := []struct {
		name      string
		pop       models.Location
		locations []models.Location
		remote    bool
		want      float64
	}{
		{"same city", models.Location{State: "TX", City: "Austin"}, []models.Location{{State: "TX", City: "Austin"}}, false, 1.0},
		{"unmatched city in state", models.Location{State: "TX", City: "Austin"}, []models.Location{{State: "TX", City: "Dallas"}}, false, 0.8},
		{"state match with no city requested", models.Location{State: "VA"}, []models.Location{{State: "VA", City: "Arlington"}}, false, 1.0},
		{"remote floor", models.Location{State: "AK"}, []models.Location{{State: "TX"}}, true, 0.4},
		{"no presence", models.Location{State: "AK"}, []models.Location{{State: "TX"}}, false, 0},
		{"nationwide", models.Location{}, []models.Location{{State: "TX"}}, false, 0.5},
		{"same state beats remote floor", models.Location{State: "TX"}, []models.Location{{State: "TX"}}, true, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := &models.Opportunity{PlaceOfPerformance: tt.pop}
			profile := &models.CompanyProfile{Locations: tt.locations, RemoteCapable: tt.remote}

			result, err := s.Score(context.Background(), opp, profile)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.want {
				t.Errorf("score = %v, want %v (details: %v)", result.Score, tt.want, result.Details)
			}
		})
	}
}

func TestCapacityFitScorer(t *testing.T) {
	s := NewCapacityFitScorer()

	tests := []struct {
		name      string
		value     float64
		employees int
		revenue   string
		want      float64
	}{
		{"same band", 500_000, 30, "", 1.0},
		{"adjacent band", 5_000_000, 30, "", 0.7},
		{"two bands apart", 20_000_000, 30, "", 0.4},
		{"distant bands", 60_000_000, 5, "", 0.1},
		{"revenue preferred over headcount", 500_000, 5, "1M_5M", 1.0},
		{"missing company size", 500_000, 0, "", 0},
		{"missing contract value", 0, 30, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := &models.Opportunity{EstimatedValue: tt.value}
			profile := &models.CompanyProfile{EmployeeCount: tt.employees, RevenueRange: tt.revenue}

			result, err := s.Score(context.Background(), opp, profile)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.want {
				t.Errorf("score = %v, want %v (details: %v)", result.Score, tt.want, result.Details)
			}
		})
	}
}

func TestRecencyFactorScorer(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewRecencyFactorScorer()
	s.now = func() time.Time { return now }

	fresh := &models.Opportunity{PostedDate: now}
	stale := &models.Opportunity{PostedDate: now.AddDate(0, -6, 0)}
	profile := &models.CompanyProfile{UpdatedAt: now}

	freshResult, err := s.Score(context.Background(), fresh, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	staleResult, err := s.Score(context.Background(), stale, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(freshResult.Score-1.0) > 1e-9 {
		t.Errorf("fresh pair score = %v, want 1.0", freshResult.Score)
	}
	if staleResult.Score >= freshResult.Score {
		t.Errorf("stale posting should score below fresh: %v >= %v", staleResult.Score, freshResult.Score)
	}

	t.Run("missing dates are neutral", func(t *testing.T) {
		result, err := s.Score(context.Background(), &models.Opportunity{}, &models.CompanyProfile{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(result.Score-0.5) > 1e-9 {
			t.Errorf("score = %v, want 0.5", result.Score)
		}
	})
}
