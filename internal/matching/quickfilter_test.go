package matching

import (
	"testing"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

func TestQuickFilterAnyPassRule(t *testing.T) {
	f := NewQuickFilter()

	tests := []struct {
		name    string
		opp     models.Opportunity
		profile models.CompanyProfile
		want    bool
	}{
		{
			name:    "naics sector overlap alone passes",
			opp:     models.Opportunity{NAICSCode: "541512"},
			profile: models.CompanyProfile{NAICSCodes: []string{"541611"}},
			want:    true,
		},
		{
			name:    "naics below sector level does not pass",
			opp:     models.Opportunity{NAICSCode: "562211"},
			profile: models.CompanyProfile{NAICSCodes: []string{"541511"}},
			want:    false,
		},
		{
			name:    "set-aside certification alone passes",
			opp:     models.Opportunity{SetAsideCode: "SDVOSB"},
			profile: models.CompanyProfile{Certifications: []string{"sdvosb"}},
			want:    true,
		},
		{
			name:    "unrestricted opportunity is neutral",
			opp:     models.Opportunity{NAICSCode: "562211"},
			profile: models.CompanyProfile{NAICSCodes: []string{"541511"}, Certifications: []string{"8A"}},
			want:    false,
		},
		{
			name:    "state overlap alone passes",
			opp:     models.Opportunity{PlaceOfPerformance: models.Location{State: "VA"}},
			profile: models.CompanyProfile{Locations: []models.Location{{State: "va", City: "Reston"}}},
			want:    true,
		},
		{
			name:    "remote capable passes geography",
			opp:     models.Opportunity{PlaceOfPerformance: models.Location{State: "AK"}},
			profile: models.CompanyProfile{RemoteCapable: true},
			want:    true,
		},
		{
			name:    "missing place of performance is neutral",
			opp:     models.Opportunity{},
			profile: models.CompanyProfile{Locations: []models.Location{{State: "VA"}}},
			want:    false,
		},
		{
			name:    "shared keyword alone passes",
			opp:     models.Opportunity{Title: "Cybersecurity assessment"},
			profile: models.CompanyProfile{CapabilityStatement: "We deliver cybersecurity audits"},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := f.ShouldConsider(&tt.opp, &tt.profile)
			if decision.IsMatch != tt.want {
				t.Errorf("IsMatch = %v, want %v (details: %v)", decision.IsMatch, tt.want, decision.Details)
			}
		})
	}
}

func TestQuickFilterRejectsUnrelatedPair(t *testing.T) {
	f := NewQuickFilter()

	opp := &models.Opportunity{
		NoticeID:           "OPP-NW-1",
		Title:              "Nuclear waste disposal",
		Description:        "Transport and disposal of low-level radioactive material",
		NAICSCode:          "562211",
		PlaceOfPerformance: models.Location{State: "NV"},
	}
	profile := &models.CompanyProfile{
		CompanyID:           "CMP-SW-1",
		CapabilityStatement: "Custom software development and cloud migration",
		NAICSCodes:          []string{"541511"},
		Locations:           []models.Location{{State: "VA", City: "Arlington"}},
	}

	decision := f.ShouldConsider(opp, profile)
	if decision.IsMatch {
		t.Fatalf("expected rejection, got pass with details %v", decision.Details)
	}
	if decision.Details["reason"] == nil {
		t.Error("expected a rejection reason in details")
	}
}

func TestQuickFilterScoreWeighting(t *testing.T) {
	f := NewQuickFilter()

	// Exact NAICS, matching set-aside, same city, no capability statement.
	opp := &models.Opportunity{
		NAICSCode:          "541512",
		SetAsideCode:       "WOSB",
		PlaceOfPerformance: models.Location{State: "TX", City: "Austin"},
	}
	profile := &models.CompanyProfile{
		NAICSCodes:     []string{"541512"},
		Certifications: []string{"WOSB"},
		Locations:      []models.Location{{State: "TX", City: "Austin"}},
	}

	decision := f.ShouldConsider(opp, profile)
	if !decision.IsMatch {
		t.Fatal("expected pass")
	}

	// 0.40*1.0 + 0.20*1.0 + 0.20*1.0 + 0.20*0
	want := 0.8
	if diff := decision.FilterScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("FilterScore = %v, want %v", decision.FilterScore, want)
	}
}

func TestSharedPrefixLen(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"541512", "541512", 6},
		{"541512", "541511", 5},
		{"541512", "541611", 3},
		{"541512", "562211", 1},
		{"541512", "238210", 0},
		{"", "541512", 0},
	}

	for _, tt := range tests {
		if got := sharedPrefixLen(tt.a, tt.b); got != tt.want {
			t.Errorf("sharedPrefixLen(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
