package matching

import (
	"context"
	"math"
	"strings"
	"time"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// PastPerformanceScorer rewards a track record relevant to the opportunity:
// same-agency work, overlapping subject matter, and contract values in the
// same ballpark. Recent projects count more than old ones.
type PastPerformanceScorer struct {
	now func() time.Time
}

func NewPastPerformanceScorer() *PastPerformanceScorer {
	return &PastPerformanceScorer{now: time.Now}
}

func (s *PastPerformanceScorer) Name() string { return matchcfg.ComponentPastPerformance }

func (s *PastPerformanceScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	if len(profile.PastPerformance) == 0 {
		return ComponentResult{
			Score:   0,
			Details: map[string]interface{}{"reason": "no past performance on record"},
		}, nil
	}

	oppTokens := tokenSet(tokenize(opp.Title+" "+opp.Description, 3))
	currentYear := s.now().Year()

	var weightedSum, weightSum float64
	agencyMatches := 0

	for _, pp := range profile.PastPerformance {
		score := 0.0

		if pp.Agency != "" && opp.Agency != "" &&
			strings.EqualFold(strings.TrimSpace(pp.Agency), strings.TrimSpace(opp.Agency)) {
			score += 0.5
			agencyMatches++
		}

		if len(oppTokens) > 0 {
			ppTokens := tokenize(pp.Description, 3)
			shared := 0
			for _, tok := range ppTokens {
				if _, ok := oppTokens[tok]; ok {
					shared++
				}
			}
			if len(ppTokens) > 0 {
				score += 0.3 * float64(shared) / float64(len(ppTokens))
			}
		}

		score += 0.2 * valueProximity(pp.Value, opp.EstimatedValue)

		// Halve the weight for every five years of age, so a 2015
		// project matters far less than a 2024 one.
		age := currentYear - pp.Year
		if age < 0 {
			age = 0
		}
		w := math.Pow(0.5, float64(age)/5.0)

		weightedSum += w * score
		weightSum += w
	}

	overall := 0.0
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}

	return ComponentResult{
		Score: clamp01(overall),
		Details: map[string]interface{}{
			"project_count":  len(profile.PastPerformance),
			"agency_matches": agencyMatches,
		},
	}, nil
}

// valueProximity compares contract values on a log scale: same order of
// magnitude scores near 1, two orders apart scores near 0.
func valueProximity(pastValue, oppValue float64) float64 {
	if pastValue <= 0 || oppValue <= 0 {
		return 0
	}
	distance := math.Abs(math.Log10(pastValue) - math.Log10(oppValue))
	return clamp01(1 - distance/2)
}

// CertificationBonusScorer checks the company's certifications against the
// opportunity's set-aside requirement.
type CertificationBonusScorer struct{}

func NewCertificationBonusScorer() *CertificationBonusScorer { return &CertificationBonusScorer{} }

func (s *CertificationBonusScorer) Name() string { return matchcfg.ComponentCertificationBonus }

func (s *CertificationBonusScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	setAside := normalizeCertification(opp.SetAsideCode)

	if setAside == "" {
		// Open competition: holding any certification is a mild plus.
		if len(profile.Certifications) > 0 {
			return ComponentResult{
				Score:   0.3,
				Details: map[string]interface{}{"reason": "no set-aside; certifications held"},
			}, nil
		}
		return ComponentResult{
			Score:   0,
			Details: map[string]interface{}{"reason": "no set-aside; no certifications"},
		}, nil
	}

	for _, cert := range profile.Certifications {
		if normalizeCertification(cert) == setAside {
			return ComponentResult{
				Score: 1,
				Details: map[string]interface{}{
					"matched_certification": cert,
					"set_aside":             opp.SetAsideCode,
				},
			}, nil
		}
	}

	if len(profile.Certifications) > 0 {
		return ComponentResult{
			Score: 0.3,
			Details: map[string]interface{}{
				"reason":    "certifications held but none match the set-aside",
				"set_aside": opp.SetAsideCode,
			},
		}, nil
	}

	return ComponentResult{
		Score:   0,
		Details: map[string]interface{}{"reason": "set-aside requirement unmet", "set_aside": opp.SetAsideCode},
	}, nil
}

func normalizeCertification(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	v = strings.ReplaceAll(v, "-", "")
	v = strings.ReplaceAll(v, "_", "")
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "(", "")
	v = strings.ReplaceAll(v, ")", "")
	return v
}

// GeographicMatchScorer compares the place of performance against the
// company's office locations, with a floor for remote-capable companies.
type GeographicMatchScorer struct{}

func NewGeographicMatchScorer() *GeographicMatchScorer { return &GeographicMatchScorer{} }

func (s *GeographicMatchScorer) Name() string { return matchcfg.ComponentGeographicMatch }

func (s *GeographicMatchScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	pop := opp.PlaceOfPerformance

	if strings.TrimSpace(pop.State) == "" {
		// Nationwide or unspecified place of performance.
		return ComponentResult{
			Score:   0.5,
			Details: map[string]interface{}{"reason": "no place of performance specified"},
		}, nil
	}

	// A state match fully satisfies a place of performance that names no
	// city; 0.8 applies only when a requested city goes unmatched.
	stateScore := 1.0
	if strings.TrimSpace(pop.City) != "" {
		stateScore = 0.8
	}

	best := 0.0
	matchType := "none"
	for _, loc := range profile.Locations {
		if !strings.EqualFold(strings.TrimSpace(loc.State), strings.TrimSpace(pop.State)) {
			continue
		}
		if pop.City != "" && strings.EqualFold(strings.TrimSpace(loc.City), strings.TrimSpace(pop.City)) {
			best = 1.0
			matchType = "same_city"
			break
		}
		if best < stateScore {
			best = stateScore
			matchType = "same_state"
		}
	}

	if profile.RemoteCapable && best < 0.4 {
		best = 0.4
		matchType = "remote_capable"
	}

	return ComponentResult{
		Score: best,
		Details: map[string]interface{}{
			"match_type":           matchType,
			"place_of_performance": pop.State,
		},
	}, nil
}

// CapacityFitScorer estimates whether the company is the right size for the
// contract by comparing size bands; adjacent bands lose some credit, distant
// bands most of it.
type CapacityFitScorer struct{}

func NewCapacityFitScorer() *CapacityFitScorer { return &CapacityFitScorer{} }

func (s *CapacityFitScorer) Name() string { return matchcfg.ComponentCapacityFit }

var bandDistanceScores = [...]float64{1.0, 0.7, 0.4}

func (s *CapacityFitScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	oppBand := contractValueBand(opp.EstimatedValue)
	companyBand := companySizeBand(profile)

	if oppBand < 0 || companyBand < 0 {
		return ComponentResult{
			Score:   0,
			Details: map[string]interface{}{"reason": "insufficient size information"},
		}, nil
	}

	distance := oppBand - companyBand
	if distance < 0 {
		distance = -distance
	}

	score := 0.1
	if distance < len(bandDistanceScores) {
		score = bandDistanceScores[distance]
	}

	return ComponentResult{
		Score: score,
		Details: map[string]interface{}{
			"contract_band": oppBand,
			"company_band":  companyBand,
			"band_distance": distance,
		},
	}, nil
}

// contractValueBand buckets the estimated award value: micro (<$250k),
// small (<$1M), medium (<$10M), large (<$50M), major.
func contractValueBand(value float64) int {
	switch {
	case value <= 0:
		return -1
	case value < 250_000:
		return 0
	case value < 1_000_000:
		return 1
	case value < 10_000_000:
		return 2
	case value < 50_000_000:
		return 3
	default:
		return 4
	}
}

func companySizeBand(profile *models.CompanyProfile) int {
	if band := revenueBand(profile.RevenueRange); band >= 0 {
		return band
	}
	return employeeBand(profile.EmployeeCount)
}

func revenueBand(revenueRange string) int {
	switch strings.ToUpper(strings.TrimSpace(revenueRange)) {
	case "UNDER_1M", "<1M":
		return 0
	case "1M_5M", "1M-5M":
		return 1
	case "5M_25M", "5M-25M":
		return 2
	case "25M_100M", "25M-100M":
		return 3
	case "OVER_100M", ">100M":
		return 4
	default:
		return -1
	}
}

func employeeBand(count int) int {
	switch {
	case count <= 0:
		return -1
	case count < 10:
		return 0
	case count < 50:
		return 1
	case count < 250:
		return 2
	case count < 1000:
		return 3
	default:
		return 4
	}
}

// RecencyFactorScorer decays with the age of the posting and of the
// company's profile data; fresh on both sides scores near 1.
type RecencyFactorScorer struct {
	now func() time.Time
}

func NewRecencyFactorScorer() *RecencyFactorScorer {
	return &RecencyFactorScorer{now: time.Now}
}

func (s *RecencyFactorScorer) Name() string { return matchcfg.ComponentRecencyFactor }

func (s *RecencyFactorScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	now := s.now()

	oppFreshness := decayScore(now, opp.PostedDate, 30)
	profileFreshness := decayScore(now, profile.UpdatedAt, 180)

	score := 0.7*oppFreshness + 0.3*profileFreshness

	return ComponentResult{
		Score: clamp01(score),
		Details: map[string]interface{}{
			"opportunity_freshness": oppFreshness,
			"profile_freshness":     profileFreshness,
		},
	}, nil
}

// decayScore halves every halfLifeDays after the timestamp; a zero
// timestamp scores a neutral 0.5.
func decayScore(now, t time.Time, halfLifeDays float64) float64 {
	if t.IsZero() {
		return 0.5
	}
	ageDays := now.Sub(t).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	return math.Pow(0.5, ageDays/halfLifeDays)
}
