package matching

import (
	"strings"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// FilterDecision is the quick filter's verdict on a pair. A rejection is a
// normal outcome, not an error.
type FilterDecision struct {
	IsMatch     bool
	FilterScore float64
	Details     map[string]interface{}
}

// QuickFilter pre-screens opportunity/company pairs before the expensive
// scorers run. It operates purely on in-memory fields of the two records and
// passes a pair as soon as any one check finds a plausible connection, so a
// pair the full scorers would rate highly is never rejected here.
type QuickFilter struct{}

func NewQuickFilter() *QuickFilter {
	return &QuickFilter{}
}

const (
	filterWeightNAICS    = 0.40
	filterWeightSetAside = 0.20
	filterWeightGeo      = 0.20
	filterWeightKeyword  = 0.20
)

func (f *QuickFilter) ShouldConsider(opp *models.Opportunity, profile *models.CompanyProfile) FilterDecision {
	naicsPass, naicsScore := f.checkNAICS(opp, profile)
	setAsidePass, setAsideScore := f.checkSetAside(opp, profile)
	geoPass, geoScore := f.checkGeography(opp, profile)
	keywordPass, keywordScore, sharedToken := f.checkKeywords(opp, profile)

	filterScore := naicsScore*filterWeightNAICS +
		setAsideScore*filterWeightSetAside +
		geoScore*filterWeightGeo +
		keywordScore*filterWeightKeyword

	isMatch := naicsPass || setAsidePass || geoPass || keywordPass

	details := map[string]interface{}{
		"naics_prefix_overlap": naicsPass,
		"set_aside_eligible":   setAsidePass,
		"geographic_plausible": geoPass,
		"keyword_overlap":      keywordPass,
	}
	if sharedToken != "" {
		details["shared_token"] = sharedToken
	}
	if !isMatch {
		details["reason"] = "no NAICS, set-aside, geographic, or keyword overlap"
	}

	return FilterDecision{
		IsMatch:     isMatch,
		FilterScore: clamp01(filterScore),
		Details:     details,
	}
}

// checkNAICS passes when any company code shares at least a 2-digit sector
// prefix with the opportunity code; score grows with prefix length.
func (f *QuickFilter) checkNAICS(opp *models.Opportunity, profile *models.CompanyProfile) (bool, float64) {
	if opp.NAICSCode == "" || len(profile.NAICSCodes) == 0 {
		return false, 0
	}

	best := 0
	for _, code := range profile.NAICSCodes {
		if n := sharedPrefixLen(opp.NAICSCode, code); n > best {
			best = n
		}
	}

	if best < 2 {
		return false, 0
	}
	return true, float64(best) / 6.0
}

// checkSetAside passes only when the opportunity restricts eligibility and
// the company holds the matching certification. An unrestricted opportunity
// is neutral: it neither passes nor fails a pair on its own.
func (f *QuickFilter) checkSetAside(opp *models.Opportunity, profile *models.CompanyProfile) (bool, float64) {
	if opp.SetAsideCode == "" {
		return false, 0
	}
	for _, cert := range profile.Certifications {
		if strings.EqualFold(cert, opp.SetAsideCode) {
			return true, 1.0
		}
	}
	return false, 0
}

// checkGeography passes on a state overlap or a remote-capable company. An
// opportunity without a place of performance is neutral.
func (f *QuickFilter) checkGeography(opp *models.Opportunity, profile *models.CompanyProfile) (bool, float64) {
	state := strings.TrimSpace(opp.PlaceOfPerformance.State)
	if state == "" {
		return false, 0
	}

	for _, loc := range profile.Locations {
		if strings.EqualFold(loc.State, state) {
			if opp.PlaceOfPerformance.City != "" && strings.EqualFold(loc.City, opp.PlaceOfPerformance.City) {
				return true, 1.0
			}
			return true, 0.8
		}
	}

	if profile.RemoteCapable {
		return true, 0.4
	}

	return false, 0
}

// checkKeywords passes when at least one meaningful token from the
// opportunity title or description also appears in the capability statement.
func (f *QuickFilter) checkKeywords(opp *models.Opportunity, profile *models.CompanyProfile) (bool, float64, string) {
	oppTokens := tokenize(opp.Title+" "+opp.Description, 3)
	if len(oppTokens) == 0 {
		return false, 0, ""
	}

	companySet := tokenSet(tokenize(profile.CapabilityStatement, 3))
	if len(companySet) == 0 {
		return false, 0, ""
	}

	shared := 0
	first := ""
	for _, t := range uniqueTokens(oppTokens) {
		if _, ok := companySet[t]; ok {
			if first == "" {
				first = t
			}
			shared++
		}
	}

	if shared == 0 {
		return false, 0, ""
	}

	score := float64(shared) / float64(len(uniqueTokens(oppTokens)))
	if score > 1 {
		score = 1
	}
	return true, score, first
}

func sharedPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
