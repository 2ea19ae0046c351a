package models

import "time"

// ConfidenceLevel buckets a continuous match score for human triage.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
	ConfidenceNone   ConfidenceLevel = "NONE"
)

// rank orders confidence levels NONE < LOW < MEDIUM < HIGH.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

type Location struct {
	State string `json:"state"`
	City  string `json:"city"`
}

// Opportunity is a SAM.gov solicitation record, immutable once ingested.
type Opportunity struct {
	NoticeID           string    `json:"notice_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	NAICSCode          string    `json:"naics_code"`
	SetAsideCode       string    `json:"set_aside_code"`
	PostedDate         time.Time `json:"posted_date"`
	ResponseDeadline   time.Time `json:"response_deadline"`
	ArchiveDate        time.Time `json:"archive_date"`
	PlaceOfPerformance Location  `json:"place_of_performance"`
	EstimatedValue     float64   `json:"estimated_value,omitempty"`
	Agency             string    `json:"agency"`
}

type PastPerformance struct {
	Description string  `json:"description"`
	Agency      string  `json:"agency"`
	Value       float64 `json:"value"`
	Year        int     `json:"year"`
}

// CompanyProfile is a tenant-owned capability record.
type CompanyProfile struct {
	CompanyID           string            `json:"company_id"`
	TenantID            string            `json:"tenant_id"`
	CapabilityStatement string            `json:"capability_statement"`
	NAICSCodes          []string          `json:"naics_codes"`
	Certifications      []string          `json:"certifications"`
	PastPerformance     []PastPerformance `json:"past_performance"`
	Locations           []Location        `json:"locations"`
	EmployeeCount       int               `json:"employee_count"`
	RevenueRange        string            `json:"revenue_range"`
	RemoteCapable       bool              `json:"remote_capable"`
	ActiveStatus        bool              `json:"active_status"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Embedding levels. An entity carries a full-document embedding plus optional
// finer-grained levels; chunk records exist when the source text exceeded the
// embedding model input limit.
const (
	LevelFullDocument        = "full_document"
	LevelFullProfile         = "full_profile"
	LevelCapabilityStatement = "capability_statement"
	LevelExperience          = "experience"
	LevelTeam                = "team"
	LevelCertifications      = "certifications"
	LevelChunk               = "chunk"
)

const (
	EntityTypeOpportunity = "opportunity"
	EntityTypeCompany     = "company"
)

// EmbeddingRecord is immutable once written; re-embedding supersedes rather
// than mutates.
type EmbeddingRecord struct {
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Level       string    `json:"level"`
	ChunkIndex  int       `json:"chunk_index"`
	Embedding   []float32 `json:"embedding"`
	TextPreview string    `json:"text_preview"`
	TokenCount  int       `json:"token_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScoreComponent is one dimension of a match score breakdown.
type ScoreComponent struct {
	Name                 string                 `json:"name"`
	RawScore             float64                `json:"raw_score"`
	Weight               float64                `json:"weight"`
	WeightedContribution float64                `json:"weighted_contribution"`
	Details              map[string]interface{} `json:"details,omitempty"`
}

// MatchResult is the final scored pairing of an opportunity and a company.
// Invariant: TotalScore equals the sum of component WeightedContributions
// within floating-point tolerance.
type MatchResult struct {
	OpportunityID   string           `json:"opportunity_id"`
	CompanyID       string           `json:"company_id"`
	TotalScore      float64          `json:"total_score"`
	ConfidenceLevel ConfidenceLevel  `json:"confidence_level"`
	Components      []ScoreComponent `json:"components"`
	ComputedAt      time.Time        `json:"computed_at"`
}

type ConfidenceThresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// WeightConfiguration is scoped globally ("global") or per tenant
// ("tenant_<id>"), versioned, and cached by the configuration provider.
type WeightConfiguration struct {
	Scope            string               `json:"scope"`
	Version          int                  `json:"version"`
	Weights          map[string]float64   `json:"weights"`
	ConfidenceLevels ConfidenceThresholds `json:"confidence_levels"`
	AlgorithmParams  map[string]float64   `json:"algorithm_params"`
	UpdatedAt        time.Time            `json:"updated_at"`
}
