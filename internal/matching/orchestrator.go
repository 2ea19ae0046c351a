package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/metrics"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// ResultStore persists completed match results.
type ResultStore interface {
	SaveMatchResult(result *models.MatchResult) error
}

// ResultCache holds recent match results for fast retrieval.
type ResultCache interface {
	SetMatchResult(ctx context.Context, result *models.MatchResult, ttl time.Duration) error
}

// OrchestratorOptions configures the match pipeline.
type OrchestratorOptions struct {
	SemanticTimeout  time.Duration
	ComponentTimeout time.Duration
	ResultCacheTTL   time.Duration
	MaxInputChars    int
	ChunkOverlap     int
}

func (o *OrchestratorOptions) withDefaults() {
	if o.SemanticTimeout <= 0 {
		o.SemanticTimeout = 5 * time.Second
	}
	if o.ComponentTimeout <= 0 {
		o.ComponentTimeout = time.Second
	}
	if o.ResultCacheTTL <= 0 {
		o.ResultCacheTTL = 15 * time.Minute
	}
}

// Orchestrator runs the full scoring pipeline for one opportunity/company
// pair: quick filter, eight component scorers in parallel, weighted
// aggregation, confidence classification, persistence.
type Orchestrator struct {
	config      *matchcfg.Provider
	quickFilter *QuickFilter
	embedder    Embedder
	levels      LevelSource
	store       ResultStore
	cache       ResultCache
	opts        OrchestratorOptions

	now func() time.Time
}

// NewOrchestrator wires the pipeline. embedder, levels, store, and cache are
// each optional: a nil embedder disables the semantic component, nil store
// and cache disable persistence.
func NewOrchestrator(config *matchcfg.Provider, embedder Embedder, levels LevelSource, store ResultStore, cache ResultCache, opts OrchestratorOptions) *Orchestrator {
	opts.withDefaults()
	return &Orchestrator{
		config:      config,
		quickFilter: NewQuickFilter(),
		embedder:    embedder,
		levels:      levels,
		store:       store,
		cache:       cache,
		opts:        opts,
		now:         time.Now,
	}
}

// QuickFilter exposes the pre-screen for batch callers that want to skip
// non-candidates without paying for a full pipeline run.
func (o *Orchestrator) QuickFilter() *QuickFilter {
	return o.quickFilter
}

// ComputeMatch scores one pair. Component scorer failures degrade to a zero
// contribution and are annotated on the component; only unusable input
// aborts the match.
func (o *Orchestrator) ComputeMatch(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (*models.MatchResult, error) {
	if opp == nil || opp.NoticeID == "" {
		return nil, fmt.Errorf("%w: missing opportunity id", ErrInvalidInput)
	}
	if profile == nil || profile.CompanyID == "" {
		return nil, fmt.Errorf("%w: missing company id", ErrInvalidInput)
	}

	start := o.now()
	defer func() {
		metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}()

	if decision := o.quickFilter.ShouldConsider(opp, profile); !decision.IsMatch {
		metrics.QuickFilterRejections.Inc()
		result := o.rejectedResult(opp, profile, decision)
		o.persist(ctx, profile.TenantID, result)
		metrics.MatchesComputed.WithLabelValues(string(result.ConfidenceLevel)).Inc()
		return result, nil
	}

	tenantID := profile.TenantID
	active := o.config.Resolve(tenantID)
	scorers := o.buildScorers(tenantID)

	outcomes := make([]scorerOutcome, len(scorers))

	// Fan out the scorers; each gets its own deadline so one slow component
	// cannot stall the pair.
	done := make(chan int, len(scorers))
	for i, sc := range scorers {
		go func(i int, sc ComponentScorer) {
			defer func() { done <- i }()
			outcomes[i] = o.runScorer(ctx, sc, opp, profile)
		}(i, sc)
	}
	for range scorers {
		<-done
	}

	components := make([]models.ScoreComponent, 0, len(scorers))
	total := 0.0
	failures := 0

	for i, sc := range scorers {
		outcome := outcomes[i]
		weight := active.Weights[sc.Name()]

		component := models.ScoreComponent{
			Name:     sc.Name(),
			RawScore: outcome.result.Score,
			Weight:   weight,
			Details:  outcome.result.Details,
		}

		if outcome.err != nil {
			failures++
			component.RawScore = 0
			component.Details = annotateFailure(component.Details, outcome.err)

			var serr *ScorerError
			kind := KindScorerFailure
			if errors.As(outcome.err, &serr) {
				kind = serr.Kind
			}
			metrics.ComponentFailures.WithLabelValues(sc.Name(), string(kind)).Inc()
			logger.Warn("Component scorer failed, substituting zero",
				zap.String("component", sc.Name()),
				zap.String("opportunity_id", opp.NoticeID),
				zap.String("company_id", profile.CompanyID),
				zap.Error(outcome.err),
			)
		}

		component.WeightedContribution = component.RawScore * weight
		total += component.WeightedContribution
		components = append(components, component)
	}

	total = clamp01(total)

	result := &models.MatchResult{
		OpportunityID:   opp.NoticeID,
		CompanyID:       profile.CompanyID,
		TotalScore:      total,
		ConfidenceLevel: o.config.ClassifyConfidence(total, tenantID),
		Components:      components,
		ComputedAt:      o.now().UTC(),
	}

	o.persist(ctx, tenantID, result)
	metrics.MatchesComputed.WithLabelValues(string(result.ConfidenceLevel)).Inc()

	logger.Debug("Match computed",
		zap.String("opportunity_id", opp.NoticeID),
		zap.String("company_id", profile.CompanyID),
		zap.Float64("total_score", total),
		zap.String("confidence", string(result.ConfidenceLevel)),
		zap.Int("component_failures", failures),
	)

	return result, nil
}

type scorerOutcome struct {
	result ComponentResult
	err    error
}

func (o *Orchestrator) runScorer(ctx context.Context, sc ComponentScorer, opp *models.Opportunity, profile *models.CompanyProfile) scorerOutcome {
	timeout := o.opts.ComponentTimeout
	if sc.Name() == matchcfg.ComponentSemanticSimilarity {
		timeout = o.opts.SemanticTimeout
	}

	scoreCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := sc.Score(scoreCtx, opp, profile)
	metrics.ComponentDuration.WithLabelValues(sc.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		var serr *ScorerError
		if !errors.As(err, &serr) {
			kind := KindScorerFailure
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(scoreCtx.Err(), context.DeadlineExceeded) {
				kind = KindScorerTimeout
			}
			err = newScorerError(kind, sc.Name(), err)
		}
		return scorerOutcome{err: err}
	}

	return scorerOutcome{result: result}
}

// buildScorers assembles the component set with the tenant's algorithm
// parameters. The semantic scorer appears only when an embedder is wired.
func (o *Orchestrator) buildScorers(tenantID string) []ComponentScorer {
	scorers := make([]ComponentScorer, 0, 8)

	if o.embedder != nil {
		scorers = append(scorers, NewSemanticSimilarityScorer(o.embedder, o.levels, o.opts.MaxInputChars, o.opts.ChunkOverlap))
	}

	scorers = append(scorers,
		NewKeywordMatchScorer(
			o.config.Param(tenantID, "keyword_tf_scale"),
			o.config.Param(tenantID, "keyword_phrase_bonus"),
			int(o.config.Param(tenantID, "keyword_min_token_len")),
		),
		NewNAICSAlignmentScorer(),
		NewPastPerformanceScorer(),
		NewCertificationBonusScorer(),
		NewGeographicMatchScorer(),
		NewCapacityFitScorer(),
		NewRecencyFactorScorer(),
	)

	return scorers
}

// rejectedResult records a quick-filter rejection as a zero-score match with
// the filter's reasoning attached, so batch pipelines keep an audit trail.
func (o *Orchestrator) rejectedResult(opp *models.Opportunity, profile *models.CompanyProfile, decision FilterDecision) *models.MatchResult {
	details := decision.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	details["filter_score"] = decision.FilterScore

	return &models.MatchResult{
		OpportunityID:   opp.NoticeID,
		CompanyID:       profile.CompanyID,
		TotalScore:      0,
		ConfidenceLevel: models.ConfidenceNone,
		Components: []models.ScoreComponent{
			{
				Name:    "quick_filter",
				Details: details,
			},
		},
		ComputedAt: o.now().UTC(),
	}
}

// persist is best-effort: storage failures are logged, never surfaced, so a
// flaky database cannot fail an otherwise good match.
func (o *Orchestrator) persist(ctx context.Context, tenantID string, result *models.MatchResult) {
	if o.store != nil {
		if err := o.store.SaveMatchResult(result); err != nil {
			logger.Error("Failed to persist match result",
				zap.String("opportunity_id", result.OpportunityID),
				zap.String("company_id", result.CompanyID),
				zap.Error(err),
			)
		}
	}

	if o.cache != nil {
		if err := o.cache.SetMatchResult(ctx, result, o.opts.ResultCacheTTL); err != nil {
			logger.Debug("Failed to cache match result",
				zap.String("opportunity_id", result.OpportunityID),
				zap.String("company_id", result.CompanyID),
				zap.Error(err),
			)
		}
	}
}

func annotateFailure(details map[string]interface{}, err error) map[string]interface{} {
	if details == nil {
		details = map[string]interface{}{}
	}

	var serr *ScorerError
	if errors.As(err, &serr) {
		details["error_kind"] = string(serr.Kind)
	} else {
		details["error_kind"] = string(KindScorerFailure)
	}
	details["error"] = err.Error()

	return details
}
