// Package config resolves matching weight configurations with per-tenant
// override and TTL caching. Lookup failures always fall back to the built-in
// defaults so configuration retrieval never blocks a match.
package config

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

// Component names shared by the weight map and the scorers.
const (
	ComponentSemanticSimilarity = "semantic_similarity"
	ComponentKeywordMatching    = "keyword_matching"
	ComponentNAICSAlignment     = "naics_alignment"
	ComponentPastPerformance    = "past_performance"
	ComponentCertificationBonus = "certification_bonus"
	ComponentGeographicMatch    = "geographic_match"
	ComponentCapacityFit        = "capacity_fit"
	ComponentRecencyFactor      = "recency_factor"
)

const (
	DefaultTTL  = 5 * time.Minute
	globalScope = "global"
)

// Store reads weight configurations from the persistent configuration store.
// The provider never writes through it.
type Store interface {
	GetWeightConfiguration(scope string) (*models.WeightConfiguration, error)
}

type cacheEntry struct {
	config    *models.WeightConfiguration
	fetchedAt time.Time
}

type Provider struct {
	store Store
	ttl   time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	now func() time.Time
}

func NewProvider(store Store, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		store: store,
		ttl:   ttl,
		cache: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Defaults returns the hard-coded fallback configuration.
func Defaults() *models.WeightConfiguration {
	return &models.WeightConfiguration{
		Scope:   globalScope,
		Version: 0,
		Weights: map[string]float64{
			ComponentSemanticSimilarity: 0.25,
			ComponentKeywordMatching:    0.15,
			ComponentNAICSAlignment:     0.15,
			ComponentPastPerformance:    0.20,
			ComponentCertificationBonus: 0.10,
			ComponentGeographicMatch:    0.05,
			ComponentCapacityFit:        0.05,
			ComponentRecencyFactor:      0.05,
		},
		ConfidenceLevels: models.ConfidenceThresholds{
			High:   0.75,
			Medium: 0.50,
			Low:    0.25,
		},
		AlgorithmParams: map[string]float64{
			"keyword_tf_scale":      10.0,
			"keyword_phrase_bonus":  0.5,
			"keyword_min_token_len": 3.0,
		},
	}
}

// Resolve returns the active configuration for a tenant: tenant-specific
// config, then global, then the hard-coded defaults. Store failures are
// logged and absorbed.
func (p *Provider) Resolve(tenantID string) *models.WeightConfiguration {
	if tenantID != "" {
		if cfg := p.lookup("tenant_" + tenantID); cfg != nil {
			return cfg
		}
	}
	if cfg := p.lookup(globalScope); cfg != nil {
		return cfg
	}
	return Defaults()
}

func (p *Provider) lookup(scope string) *models.WeightConfiguration {
	key := cacheKey(scope)

	p.mu.RLock()
	entry, ok := p.cache[key]
	p.mu.RUnlock()

	if ok && p.now().Sub(entry.fetchedAt) < p.ttl {
		return entry.config
	}

	cfg, err := p.store.GetWeightConfiguration(scope)
	if err != nil {
		logger.Debug("Weight configuration lookup failed, using fallback",
			zap.String("scope", scope),
			zap.Error(err),
		)
		cfg = nil
	} else if !validate(cfg) {
		logger.Warn("Weight configuration malformed, using fallback", zap.String("scope", scope))
		cfg = nil
	}

	// Misses are cached too (a nil entry), so a defaults-only deployment
	// does not hit the store on every match. Concurrent misses may both
	// fetch and overwrite the same slot; the redundant fetch is harmless.
	p.mu.Lock()
	p.cache[key] = cacheEntry{config: cfg, fetchedAt: p.now()}
	p.mu.Unlock()

	return cfg
}

func (p *Provider) GetWeights(tenantID string) map[string]float64 {
	return p.Resolve(tenantID).Weights
}

func (p *Provider) GetConfidenceLevels(tenantID string) models.ConfidenceThresholds {
	return p.Resolve(tenantID).ConfidenceLevels
}

func (p *Provider) GetAlgorithmParams(tenantID string) map[string]float64 {
	params := p.Resolve(tenantID).AlgorithmParams
	if params == nil {
		return Defaults().AlgorithmParams
	}
	return params
}

// Param reads a single algorithm parameter, falling back to the built-in
// default when the active configuration omits it.
func (p *Provider) Param(tenantID, name string) float64 {
	if v, ok := p.GetAlgorithmParams(tenantID)[name]; ok {
		return v
	}
	return Defaults().AlgorithmParams[name]
}

// thresholdTolerance absorbs float accumulation error in the weighted sum:
// a score assembled from per-component contributions can land a few ulps
// under a threshold it mathematically meets.
const thresholdTolerance = 1e-9

// ClassifyConfidence maps a total score onto HIGH/MEDIUM/LOW/NONE using the
// tenant's thresholds. Monotonic in the score by construction.
func (p *Provider) ClassifyConfidence(score float64, tenantID string) models.ConfidenceLevel {
	thresholds := p.GetConfidenceLevels(tenantID)
	switch {
	case score >= thresholds.High-thresholdTolerance:
		return models.ConfidenceHigh
	case score >= thresholds.Medium-thresholdTolerance:
		return models.ConfidenceMedium
	case score >= thresholds.Low-thresholdTolerance:
		return models.ConfidenceLow
	default:
		return models.ConfidenceNone
	}
}

// Invalidate drops a single tenant's cache entry, or the global entry when
// tenantID is empty.
func (p *Provider) Invalidate(tenantID string) {
	scope := globalScope
	if tenantID != "" {
		scope = "tenant_" + tenantID
	}

	p.mu.Lock()
	delete(p.cache, cacheKey(scope))
	p.mu.Unlock()

	logger.Info("Weight configuration cache invalidated", zap.String("scope", scope))
}

// InvalidateAll clears the whole cache.
func (p *Provider) InvalidateAll() {
	p.mu.Lock()
	p.cache = make(map[string]cacheEntry)
	p.mu.Unlock()

	logger.Info("Weight configuration cache cleared")
}

func cacheKey(scope string) string {
	return fmt.Sprintf("config_%s", scope)
}

func validate(cfg *models.WeightConfiguration) bool {
	if cfg == nil || len(cfg.Weights) == 0 {
		return false
	}
	t := cfg.ConfidenceLevels
	if !(t.High > t.Medium && t.Medium > t.Low && t.Low > 0) {
		return false
	}
	for _, w := range cfg.Weights {
		if w < 0 || w > 1 {
			return false
		}
	}
	return true
}
