// Package search finds opportunities by semantic similarity, keyword
// overlap, or a hybrid of the two channels.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/matching"
	"github.com/tjaddison/govbizai-matching/internal/metrics"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/internal/vector/milvus"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"

	defaultTopK = 20
	maxTopK     = 100
)

// VectorSearcher runs a nearest-neighbor query over indexed embeddings.
type VectorSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, entityType, level string) ([]milvus.SearchHit, error)
}

// OpportunityStore serves keyword retrieval and result hydration.
type OpportunityStore interface {
	SearchOpportunities(tokens []string, limit int) ([]models.Opportunity, error)
	GetOpportunity(noticeID string) (*models.Opportunity, error)
}

// Result pairs a ranking entry with the opportunity record behind it.
type Result struct {
	RankedResult
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
}

type Service struct {
	embedder matching.Embedder
	vectors  VectorSearcher
	store    OpportunityStore
	combiner *Combiner
}

func NewService(embedder matching.Embedder, vectors VectorSearcher, store OpportunityStore) *Service {
	return &Service{
		embedder: embedder,
		vectors:  vectors,
		store:    store,
		combiner: NewCombiner(),
	}
}

// Search runs a query in the given mode. An empty mode means hybrid; hybrid
// degrades to keyword-only when the embedding channel is unavailable rather
// than failing the request.
func (s *Service) Search(ctx context.Context, query, mode string, topK int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	if mode == "" {
		mode = ModeHybrid
	}
	metrics.SearchRequests.WithLabelValues(mode).Inc()

	switch mode {
	case ModeSemantic:
		candidates, err := s.semanticCandidates(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		return s.hydrate(s.combiner.Combine(candidates, nil), topK), nil

	case ModeKeyword:
		candidates, err := s.keywordCandidates(query, topK)
		if err != nil {
			return nil, err
		}
		return s.hydrate(s.combiner.Combine(nil, candidates), topK), nil

	case ModeHybrid:
		// Over-fetch each channel so the merged ranking has enough overlap
		// for the dual-presence boost to matter.
		fetch := topK * 2

		semantic, semErr := s.semanticCandidates(ctx, query, fetch)
		if semErr != nil {
			logger.Warn("Semantic channel unavailable, degrading to keyword-only",
				zap.Error(semErr),
			)
			semantic = nil
		}

		keyword, kwErr := s.keywordCandidates(query, fetch)
		if kwErr != nil {
			if semErr != nil {
				return nil, fmt.Errorf("both search channels failed: %w", kwErr)
			}
			logger.Warn("Keyword channel failed, returning semantic-only results",
				zap.Error(kwErr),
			)
			keyword = nil
		}

		return s.hydrate(s.combiner.Combine(semantic, keyword), topK), nil

	default:
		return nil, fmt.Errorf("unknown search mode %q", mode)
	}
}

func (s *Service) semanticCandidates(ctx context.Context, query string, topK int) ([]Candidate, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, fmt.Errorf("semantic search not configured")
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.vectors.Search(ctx, vec, topK, models.EntityTypeOpportunity, "")
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Chunk hits for the same notice collapse to the best one.
	best := make(map[string]float64, len(hits))
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if prev, ok := best[hit.EntityID]; !ok {
			best[hit.EntityID] = score
			order = append(order, hit.EntityID)
		} else if score > prev {
			best[hit.EntityID] = score
		}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, id := range order {
		candidates = append(candidates, Candidate{ID: id, Score: best[id]})
	}
	return candidates, nil
}

func (s *Service) keywordCandidates(query string, topK int) ([]Candidate, error) {
	tokens := matching.Tokenize(query, 3)
	if len(tokens) == 0 {
		return nil, nil
	}

	opportunities, err := s.store.SearchOpportunities(tokens, topK*4)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	querySet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		querySet[t] = struct{}{}
	}

	candidates := make([]Candidate, 0, len(opportunities))
	for i := range opportunities {
		opp := &opportunities[i]
		candidates = append(candidates, Candidate{
			ID:    opp.NoticeID,
			Score: keywordScore(querySet, opp),
		})
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// keywordScore is the fraction of query tokens present in the opportunity
// text, weighted toward title hits.
func keywordScore(querySet map[string]struct{}, opp *models.Opportunity) float64 {
	if len(querySet) == 0 {
		return 0
	}

	titleTokens := matching.Tokenize(opp.Title, 3)
	descTokens := matching.Tokenize(opp.Description, 3)

	inTitle := make(map[string]struct{}, len(titleTokens))
	for _, t := range titleTokens {
		inTitle[t] = struct{}{}
	}
	inDesc := make(map[string]struct{}, len(descTokens))
	for _, t := range descTokens {
		inDesc[t] = struct{}{}
	}

	score := 0.0
	for t := range querySet {
		if _, ok := inTitle[t]; ok {
			score += 1.0
		} else if _, ok := inDesc[t]; ok {
			score += 0.7
		}
	}

	return score / float64(len(querySet))
}

func (s *Service) hydrate(ranked []RankedResult, topK int) []Result {
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]Result, 0, len(ranked))
	for _, entry := range ranked {
		result := Result{RankedResult: entry}
		if s.store != nil {
			opp, err := s.store.GetOpportunity(entry.ID)
			if err == nil {
				result.Opportunity = opp
			}
		}
		results = append(results, result)
	}
	return results
}
