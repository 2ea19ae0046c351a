package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/embeddings"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// Embedder produces a fixed-dimension vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LevelSource reads precomputed multi-level embeddings for an entity.
type LevelSource interface {
	EntityEmbeddings(ctx context.Context, entityType, entityID string) ([]models.EmbeddingRecord, error)
}

// Company embedding levels are combined by a weighted average over whatever
// levels are present, renormalized; chunk similarities within a level
// aggregate by maximum (the best matching passage).
var levelWeights = map[string]float64{
	models.LevelFullProfile:         0.40,
	models.LevelFullDocument:        0.40,
	models.LevelCapabilityStatement: 0.30,
	models.LevelExperience:          0.15,
	models.LevelCertifications:      0.10,
	models.LevelTeam:                0.05,
}

type SemanticSimilarityScorer struct {
	embedder      Embedder
	levels        LevelSource
	maxInputChars int
	chunkOverlap  int
}

// NewSemanticSimilarityScorer builds the embedding-based scorer. levels may
// be nil; the scorer then embeds both texts on demand.
func NewSemanticSimilarityScorer(embedder Embedder, levels LevelSource, maxInputChars, chunkOverlap int) *SemanticSimilarityScorer {
	if maxInputChars <= 0 {
		maxInputChars = 24000
	}
	return &SemanticSimilarityScorer{
		embedder:      embedder,
		levels:        levels,
		maxInputChars: maxInputChars,
		chunkOverlap:  chunkOverlap,
	}
}

func (s *SemanticSimilarityScorer) Name() string {
	return matchcfg.ComponentSemanticSimilarity
}

func (s *SemanticSimilarityScorer) Score(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (ComponentResult, error) {
	oppVectors, err := s.opportunityVectors(ctx, opp)
	if err != nil {
		return ComponentResult{}, newScorerError(KindEmbeddingUnavailable, s.Name(), err)
	}
	if len(oppVectors) == 0 {
		return ComponentResult{
			Score:   0,
			Details: map[string]interface{}{"reason": "no opportunity text to embed"},
		}, nil
	}

	companyLevels, err := s.companyVectors(ctx, profile)
	if err != nil {
		return ComponentResult{}, newScorerError(KindEmbeddingUnavailable, s.Name(), err)
	}
	if len(companyLevels) == 0 {
		return ComponentResult{
			Score:   0,
			Details: map[string]interface{}{"reason": "no company text to embed"},
		}, nil
	}

	levelSimilarities := make(map[string]float64, len(companyLevels))
	weightSum := 0.0
	weightedSum := 0.0

	for level, vectors := range companyLevels {
		best := 0.0
		for _, cv := range vectors {
			for _, ov := range oppVectors {
				if sim := CosineSimilarity(ov, cv); sim > best {
					best = sim
				}
			}
		}
		levelSimilarities[level] = best

		w, ok := levelWeights[level]
		if !ok {
			w = 0.05
		}
		weightSum += w
		weightedSum += w * best
	}

	overall := 0.0
	if weightSum > 0 {
		overall = weightedSum / weightSum
	}

	return ComponentResult{
		Score: clamp01(overall),
		Details: map[string]interface{}{
			"level_similarities":          levelSimilarities,
			"weighted_average_similarity": overall,
			"opportunity_chunks":          len(oppVectors),
		},
	}, nil
}

func (s *SemanticSimilarityScorer) opportunityVectors(ctx context.Context, opp *models.Opportunity) ([][]float32, error) {
	if s.levels != nil && opp.NoticeID != "" {
		records, err := s.levels.EntityEmbeddings(ctx, models.EntityTypeOpportunity, opp.NoticeID)
		if err == nil && len(records) > 0 {
			vectors := make([][]float32, 0, len(records))
			for _, r := range records {
				vectors = append(vectors, r.Embedding)
			}
			return vectors, nil
		}
	}

	text := OpportunityText(opp)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return s.embedChunked(ctx, text)
}

func (s *SemanticSimilarityScorer) companyVectors(ctx context.Context, profile *models.CompanyProfile) (map[string][][]float32, error) {
	if s.levels != nil && profile.CompanyID != "" {
		records, err := s.levels.EntityEmbeddings(ctx, models.EntityTypeCompany, profile.CompanyID)
		if err == nil && len(records) > 0 {
			byLevel := make(map[string][][]float32)
			for _, r := range records {
				level := r.Level
				if level == models.LevelChunk {
					level = models.LevelFullProfile
				}
				byLevel[level] = append(byLevel[level], r.Embedding)
			}
			return byLevel, nil
		}
	}

	text := CompanyText(profile)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	vectors, err := s.embedChunked(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string][][]float32{models.LevelFullProfile: vectors}, nil
}

// embedChunked embeds a text, splitting with overlap first when it exceeds
// the model input limit.
func (s *SemanticSimilarityScorer) embedChunked(ctx context.Context, text string) ([][]float32, error) {
	chunks := embeddings.ChunkText(text, s.maxInputChars, s.chunkOverlap)

	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embedding failed: %w", err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// OpportunityText assembles the embedded representation of a solicitation.
func OpportunityText(opp *models.Opportunity) string {
	parts := []string{opp.Title, opp.Description}
	if opp.NAICSCode != "" {
		parts = append(parts, "NAICS "+opp.NAICSCode)
	}
	if opp.Agency != "" {
		parts = append(parts, opp.Agency)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// CompanyText assembles the embedded representation of a company profile.
func CompanyText(profile *models.CompanyProfile) string {
	parts := []string{profile.CapabilityStatement}
	if len(profile.Certifications) > 0 {
		parts = append(parts, "Certifications: "+strings.Join(profile.Certifications, ", "))
	}
	if len(profile.NAICSCodes) > 0 {
		parts = append(parts, "NAICS "+strings.Join(profile.NAICSCodes, " "))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// CosineSimilarity is dot(a,b)/(|a||b|) clamped to [0,1]; negative
// similarity carries no meaning for relevance in this domain.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
