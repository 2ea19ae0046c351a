package matching

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

type stubEmbedder struct {
	vectors map[string][]float32
	fixed   []float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fixed, nil
}

type stubLevelSource struct {
	records map[string][]models.EmbeddingRecord
	err     error
}

func (s *stubLevelSource) EntityEmbeddings(ctx context.Context, entityType, entityID string) ([]models.EmbeddingRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[entityType+"/"+entityID], nil
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clamps to zero", []float32{1, 0}, []float32{-1, 0}, 0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1.0},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSemanticScorerOnDemandEmbedding(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	s := NewSemanticSimilarityScorer(embedder, nil, 0, 0)

	opp := &models.Opportunity{NoticeID: "OPP-1", Title: "Cloud migration", Description: "Migrate workloads"}
	profile := &models.CompanyProfile{CompanyID: "CMP-1", CapabilityStatement: "Cloud migration specialists"}

	result, err := s.Score(context.Background(), opp, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1.0", result.Score)
	}
}

func TestSemanticScorerMultiLevelWeighting(t *testing.T) {
	oppVec := []float32{1, 0}
	embedder := &stubEmbedder{fixed: oppVec}

	// capability_statement aligns perfectly, experience is orthogonal.
	levels := &stubLevelSource{records: map[string][]models.EmbeddingRecord{
		"company/CMP-1": {
			{Level: models.LevelCapabilityStatement, Embedding: []float32{1, 0}},
			{Level: models.LevelExperience, Embedding: []float32{0, 1}},
		},
	}}

	s := NewSemanticSimilarityScorer(embedder, levels, 0, 0)

	opp := &models.Opportunity{NoticeID: "OPP-1", Title: "Cloud migration", Description: "Migrate workloads"}
	profile := &models.CompanyProfile{CompanyID: "CMP-1", CapabilityStatement: "irrelevant, levels take precedence"}

	result, err := s.Score(context.Background(), opp, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (0.30*1.0 + 0.15*0) / (0.30 + 0.15)
	want := 0.30 / 0.45
	if math.Abs(result.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v (details: %v)", result.Score, want, result.Details)
	}
}

func TestSemanticScorerChunkAggregationByMax(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}

	levels := &stubLevelSource{records: map[string][]models.EmbeddingRecord{
		"company/CMP-1": {
			{Level: models.LevelFullProfile, Embedding: []float32{0, 1}},
			{Level: models.LevelFullProfile, Embedding: []float32{1, 0}},
		},
	}}

	s := NewSemanticSimilarityScorer(embedder, levels, 0, 0)

	opp := &models.Opportunity{NoticeID: "OPP-1", Title: "Cloud migration"}
	profile := &models.CompanyProfile{CompanyID: "CMP-1", CapabilityStatement: "x"}

	result, err := s.Score(context.Background(), opp, profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.Score-1.0) > 1e-9 {
		t.Errorf("best chunk should win: score = %v, want 1.0", result.Score)
	}
}

func TestSemanticScorerEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("api down")}
	s := NewSemanticSimilarityScorer(embedder, nil, 0, 0)

	opp := &models.Opportunity{NoticeID: "OPP-1", Title: "Cloud migration"}
	profile := &models.CompanyProfile{CompanyID: "CMP-1", CapabilityStatement: "Cloud"}

	_, err := s.Score(context.Background(), opp, profile)
	if err == nil {
		t.Fatal("expected error")
	}

	var serr *ScorerError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ScorerError, got %T", err)
	}
	if serr.Kind != KindEmbeddingUnavailable {
		t.Errorf("kind = %v, want %v", serr.Kind, KindEmbeddingUnavailable)
	}
}

func TestSemanticScorerEmptyTexts(t *testing.T) {
	embedder := &stubEmbedder{fixed: []float32{1, 0}}
	s := NewSemanticSimilarityScorer(embedder, nil, 0, 0)

	result, err := s.Score(context.Background(), &models.Opportunity{NoticeID: "OPP-1"}, &models.CompanyProfile{CompanyID: "CMP-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("score = %v, want 0", result.Score)
	}
}
