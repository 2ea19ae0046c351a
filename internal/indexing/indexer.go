// Package indexing turns opportunity and company records into multi-level
// embeddings in the vector store. Re-indexing an entity supersedes its
// previous vectors.
package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/embeddings"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

const previewChars = 200

// BatchEmbedder embeds a slice of texts in one round trip.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	MaxInputChars() int
	ChunkOverlap() int
}

// VectorWriter replaces an entity's vectors in the vector store.
type VectorWriter interface {
	Upsert(ctx context.Context, entityType, entityID string, records []models.EmbeddingRecord) error
	DeleteEntity(ctx context.Context, entityType, entityID string) error
}

// RecordStore mirrors the vector store's contents for audit and rebuild.
type RecordStore interface {
	InsertEmbeddingRecord(record *models.EmbeddingRecord) error
	DeleteEmbeddingRecords(entityType, entityID string) error
}

type Indexer struct {
	embedder BatchEmbedder
	vectors  VectorWriter
	records  RecordStore

	now func() time.Time
}

func NewIndexer(embedder BatchEmbedder, vectors VectorWriter, records RecordStore) *Indexer {
	return &Indexer{
		embedder: embedder,
		vectors:  vectors,
		records:  records,
		now:      time.Now,
	}
}

// levelText is one embeddable section of an entity.
type levelText struct {
	level      string
	chunkIndex int
	text       string
}

// IndexOpportunity embeds a solicitation: one full-document vector, plus
// chunk vectors when the description exceeds the model input limit.
func (ix *Indexer) IndexOpportunity(ctx context.Context, opp *models.Opportunity) (int, error) {
	if opp == nil || opp.NoticeID == "" {
		return 0, fmt.Errorf("missing opportunity id")
	}

	description := StripHTML(opp.Description)
	full := strings.TrimSpace(strings.Join([]string{opp.Title, description, "NAICS " + opp.NAICSCode, opp.Agency}, "\n"))
	if full == "" {
		return 0, fmt.Errorf("opportunity %s has no text to index", opp.NoticeID)
	}

	sections := []levelText{{level: models.LevelFullDocument, text: full}}
	if len(full) > ix.embedder.MaxInputChars() {
		for i, chunk := range embeddings.ChunkText(full, ix.embedder.MaxInputChars(), ix.embedder.ChunkOverlap()) {
			sections = append(sections, levelText{level: models.LevelChunk, chunkIndex: i, text: chunk})
		}
	}

	return ix.index(ctx, models.EntityTypeOpportunity, opp.NoticeID, sections)
}

// IndexCompanyProfile embeds a profile at every level that has text:
// full_profile always, then capability_statement, experience, and
// certifications when present.
func (ix *Indexer) IndexCompanyProfile(ctx context.Context, profile *models.CompanyProfile) (int, error) {
	if profile == nil || profile.CompanyID == "" {
		return 0, fmt.Errorf("missing company id")
	}

	capability := StripHTML(profile.CapabilityStatement)

	var experience []string
	for _, pp := range profile.PastPerformance {
		if desc := strings.TrimSpace(pp.Description); desc != "" {
			experience = append(experience, desc)
		}
	}

	var sections []levelText
	add := func(level, text string) {
		if strings.TrimSpace(text) != "" {
			sections = append(sections, levelText{level: level, text: strings.TrimSpace(text)})
		}
	}

	fullParts := []string{capability}
	if len(experience) > 0 {
		fullParts = append(fullParts, strings.Join(experience, "\n"))
	}
	if len(profile.Certifications) > 0 {
		fullParts = append(fullParts, "Certifications: "+strings.Join(profile.Certifications, ", "))
	}
	if len(profile.NAICSCodes) > 0 {
		fullParts = append(fullParts, "NAICS "+strings.Join(profile.NAICSCodes, " "))
	}

	add(models.LevelFullProfile, strings.Join(fullParts, "\n"))
	add(models.LevelCapabilityStatement, capability)
	add(models.LevelExperience, strings.Join(experience, "\n"))
	if len(profile.Certifications) > 0 {
		add(models.LevelCertifications, "Certifications: "+strings.Join(profile.Certifications, ", "))
	}

	if len(sections) == 0 {
		return 0, fmt.Errorf("profile %s has no text to index", profile.CompanyID)
	}

	return ix.index(ctx, models.EntityTypeCompany, profile.CompanyID, sections)
}

// RemoveEntity drops an entity's vectors from both stores.
func (ix *Indexer) RemoveEntity(ctx context.Context, entityType, entityID string) error {
	if err := ix.vectors.DeleteEntity(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("deleting vectors for %s/%s: %w", entityType, entityID, err)
	}
	if ix.records != nil {
		if err := ix.records.DeleteEmbeddingRecords(entityType, entityID); err != nil {
			return fmt.Errorf("deleting embedding records for %s/%s: %w", entityType, entityID, err)
		}
	}
	return nil
}

func (ix *Indexer) index(ctx context.Context, entityType, entityID string, sections []levelText) (int, error) {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %s/%s: %w", entityType, entityID, err)
	}
	if len(vectors) != len(sections) {
		return 0, fmt.Errorf("embedding %s/%s: got %d vectors for %d sections", entityType, entityID, len(vectors), len(sections))
	}

	now := ix.now().UTC()
	records := make([]models.EmbeddingRecord, len(sections))
	for i, s := range sections {
		records[i] = models.EmbeddingRecord{
			EntityType:  entityType,
			EntityID:    entityID,
			Level:       s.level,
			ChunkIndex:  s.chunkIndex,
			Embedding:   vectors[i],
			TextPreview: preview(s.text),
			TokenCount:  embeddings.EstimateTokens(s.text),
			CreatedAt:   now,
		}
	}

	// Upsert replaces the entity's previous vectors wholesale, so stale
	// levels from an earlier, richer version of the entity cannot linger.
	if err := ix.vectors.Upsert(ctx, entityType, entityID, records); err != nil {
		return 0, fmt.Errorf("storing vectors for %s/%s: %w", entityType, entityID, err)
	}

	if ix.records != nil {
		if err := ix.records.DeleteEmbeddingRecords(entityType, entityID); err != nil {
			logger.Warn("Failed to clear superseded embedding records",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.Error(err),
			)
		}
		for i := range records {
			if err := ix.records.InsertEmbeddingRecord(&records[i]); err != nil {
				logger.Warn("Failed to mirror embedding record",
					zap.String("entity_type", entityType),
					zap.String("entity_id", entityID),
					zap.String("level", records[i].Level),
					zap.Error(err),
				)
			}
		}
	}

	logger.Info("Entity indexed",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Int("sections", len(records)),
	)

	return len(records), nil
}

func preview(text string) string {
	if len(text) <= previewChars {
		return text
	}
	return text[:previewChars]
}

// StripHTML flattens markup to plain text. SAM.gov descriptions frequently
// arrive as HTML fragments.
func StripHTML(input string) string {
	if !strings.ContainsAny(input, "<>") {
		return input
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input))
	if err != nil {
		return input
	}
	doc.Find("script, style").Remove()

	text := doc.Text()
	return strings.Join(strings.Fields(text), " ")
}
