package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// SearchHit is one semantic-search result from the embedding index.
type SearchHit struct {
	EntityType  string
	EntityID    string
	Level       string
	ChunkIndex  int
	TextPreview string
	Score       float32
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Opportunity and company profile embeddings",
		Fields: []*entity.Field{
			{
				Name:       "record_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "192",
				},
			},
			{
				Name:     "entity_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "entity_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "level",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "text_preview",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "1024",
				},
			},
			{
				Name:     "token_count",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// IP over unit-normalized vectors gives cosine similarity directly.
	idx, err := entity.NewIndexIvfFlat(entity.IP, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

// Upsert replaces all embedding records for an entity. Records are superseded
// wholesale rather than mutated in place.
func (m *Client) Upsert(ctx context.Context, entityType, entityID string, records []models.EmbeddingRecord) error {
	if err := m.DeleteEntity(ctx, entityType, entityID); err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	recordIDs := make([]string, len(records))
	entityTypes := make([]string, len(records))
	entityIDs := make([]string, len(records))
	levels := make([]string, len(records))
	chunkIndexes := make([]int64, len(records))
	vectors := make([][]float32, len(records))
	previews := make([]string, len(records))
	tokenCounts := make([]int64, len(records))
	createdAts := make([]int64, len(records))

	for i, record := range records {
		recordIDs[i] = fmt.Sprintf("%s_%s_%s_%d", record.EntityType, record.EntityID, record.Level, record.ChunkIndex)
		entityTypes[i] = record.EntityType
		entityIDs[i] = record.EntityID
		levels[i] = record.Level
		chunkIndexes[i] = int64(record.ChunkIndex)
		vectors[i] = record.Embedding
		previews[i] = record.TextPreview
		tokenCounts[i] = int64(record.TokenCount)
		createdAts[i] = record.CreatedAt.Unix()
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("record_id", recordIDs),
		entity.NewColumnVarChar("entity_type", entityTypes),
		entity.NewColumnVarChar("entity_id", entityIDs),
		entity.NewColumnVarChar("level", levels),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnFloatVector("embedding", m.vectorDim, vectors),
		entity.NewColumnVarChar("text_preview", previews),
		entity.NewColumnInt64("token_count", tokenCounts),
		entity.NewColumnInt64("created_at", createdAts),
	)

	if err != nil {
		return fmt.Errorf("failed to insert embeddings: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Entity embeddings upserted",
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.Int("records", len(records)),
	)

	return nil
}

// quoteExpr renders a string as a Milvus boolean-expression literal,
// escaping backslashes and quotes so an id cannot break out of the filter.
func quoteExpr(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func (m *Client) DeleteEntity(ctx context.Context, entityType, entityID string) error {
	expr := fmt.Sprintf(`entity_type == %s && entity_id == %s`, quoteExpr(entityType), quoteExpr(entityID))
	err := m.client.Delete(ctx, m.collectionName, "", expr)
	if err != nil {
		return fmt.Errorf("failed to delete entity embeddings: %w", err)
	}
	return nil
}

// Search runs topK nearest-neighbour search over full-document embeddings of
// the given entity type.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, entityType, level string) ([]SearchHit, error) {
	expr := fmt.Sprintf(`entity_type == %s`, quoteExpr(entityType))
	if level != "" {
		expr += fmt.Sprintf(` && level == %s`, quoteExpr(level))
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"entity_type", "entity_id", "level", "chunk_index", "text_preview"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]SearchHit, 0)
	for _, sr := range searchResult {
		for i := 0; i < sr.ResultCount; i++ {
			entityTypeCol := sr.Fields.GetColumn("entity_type")
			entityIDCol := sr.Fields.GetColumn("entity_id")
			levelCol := sr.Fields.GetColumn("level")
			chunkCol := sr.Fields.GetColumn("chunk_index")
			previewCol := sr.Fields.GetColumn("text_preview")

			entityTypeVal, _ := entityTypeCol.Get(i)
			entityIDVal, _ := entityIDCol.Get(i)
			levelVal, _ := levelCol.Get(i)
			chunkVal, _ := chunkCol.Get(i)
			previewVal, _ := previewCol.Get(i)

			hits = append(hits, SearchHit{
				EntityType:  entityTypeVal.(string),
				EntityID:    entityIDVal.(string),
				Level:       levelVal.(string),
				ChunkIndex:  int(chunkVal.(int64)),
				TextPreview: previewVal.(string),
				Score:       sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("hits", len(hits)),
		zap.String("filter", expr),
	)

	return hits, nil
}

// EntityEmbeddings retrieves all stored embedding records for one entity,
// used by the semantic scorer to read precomputed multi-level vectors.
func (m *Client) EntityEmbeddings(ctx context.Context, entityType, entityID string) ([]models.EmbeddingRecord, error) {
	expr := fmt.Sprintf(`entity_type == %s && entity_id == %s`, quoteExpr(entityType), quoteExpr(entityID))

	resultSet, err := m.client.Query(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"entity_type", "entity_id", "level", "chunk_index", "embedding", "text_preview", "token_count", "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity embeddings: %w", err)
	}

	var (
		entityTypeCol = resultSet.GetColumn("entity_type")
		entityIDCol   = resultSet.GetColumn("entity_id")
		levelCol      = resultSet.GetColumn("level")
		chunkCol      = resultSet.GetColumn("chunk_index")
		previewCol    = resultSet.GetColumn("text_preview")
		tokenCol      = resultSet.GetColumn("token_count")
		createdCol    = resultSet.GetColumn("created_at")
	)

	vectorCol, ok := resultSet.GetColumn("embedding").(*entity.ColumnFloatVector)
	if !ok {
		return nil, fmt.Errorf("unexpected embedding column type")
	}
	vectors := vectorCol.Data()

	var records []models.EmbeddingRecord
	for i := 0; i < len(vectors); i++ {
		entityTypeVal, _ := entityTypeCol.Get(i)
		entityIDVal, _ := entityIDCol.Get(i)
		levelVal, _ := levelCol.Get(i)
		chunkVal, _ := chunkCol.Get(i)
		previewVal, _ := previewCol.Get(i)
		tokenVal, _ := tokenCol.Get(i)
		createdVal, _ := createdCol.Get(i)

		records = append(records, models.EmbeddingRecord{
			EntityType:  entityTypeVal.(string),
			EntityID:    entityIDVal.(string),
			Level:       levelVal.(string),
			ChunkIndex:  int(chunkVal.(int64)),
			Embedding:   vectors[i],
			TextPreview: previewVal.(string),
			TokenCount:  int(tokenVal.(int64)),
			CreatedAt:   time.Unix(createdVal.(int64), 0),
		})
	}

	return records, nil
}
