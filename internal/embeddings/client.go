package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/metrics"
	"github.com/tjaddison/govbizai-matching/pkg/circuitbreaker"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
	"github.com/tjaddison/govbizai-matching/pkg/retry"
	"github.com/tjaddison/govbizai-matching/pkg/utils"
)

// Cache is the optional vector cache consulted before calling the API.
type Cache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type Client struct {
	client        *openai.Client
	model         string
	dimensions    int
	maxInputChars int
	chunkOverlap  int
	cache         Cache
	cacheTTL      time.Duration
	cb            *circuitbreaker.CircuitBreaker
	retryConfig   retry.Config
}

func NewClient(apiKey, model string, dimensions, maxInputChars, chunkOverlap int, cache Cache, cacheTTL time.Duration) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.New("embeddings", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Embeddings client initialized",
		zap.String("model", model),
		zap.Int("dimensions", dimensions),
	)

	return &Client{
		client:        client,
		model:         model,
		dimensions:    dimensions,
		maxInputChars: maxInputChars,
		chunkOverlap:  chunkOverlap,
		cache:         cache,
		cacheTTL:      cacheTTL,
		cb:            cb,
		retryConfig:   retryConfig,
	}
}

func (c *Client) Dimensions() int {
	return c.dimensions
}

func (c *Client) MaxInputChars() int {
	return c.maxInputChars
}

func (c *Client) ChunkOverlap() int {
	return c.chunkOverlap
}

// Embed returns the embedding vector for a single text, consulting the cache
// first so repeated scoring of the same capability statement stays cheap.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	textHash := utils.HashText(text)

	if c.cache != nil {
		cached, hit, err := c.cache.GetEmbedding(ctx, textHash)
		if err != nil {
			logger.Warn("Embedding cache lookup failed", zap.Error(err))
		} else if hit {
			metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input:      []string{text},
					Model:      openai.EmbeddingModel(c.model),
					Dimensions: c.dimensions,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, textHash, embedding, c.cacheTTL); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input:      batch,
						Model:      openai.EmbeddingModel(c.model),
						Dimensions: c.dimensions,
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// ChunkText splits text into word-boundary chunks no longer than maxChars,
// with the trailing overlapChars of each chunk repeated at the start of the
// next so passages spanning a boundary are not lost.
func ChunkText(text string, maxChars, overlapChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 4
	}

	words := strings.Fields(text)

	var chunks []string
	var current strings.Builder

	for _, word := range words {
		if current.Len() > 0 && current.Len()+len(word)+1 > maxChars {
			chunk := current.String()
			chunks = append(chunks, chunk)

			current.Reset()
			if overlapChars > 0 && len(chunk) > overlapChars {
				tail := chunk[len(chunk)-overlapChars:]
				if idx := strings.IndexByte(tail, ' '); idx >= 0 {
					tail = tail[idx+1:]
				}
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// EstimateTokens approximates the token count of a text. The embedding model
// averages about four characters per token for English prose.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
