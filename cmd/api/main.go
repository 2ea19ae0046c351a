package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/api/handlers"
	"github.com/tjaddison/govbizai-matching/internal/batch"
	"github.com/tjaddison/govbizai-matching/internal/cache/redis"
	"github.com/tjaddison/govbizai-matching/internal/embeddings"
	"github.com/tjaddison/govbizai-matching/internal/evaluation"
	"github.com/tjaddison/govbizai-matching/internal/indexing"
	"github.com/tjaddison/govbizai-matching/internal/matching"
	matchcfg "github.com/tjaddison/govbizai-matching/internal/matching/config"
	"github.com/tjaddison/govbizai-matching/internal/metrics"
	"github.com/tjaddison/govbizai-matching/internal/middleware/ratelimit"
	"github.com/tjaddison/govbizai-matching/internal/middleware/security"
	"github.com/tjaddison/govbizai-matching/internal/middleware/validation"
	"github.com/tjaddison/govbizai-matching/internal/search"
	"github.com/tjaddison/govbizai-matching/internal/storage/sqlite"
	"github.com/tjaddison/govbizai-matching/internal/vector/milvus"
	"github.com/tjaddison/govbizai-matching/pkg/config"
	appLogger "github.com/tjaddison/govbizai-matching/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting GovBizAI Matching API Server")

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Warn("Redis unavailable, continuing without caches", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	milvusClient, err := milvus.NewClient(
		cfg.Milvus.Endpoint,
		cfg.Milvus.APIKey,
		cfg.Milvus.CollectionName,
		cfg.Milvus.VectorDim,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	if err := milvusClient.CreateCollection(context.Background()); err != nil {
		appLogger.Fatal("Failed to create collection", zap.Error(err))
	}

	var embeddingCache embeddings.Cache
	if redisClient != nil {
		embeddingCache = redisClient
	}
	embeddingClient := embeddings.NewClient(
		cfg.Embeddings.APIKey,
		cfg.Embeddings.Model,
		cfg.Embeddings.Dimensions,
		cfg.Embeddings.MaxInputChars,
		cfg.Embeddings.ChunkOverlap,
		embeddingCache,
		time.Duration(cfg.Embeddings.CacheTTLSec)*time.Second,
	)

	configProvider := matchcfg.NewProvider(sqliteClient, time.Duration(cfg.Matching.ConfigCacheTTLSec)*time.Second)

	var resultCache matching.ResultCache
	if redisClient != nil {
		resultCache = redisClient
	}
	orchestrator := matching.NewOrchestrator(
		configProvider,
		embeddingClient,
		milvusClient,
		sqliteClient,
		resultCache,
		matching.OrchestratorOptions{
			SemanticTimeout:  time.Duration(cfg.Matching.SemanticTimeoutSec) * time.Second,
			ComponentTimeout: time.Duration(cfg.Matching.ComponentTimeoutSec) * time.Second,
			ResultCacheTTL:   time.Duration(cfg.Matching.ResultCacheTTLSec) * time.Second,
			MaxInputChars:    cfg.Embeddings.MaxInputChars,
			ChunkOverlap:     cfg.Embeddings.ChunkOverlap,
		},
	)

	indexer := indexing.NewIndexer(embeddingClient, milvusClient, sqliteClient)
	searchService := search.NewService(embeddingClient, milvusClient, sqliteClient)
	coordinator := batch.NewCoordinator(orchestrator, cfg.Matching.BatchConcurrency)
	evaluator := evaluation.NewEvaluator(orchestrator)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Tenant-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		MaxBodySize: cfg.Server.BodyLimit,
	}))

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	matchHandler := handlers.NewMatchHandler(orchestrator, sqliteClient)
	searchHandler := handlers.NewSearchHandler(searchService)
	entityHandler := handlers.NewEntityHandler(sqliteClient, indexer, redisClient)
	configHandler := handlers.NewConfigHandler(configProvider, sqliteClient)
	evaluationHandler := handlers.NewEvaluationHandler(evaluator)
	wsHandler := handlers.NewWebSocketHandler(coordinator, sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/match", matchHandler.ComputeMatch)
	api.Get("/matches/:companyID", matchHandler.ListMatches)
	api.Get("/matches/:companyID/:opportunityID", matchHandler.GetMatch)

	api.Get("/search", searchHandler.Search)

	api.Post("/opportunities", entityHandler.UpsertOpportunity)
	api.Get("/opportunities/:noticeID", entityHandler.GetOpportunity)
	api.Post("/profiles", entityHandler.UpsertCompanyProfile)
	api.Get("/profiles/:companyID", entityHandler.GetCompanyProfile)

	api.Get("/config", configHandler.GetConfiguration)
	api.Put("/config", configHandler.UpsertConfiguration)
	api.Post("/config/invalidate", configHandler.InvalidateCache)

	api.Post("/evaluate", evaluationHandler.RunEvaluation)

	app.Get("/ws/batch", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.Handler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
