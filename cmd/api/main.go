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
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/api/handlers"
	"github.com/talentmatch/backend/internal/cache/redis"
	"github.com/talentmatch/backend/internal/chunker"
	"github.com/talentmatch/backend/internal/evaluator"
	"github.com/talentmatch/backend/internal/index/memory"
	"github.com/talentmatch/backend/internal/index/milvus"
	"github.com/talentmatch/backend/internal/ingestion"
	"github.com/talentmatch/backend/internal/llm"
	"github.com/talentmatch/backend/internal/loader"
	"github.com/talentmatch/backend/internal/matching"
	"github.com/talentmatch/backend/internal/metrics"
	"github.com/talentmatch/backend/internal/middleware/ratelimit"
	"github.com/talentmatch/backend/internal/middleware/security"
	"github.com/talentmatch/backend/internal/middleware/validation"
	"github.com/talentmatch/backend/internal/sanitizer"
	"github.com/talentmatch/backend/internal/search"
	"github.com/talentmatch/backend/internal/storage/convex"
	"github.com/talentmatch/backend/internal/storage/sqlite"
	"github.com/talentmatch/backend/pkg/config"
	appLogger "github.com/talentmatch/backend/pkg/logger"
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

	appLogger.Info("Starting TalentMatch API Server")

	metrics.Init()

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		appLogger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.EmbeddingTTLSec)*time.Second,
			time.Duration(cfg.Redis.MatchTTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	llmOpts := []llm.Option{}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL))
	}
	if redisClient != nil {
		llmOpts = append(llmOpts, llm.WithEmbeddingCache(redisClient))
	}
	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		llmOpts...,
	)

	var store search.VectorStore
	switch cfg.Vector.Provider {
	case "memory":
		store = memory.NewStore(cfg.Vector.DataDir)
	default:
		milvusStore, err := milvus.NewStore(
			cfg.Milvus.Endpoint,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus store", zap.Error(err))
		}
		defer milvusStore.Close()
		store = milvusStore
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.Search.ChunkSize),
		chunker.WithOverlap(cfg.Search.ChunkOverlap),
	)

	matcher := search.NewMatcher(store, llmClient, splitter, cfg.Search.VectorWeight)

	if loaded, err := matcher.Load(context.Background()); err != nil {
		appLogger.Warn("Failed to load existing index", zap.Error(err))
	} else if loaded {
		appLogger.Info("Existing index loaded")
	}

	san := sanitizer.New(sanitizer.Config{
		Language:  cfg.Sanitizer.Language,
		EnableNER: cfg.Sanitizer.EnableNER,
	})

	judge := evaluator.New(llmClient, time.Duration(cfg.LLM.JudgeTimeoutSec)*time.Second)

	matchOpts := []matching.Option{
		matching.WithAuditStore(sqliteClient),
	}
	if redisClient != nil {
		matchOpts = append(matchOpts, matching.WithCache(redisClient))
	}
	if cfg.Convex.Enabled && cfg.Convex.DeploymentURL != "" {
		matchOpts = append(matchOpts, matching.WithResultSink(convex.NewClient(cfg.Convex.DeploymentURL)))
	}
	matchService := matching.NewService(matcher, san, judge, cfg.Sanitizer.Language, matchOpts...)

	processorOpts := []ingestion.Option{
		ingestion.WithResumeStore(sqliteClient),
		ingestion.WithCacheInvalidator(matchService),
	}
	processor := ingestion.NewProcessor(loader.New(), san, matcher, cfg.Sanitizer.Language, processorOpts...)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxUploadSize: cfg.Server.BodyLimit,
		Logger:        appLogger.GetLogger(),
	}))

	resumeHandler := handlers.NewResumeHandler(processor, cfg.Server.UploadDir)
	searchHandler := handlers.NewSearchHandler(matcher, san, cfg.Sanitizer.Language)
	matchHandler := handlers.NewMatchHandler(matchService)

	api := app.Group("/api/v1")

	api.Post("/resumes", resumeHandler.UploadResume)
	api.Get("/resumes/:candidate_id", resumeHandler.GetResume)
	api.Delete("/resumes/:candidate_id", resumeHandler.DeleteResume)
	api.Get("/candidates", resumeHandler.ListCandidates)

	api.Post("/search", searchHandler.Search)
	api.Post("/match", matchHandler.Match)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		ready, err := store.Ready(c.Context())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{
			"status":  "ready",
			"indexed": ready,
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

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
