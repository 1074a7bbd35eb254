package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"DocuMind/internal/api"
	"DocuMind/internal/config"
	"DocuMind/internal/dal"
	"DocuMind/internal/database/milvus"
	"DocuMind/internal/database/minio"
	"DocuMind/internal/database/mysql"
	"DocuMind/internal/database/redis"
	"DocuMind/internal/embedding"
	"DocuMind/internal/llm"
	"DocuMind/internal/loaders"
	"DocuMind/internal/rag/pipeline"
	"DocuMind/internal/rag/splitters"
	"DocuMind/internal/rag/tokenizer"
	"DocuMind/internal/rag/vectorstore"
	"DocuMind/internal/service"
	"DocuMind/pkg/logger"
)

const scrapeTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(cfg.Logger.Level)
	appLogger := logger.New("DocuMind")
	appLogger.Info("Starting DocuMind server...")

	ctx := context.Background()

	// 3. Initialize Backing Stores
	db, err := mysql.NewDB(&cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer mysql.Close(db)

	milvusClient, err := milvus.NewClient(ctx, &cfg.Databases.Milvus, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		log.Fatalf("Failed to ensure Milvus collection: %v", err)
	}

	// The chat-history cache is optional; the DAL falls back to MySQL alone.
	var redisClient *goredis.Client
	if cfg.Databases.Redis.Address != "" {
		redisClient, err = redis.NewClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			appLogger.WithError(err).Warn("Redis unavailable, chat history cache disabled")
			redisClient = nil
		}
	}

	// Raw upload storage is optional as well.
	var objectStore *minio.Store
	if cfg.Databases.MinIO.Endpoint != "" {
		objectStore, err = minio.NewStore(ctx, &cfg.Databases.MinIO)
		if err != nil {
			appLogger.WithError(err).Warn("MinIO unavailable, raw upload storage disabled")
			objectStore = nil
		}
	}

	// 4. Build the RAG Components
	codec, err := tokenizer.New()
	if err != nil {
		log.Fatalf("Failed to load tokenizer: %v", err)
	}

	splitter, err := splitters.NewSentenceSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, codec)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}

	embedder := embedding.NewOpenAIModel(&cfg.OpenAI, codec)
	completionModel := llm.NewOpenAI(&cfg.OpenAI)

	vectors, err := vectorstore.NewMilvusStore(milvusClient, time.Duration(cfg.RAG.BatchDelayMs)*time.Millisecond, appLogger)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}

	docDAL := dal.NewDocumentDAL(db)
	chatDAL := dal.NewChatDAL(db, redisClient, time.Duration(cfg.Databases.Redis.TTL)*time.Second, appLogger)

	ingestion := pipeline.NewIngestionPipeline(splitter, embedder, vectors, docDAL, cfg.RAG.UpsertBatchSize, appLogger)
	query := pipeline.NewQueryPipeline(embedder, vectors, completionModel, codec, chatDAL, appLogger)

	ragService := service.New(
		appLogger,
		ingestion,
		query,
		docDAL,
		chatDAL,
		vectors,
		objectStore,
		loaders.NewFileExtractor(),
		loaders.NewWebScraper(scrapeTimeout),
		cfg.RAG.TopK,
	)

	// 5. Start the Reconciler
	reconcilerCtx, stopReconciler := context.WithCancel(ctx)
	defer stopReconciler()
	if cfg.RAG.ReconcileInterval > 0 {
		reconciler := pipeline.NewReconciler(docDAL, vectors, embedder, cfg.RAG.UpsertBatchSize, appLogger)
		go reconciler.Run(reconcilerCtx, time.Duration(cfg.RAG.ReconcileInterval)*time.Second)
	}

	// 6. Start the HTTP Server
	probes := healthProbes(db, milvusClient, redisClient, objectStore)
	handler := api.NewHandler(ragService, probes)
	router := api.SetupRouter(handler, cfg.Auth.JwtSecret)

	srv := &http.Server{Addr: cfg.Server.Address, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	stopReconciler()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("HTTP server shutdown failed")
	}
	appLogger.Info("Server stopped")
}

func healthProbes(db *gorm.DB, mc *milvus.Client, rdb *goredis.Client, objects *minio.Store) map[string]api.HealthProbe {
	probes := map[string]api.HealthProbe{
		"mysql": func(ctx context.Context) error {
			return mysql.HealthCheck(ctx, db)
		},
		"milvus": func(ctx context.Context) error {
			return mc.HealthCheck(ctx)
		},
	}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redis.HealthCheck(ctx, rdb)
		}
	}
	if objects != nil {
		probes["minio"] = func(ctx context.Context) error {
			return objects.HealthCheck(ctx)
		}
	}
	return probes
}
