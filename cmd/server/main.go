package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/intelligencedev/ragserve/internal/analytics"
	"github.com/intelligencedev/ragserve/internal/chunking"
	"github.com/intelligencedev/ragserve/internal/config"
	"github.com/intelligencedev/ragserve/internal/debugstore"
	"github.com/intelligencedev/ragserve/internal/embedding"
	"github.com/intelligencedev/ragserve/internal/extract"
	"github.com/intelligencedev/ragserve/internal/httpapi"
	"github.com/intelligencedev/ragserve/internal/ingestion"
	"github.com/intelligencedev/ragserve/internal/llm"
	"github.com/intelligencedev/ragserve/internal/logging"
	"github.com/intelligencedev/ragserve/internal/metastore"
	"github.com/intelligencedev/ragserve/internal/query"
	"github.com/intelligencedev/ragserve/internal/ratelimit"
	"github.com/intelligencedev/ragserve/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logging.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	log.SetLevel(logLevelFor(cfg.Environment))

	ctx := context.Background()

	vsCfg := vectorstore.Config{
		Backend:    cfg.VectorStoreBackend,
		DSN:        cfg.DatabaseURL,
		Collection: cfg.QdrantCollection,
		Dimension:  1536,
	}
	if cfg.VectorStoreBackend == "qdrant" {
		vsCfg.DSN = cfg.QdrantURL
	}
	store, err := vectorstore.New(ctx, vsCfg)
	if err != nil {
		log.WithError(err).Fatal("vector store init failed")
	}

	var metaStore metastore.Store
	var dbPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		dbPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres metadata store init failed")
		}
		metaStore, err = metastore.NewPostgresStore(ctx, dbPool)
		if err != nil {
			log.WithError(err).Fatal("metadata store migration failed")
		}
	}

	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
	}

	embedProvider := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
	embedCfg := embedding.DefaultConfig()
	embedCfg.BatchSize = cfg.OpenAIEmbeddingBatchSize
	batchProvider := embedding.NewBatchProvider(embedProvider, embedCfg, log.WithField("component", "embedding"))
	embedService := embedding.NewService(batchProvider, store, log.WithField("component", "embedding"))

	var queryCache embedding.QueryCache
	if redisClient != nil {
		queryCache = embedding.NewRedisQueryCache(redisClient, log.WithField("component", "query_cache"))
	} else {
		queryCache = embedding.NewMemoryQueryCache()
	}

	detector := extract.NewDetector(
		extract.TXTExtractor{Language: "en"},
		extract.MarkdownExtractor{},
		extract.PDFExtractor{Language: "en"},
	)

	ingestOrchestrator := &ingestion.Orchestrator{
		Extractor: detector,
		Chunker:   chunking.NewService(),
		Embedder:  embedService,
		MetaStore: metaStore,
		Jobs:      ingestion.NewMemoryJobStore(),
		Log:       log.WithField("component", "ingestion"),
	}

	var llmClient llm.Client
	switch cfg.GenerationProvider {
	case "anthropic":
		llmClient = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	case "google":
		googleClient, err := llm.NewGoogleClient(ctx, cfg.GoogleAPIKey, cfg.GoogleModel)
		if err != nil {
			log.WithError(err).Fatal("init google generation client")
		}
		llmClient = googleClient
	default:
		llmClient = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIGenerationModel, cfg.OpenAITemperature)
	}

	debugCfg := debugstore.DefaultConfig()
	debugCfg.Enabled = cfg.DebugRAG
	debugCfg.RetentionHours = cfg.DebugRetentionHours
	debugCfg.MaxPayloadBytes = cfg.DebugMaxSizeBytes
	debugCfg.BearerToken = cfg.DebugArtifactsToken
	debugCfg.Environment = cfg.Environment

	var debugBackend debugstore.Store
	if dbPool != nil {
		debugBackend, err = debugstore.NewPostgresStore(ctx, dbPool)
		if err != nil {
			log.WithError(err).Fatal("debug artifact store migration failed")
		}
	} else {
		debugBackend = debugstore.NewMemoryStore()
	}
	artifacts := debugstore.NewLogger(debugBackend, debugCfg)
	go debugstore.RunRetentionSweep(ctx, debugBackend, debugCfg.RetentionHours, time.Hour, log.WithField("component", "debug_sweep"))

	queryEmbedder := query.NewQueryEmbedder(batchProvider, queryCache)
	retriever := query.NewRetriever(store, log.WithField("component", "retrieval"))
	queryOrchestrator := query.NewOrchestrator(queryEmbedder, retriever, llmClient, artifacts, log.WithField("component", "query"))
	queryOrchestrator.Model = cfg.OpenAIGenerationModel

	if cfg.ClickHouseDSN != "" {
		sink, err := analytics.NewClickHouseSink(ctx, cfg.ClickHouseDSN, cfg.ClickHouseTable, log.WithField("component", "analytics"))
		if err != nil {
			log.WithError(err).Warn("clickhouse analytics sink unavailable, falling back to no-op")
		} else {
			queryOrchestrator.Analytics = sink
		}
	}

	var jobQueue ingestion.JobQueue
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		kq := ingestion.NewKafkaJobQueue(brokers, cfg.KafkaTopic)
		jobQueue = kq
		go func() {
			embedCfgForQueue := embedding.DefaultConfig()
			embedCfgForQueue.BatchSize = cfg.OpenAIEmbeddingBatchSize
			if err := ingestion.StartKafkaConsumer(ctx, brokers, cfg.KafkaGroupID, cfg.KafkaTopic, ingestOrchestrator, extractOptsFromConfig(cfg), chunking.DefaultConfig(), embedCfgForQueue); err != nil {
				log.WithError(err).Error("kafka_ingestion_consumer_stopped")
			}
		}()
	}

	var rateLimiter ratelimit.Limiter
	if redisClient != nil {
		rateLimiter = ratelimit.NewRedisLimiter(redisClient)
	} else {
		rateLimiter = ratelimit.NewMemoryLimiter()
	}

	probes := []httpapi.DependencyProbe{
		{Name: "vector_store", Check: storeProbe(store)},
	}
	if redisClient != nil {
		probes = append(probes, httpapi.DependencyProbe{Name: "redis", Check: redisProbe(redisClient)})
	}
	if dbPool != nil {
		probes = append(probes, httpapi.DependencyProbe{Name: "postgres", Check: pgProbe(dbPool)})
	}

	accessLog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	extractOpts := extractOptsFromConfig(cfg)

	router := httpapi.NewRouter(httpapi.Deps{
		Version:         "0.1.0",
		Environment:     cfg.Environment,
		HealthProbes:    probes,
		Ingestion:       ingestOrchestrator,
		Query:           queryOrchestrator,
		Embedder:        queryEmbedder,
		Retriever:       retriever,
		Artifacts:       artifacts,
		RateLimiter:     rateLimiter,
		RateLimitPerMin: cfg.RateLimitPerMinute,
		QueryTimeoutSec: cfg.QueryTimeoutSeconds,
		AccessLog:       accessLog,
		ExtractOptions:  extractOpts,
		JobQueue:        jobQueue,
	})

	log.WithField("addr", cfg.HTTPAddr).Info("server_starting")
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

func extractOptsFromConfig(cfg config.Config) extract.Options {
	opts := extract.DefaultOptions()
	opts.PDFTier1Enabled = cfg.PDFTier1Enabled
	opts.PDFTier2Enabled = cfg.PDFTier2Enabled
	opts.PDFTier3Enabled = cfg.PDFTier3Enabled
	opts.PDFTier4Enabled = cfg.PDFTier4Enabled
	opts.PDFAutoFallback = cfg.PDFAutoFallback
	opts.PDFExtractabilityMin = cfg.PDFExtractabilityMin
	opts.PDFTier4DPI = cfg.PDFTier4DPI
	opts.PDFTier4Lang = cfg.PDFTier4Lang
	opts.LlamaCloudAPIKey = cfg.LlamaCloudAPIKey
	opts.TesseractCmd = cfg.TesseractCmd
	return opts
}

func logLevelFor(environment string) logrus.Level {
	if environment == "prod" {
		return logrus.InfoLevel
	}
	return logrus.DebugLevel
}

func storeProbe(store vectorstore.Store) func(context.Context) httpapi.DependencyStatus {
	return func(ctx context.Context) httpapi.DependencyStatus {
		if _, err := store.SearchByDocument(ctx, "", 1); err != nil {
			return httpapi.DependencyUnavailable
		}
		return httpapi.DependencyOK
	}
}

func redisProbe(client redis.UniversalClient) func(context.Context) httpapi.DependencyStatus {
	return func(ctx context.Context) httpapi.DependencyStatus {
		if err := client.Ping(ctx).Err(); err != nil {
			return httpapi.DependencyUnavailable
		}
		return httpapi.DependencyOK
	}
}

func pgProbe(pool *pgxpool.Pool) func(context.Context) httpapi.DependencyStatus {
	return func(ctx context.Context) httpapi.DependencyStatus {
		if err := pool.Ping(ctx); err != nil {
			return httpapi.DependencyUnavailable
		}
		return httpapi.DependencyOK
	}
}
