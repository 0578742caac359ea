package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanoigo/assistant/internal/cache"
	"github.com/hanoigo/assistant/internal/config"
	"github.com/hanoigo/assistant/internal/core/ports"
	"github.com/hanoigo/assistant/internal/core/usecase"
	"github.com/hanoigo/assistant/internal/infrastructure/chunking"
	"github.com/hanoigo/assistant/internal/infrastructure/llm/ollama"
	"github.com/hanoigo/assistant/internal/infrastructure/queue/nats"
	"github.com/hanoigo/assistant/internal/infrastructure/repository/postgres"
	"github.com/hanoigo/assistant/internal/infrastructure/vector/qdrant"
	"github.com/hanoigo/assistant/internal/nlp/district"
	"github.com/hanoigo/assistant/internal/nlp/intent"
)

// App wires the full dependency graph once; cmd binaries pick the pieces they
// serve.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Catalog *postgres.VenueRepository
	Queue   ports.MessageQueue
	Cache   ports.Cache
	// CacheClient is the concrete cache for stats registration; nil when the
	// cache is disabled.
	CacheClient *cache.Client

	AssistUC ports.AssistService
	IngestUC *usecase.IngestUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewVenueRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var (
		cacheClient *cache.Client
		cachePort   ports.Cache
	)
	if cfg.CacheEnabled {
		cacheClient = cache.New(cache.Config{
			Addr:             cfg.RedisAddr,
			Password:         cfg.RedisPassword,
			DB:               cfg.RedisDB,
			FailureThreshold: uint32(cfg.CacheFailureThreshold),
			OpenTimeout:      time.Duration(cfg.CacheOpenTimeoutSec) * time.Second,
		}, logger)
		cachePort = cacheClient
	}

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		ollama.WithRateLimit(cfg.OllamaRatePerSec, cfg.OllamaRateBurst),
	)
	embedder := ollama.NewEmbedder(ollamaClient)
	propositions := ollama.NewPropositionSplitter(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	dicts, err := intent.LoadDictionaries()
	if err != nil {
		return nil, fmt.Errorf("load keyword dictionaries: %w", err)
	}
	classifier := intent.NewClassifier(dicts, logger)
	districts := district.NewExtractor()

	retrieveUC := usecase.NewRetrieveUseCase(catalog, vectorDB, embedder, usecase.RetrieveConfig{
		Limit:           cfg.RetrievalLimit,
		MinResults:      cfg.RetrievalMinResults,
		NearbyRadiusKm:  cfg.NearbyRadiusKm,
		StrategyTimeout: time.Duration(cfg.StrategyTimeoutSec) * time.Second,
	}, logger)

	assistUC := usecase.NewAssistUseCase(
		classifier,
		districts,
		retrieveUC,
		cachePort,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		logger,
	)

	ingestUC := usecase.NewIngestUseCase(
		catalog,
		propositions,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorDB,
		cachePort,
		usecase.IngestConfig{
			Concurrency:         cfg.IngestConcurrency,
			MinPropositionRunes: cfg.IngestMinPropositionLen,
		},
		logger,
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Catalog:     catalog,
		Queue:       queue,
		Cache:       cachePort,
		CacheClient: cacheClient,
		AssistUC:    assistUC,
		IngestUC:    ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
