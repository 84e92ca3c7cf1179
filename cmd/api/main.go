package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mindvault/internal/config"
	"mindvault/internal/events"
	"mindvault/internal/extract"
	"mindvault/internal/handlers"
	"mindvault/internal/http"
	"mindvault/internal/ingest"
	"mindvault/internal/llm"
	"mindvault/internal/memory"
	"mindvault/internal/retrieval"
	"mindvault/internal/vectorindex"
	"mindvault/internal/webhooks"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}
	if err := events.Migrate(db); err != nil {
		log.Fatalf("Failed to run event migrations: %v", err)
	}
	if err := webhooks.Migrate(db); err != nil {
		log.Fatalf("Failed to run webhook migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	ctx := context.Background()

	// Initialize Qdrant vector index
	index, err := vectorindex.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := index.EnsureCollection(ctx, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedText(ctx, "test"); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModel, "vector_size", cfg.QdrantVectorSize)

	// Model client and analyzer
	llmClient := llm.NewClient(cfg.OllamaBaseURL, cfg.OllamaModel)
	analyzer := llm.NewAnalyzer(llmClient)

	// Content extractors; pdf/image/audio go through the sidecar when
	// configured
	var sidecar extract.Extractor
	if cfg.ExtractorBaseURL != "" {
		sidecar = extract.NewSidecar(cfg.ExtractorBaseURL)
	}
	registry := extract.NewRegistry(sidecar)

	// Stores
	memoryStore := memory.NewStore(index, embedder)
	webhookRepo := webhooks.NewRepo(db)
	notifier := webhooks.NewNotifier(webhookRepo)
	eventStore := events.NewStore(db, notifier)

	// Pipelines
	pipeline := ingest.NewPipeline(registry, analyzer, memoryStore, eventStore)
	engine := retrieval.NewEngine(memoryStore, analyzer, cfg.RelevanceCeiling, cfg.RelevanceBand)
	slog.Info("Retrieval engine initialized", "ceiling", cfg.RelevanceCeiling, "band", cfg.RelevanceBand)

	router := http.NewRouter(&http.Deps{
		Ingest:   handlers.NewIngestHandler(pipeline),
		Query:    handlers.NewQueryHandler(engine),
		Memories: handlers.NewMemoriesHandler(memoryStore, eventStore),
		Events:   handlers.NewEventsHandler(eventStore),
		Graph:    handlers.NewGraphHandler(memoryStore),
		Webhooks: handlers.NewWebhooksHandler(webhookRepo, notifier),
		Health:   handlers.NewHealthHandler(memoryStore, analyzer, eventStore),
	})

	// Start API server with graceful shutdown
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		slog.Error("Shutdown did not complete cleanly", "error", err)
	}
}
