package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/impacttracker/esgrag/internal/auth"
	"github.com/impacttracker/esgrag/internal/config"
	"github.com/impacttracker/esgrag/internal/downloader"
	"github.com/impacttracker/esgrag/internal/embedder"
	"github.com/impacttracker/esgrag/internal/ingestion"
	"github.com/impacttracker/esgrag/internal/llm"
	"github.com/impacttracker/esgrag/internal/memory"
	"github.com/impacttracker/esgrag/internal/query"
	"github.com/impacttracker/esgrag/internal/repository"
	"github.com/impacttracker/esgrag/internal/repository/postgres"
	"github.com/impacttracker/esgrag/internal/reranker"
	"github.com/impacttracker/esgrag/internal/retrieval"
	"github.com/impacttracker/esgrag/internal/server"
	"github.com/impacttracker/esgrag/internal/service"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting ESG RAG service",
		"http_port", cfg.HTTPPort,
		"collection", cfg.Collection,
		"schema", cfg.ChunkSchema,
		"environment", cfg.Environment,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	reportRepo := postgres.NewReportRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant")

	// Initialize inference clients
	embed := embedder.NewHTTPEmbedder(embedder.HTTPEmbedderConfig{
		BaseURL: cfg.InferenceURL,
		Model:   cfg.EmbeddingModel,
	})
	slog.Info("initialized embedder", "model", cfg.EmbeddingModel)

	scorer := reranker.NewHTTPScorer(
		reranker.WithScorerBaseURL(cfg.InferenceURL),
		reranker.WithScorerModel(cfg.RerankerModel),
	)
	slog.Info("initialized reranker scorer", "model", cfg.RerankerModel)

	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.GeneratorModel),
	)
	slog.Info("initialized Ollama LLM", "model", cfg.GeneratorModel)

	// Ensure the collection exists before serving
	exists, err := vectorStore.CollectionExists(ctx, cfg.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := vectorStore.CreateCollection(ctx, cfg.Collection, embed.Dimension()); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		slog.Info("created collection", "name", cfg.Collection, "dimension", embed.Dimension())
	}

	// Build the retrieval pipeline
	schema := retrieval.SchemaReport
	if cfg.ChunkSchema == string(retrieval.SchemaVision) {
		schema = retrieval.SchemaVision
	}

	retriever := retrieval.New(vectorStore, embed, reranker.New(scorer), cfg.Collection,
		retrieval.WithSchema(schema),
		retrieval.WithInitialK(cfg.InitialTopK),
		retrieval.WithFinalK(cfg.FinalTopK),
	)

	assemblerOpts := []service.AssemblerOption{
		service.WithGeneratorModel(cfg.GeneratorModel),
		service.WithLanguage(cfg.AnswerLanguage),
		service.WithHistoryWindow(cfg.HistoryWindow),
	}
	if cfg.FewShotPath != "" {
		fewShot, err := service.LoadFewShot(cfg.FewShotPath)
		if err != nil {
			return fmt.Errorf("failed to load few-shot examples: %w", err)
		}
		assemblerOpts = append(assemblerOpts, service.WithFewShot(fewShot))
		slog.Info("loaded few-shot examples", "path", cfg.FewShotPath, "count", len(fewShot))
	}

	chatOpts := []service.ChatServiceOption{}
	if cfg.VerifyAnswers {
		chatOpts = append(chatOpts, service.WithVerifier(service.NewVerifier(llmClient)))
	}

	chatService := service.NewChatService(
		query.New(llmClient),
		retriever,
		service.NewAssembler(llmClient, assemblerOpts...),
		chatOpts...,
	)

	// Session memory for clients that don't resend their history
	mem := memory.DefaultStore()
	defer mem.Close()

	// Ingestion and disclosure download
	ingestPipeline := ingestion.NewPipeline(embed, vectorStore, reportRepo, cfg.Collection)
	dart := downloader.New(cfg.DownloadDir)

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Expiry = cfg.JWTExpiry
	jwtManager := auth.NewJWTManager(jwtConfig)

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Chat:           server.NewChatHandler(chatService, mem, vectorStore, cfg.Collection, slog.Default()),
		Admin:          server.NewAdminHandler(ingestPipeline, reportRepo, dart, slog.Default()),
		JWT:            jwtManager,
		AdminKey:       cfg.AdminKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.ReportRepository = (*postgres.ReportRepo)(nil)
	_ vectorstore.VectorStore     = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder           = (*embedder.HTTPEmbedder)(nil)
	_ reranker.Scorer             = (*reranker.HTTPScorer)(nil)
	_ llm.Client                  = (*llm.OllamaClient)(nil)
	_ server.ChatPipeline         = (*service.ChatService)(nil)
	_ server.Ingester             = (*ingestion.Pipeline)(nil)
	_ server.DisclosureClient     = (*downloader.Downloader)(nil)
)
