package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"career-copilot-go/internal/api/handler"
	"career-copilot-go/internal/api/router"
	"career-copilot-go/internal/chunker"
	"career-copilot-go/internal/config"
	"career-copilot-go/internal/embedder"
	"career-copilot-go/internal/extractor"
	"career-copilot-go/internal/llm"
	"career-copilot-go/internal/logger"
	"career-copilot-go/internal/matcher"
	"career-copilot-go/internal/processor"
	"career-copilot-go/internal/storage"
)

var serviceName = "career-copilot" //nolint:gochecknoglobals

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logger)
	logger.Logger = logger.Logger.With().Str("app", serviceName).Logger()
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	textEmbedder, err := embedder.NewHTTPEmbedder(cfg.Embedding)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize embedder")
	}

	storageManager, err := storage.NewStorage(ctx, cfg, textEmbedder)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer storageManager.Close()
	logger.Info().Msg("storage initialized")

	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	extractorModel, err := llm.NewChatModel(cfg.LLM.APIKey, cfg.LLM.ExtractorModel, cfg.LLM.APIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize extraction model")
	}
	extractorOpts := []extractor.ExtractorOption{
		extractor.WithExtractorTimeout(llmTimeout),
		extractor.WithExtractorMaxAttempts(cfg.LLM.MaxAttempts),
	}
	if storageManager.Redis != nil {
		extractorOpts = append(extractorOpts, extractor.WithResponseCache(storageManager.Redis))
	}
	fieldExtractor := extractor.NewLLMExtractor(extractorModel, extractorOpts...)

	evaluatorModel, err := llm.NewChatModel(cfg.LLM.APIKey, cfg.LLM.EvaluatorModel, cfg.LLM.APIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize evaluation model")
	}
	deepEvaluator := matcher.NewLLMDeepEvaluator(evaluatorModel,
		matcher.WithEvaluatorTimeout(llmTimeout),
		matcher.WithEvaluatorMaxAttempts(cfg.LLM.MaxAttempts),
	)

	funnel := matcher.NewFunnel(storageManager, deepEvaluator, cfg.Matching.ChunkPreviewLength,
		matcher.WithThresholds(matcher.Thresholds{
			MinMatchScore: cfg.Matching.MinMatchScore,
			Strong:        cfg.Matching.StrongMatchThreshold,
			Good:          cfg.Matching.GoodMatchThreshold,
			Partial:       cfg.Matching.PartialMatchThreshold,
		}),
		matcher.WithRoughTopK(cfg.Matching.RoughTopK),
		matcher.WithHybridPreciseTopN(cfg.Matching.HybridPreciseTopN),
	)

	ingestorOpts := []processor.IngestorOption{
		processor.WithNormalizer(chunker.NewNormalizer(
			chunker.WithTokenBand(cfg.Chunking.MinTokens, cfg.Chunking.IdealTokens, cfg.Chunking.MaxTokens),
		)),
	}
	if storageManager.MinIO != nil {
		ingestorOpts = append(ingestorOpts, processor.WithRawArchive(storageManager.MinIO))
	}
	ingestor := processor.NewIngestor(fieldExtractor, storageManager.MySQL, storageManager.Qdrant, ingestorOpts...)
	logger.Info().Msg("ingestion pipeline initialized")

	documentHandler := handler.NewDocumentHandler(cfg, ingestor, funnel)
	matchHandler := handler.NewMatchHandler(cfg, funnel, storageManager)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	router.RegisterRoutes(h, cfg, documentHandler, matchHandler)
	logger.Info().Str("address", cfg.Server.Address).Msg("http server starting")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
