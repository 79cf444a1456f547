package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/castpress/castpress/adapters/llm"
	"github.com/castpress/castpress/adapters/stt"
	"github.com/castpress/castpress/domain/repositories"
	"github.com/castpress/castpress/internal/api"
	"github.com/castpress/castpress/internal/auth"
	"github.com/castpress/castpress/internal/config"
	"github.com/castpress/castpress/internal/websocket"
	"github.com/castpress/castpress/repository"
	"github.com/castpress/castpress/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize adapters
	transcriber := newTranscriber(ctx, cfg, logger)
	model := newLanguageModel(ctx, cfg, logger)

	glossary, err := usecase.LoadGlossary(cfg.GlossaryPath)
	if err != nil {
		logger.Fatal("Failed to load glossary", zap.Error(err))
	}

	// Initialize usecase services
	segmenter := usecase.NewSegmenter(usecase.SegmenterConfig{
		MaxSegmentDuration:  cfg.MaxSegmentDuration,
		OverlapWindow:       cfg.OverlapWindow,
		MinTrailingDuration: cfg.MinTrailingDuration,
	}, logger)
	reassembler := usecase.NewReassembler(usecase.ReassemblerConfig{})
	transcription := usecase.NewTranscriptionService(segmenter, reassembler, transcriber, cfg.MaxConcurrentCalls, logger)
	correction := usecase.NewCorrectionService(model, glossary, logger)
	generation := usecase.NewGenerationService(model, cfg.GeminiModel, logger)
	translation := usecase.NewTranslationService(model, cfg.MaxTranslationJobs, logger)
	export := usecase.NewExportService()

	// Session store with background cleanup
	sessions := repository.NewInMemorySessionRepository(logger)
	janitor := repository.NewJanitor(sessions, 30*time.Minute, logger)
	janitor.Start()
	defer janitor.Stop()

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour)

	// Initialize WebSocket hub for run progress
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	server := api.NewServer(sessions, issuer, transcription, correction, generation, translation, export, hub, logger)
	server.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("sttProvider", cfg.STTProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTranscriber(ctx context.Context, cfg *config.Config, logger *zap.Logger) repositories.Transcriber {
	switch cfg.STTProvider {
	case config.ProviderWhisper:
		transcriber, err := stt.NewWhisperTranscriber(stt.WhisperConfig{
			APIKey:  cfg.WhisperAPIKey,
			BaseURL: cfg.WhisperURL,
			Model:   cfg.WhisperModel,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Whisper transcriber", zap.Error(err))
		}
		return transcriber
	case config.ProviderGoogle:
		transcriber, err := stt.NewGoogleTranscriber(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Google transcriber", zap.Error(err))
		}
		return transcriber
	default:
		logger.Warn("Using mock transcriber; set STT_PROVIDER for real transcription")
		return stt.NewMockTranscriber(logger)
	}
}

func newLanguageModel(ctx context.Context, cfg *config.Config, logger *zap.Logger) repositories.LargeLanguageModel {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; using mock language model")
		return llm.NewMockLLM()
	}
	model, err := llm.NewGeminiLLM(ctx, llm.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}
	return model
}
