package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speechcoach/coach/internal/adapter/llm"
	"github.com/speechcoach/coach/internal/adapter/stt"
	"github.com/speechcoach/coach/internal/adapter/tts"
	"github.com/speechcoach/coach/internal/artifact"
	"github.com/speechcoach/coach/internal/catalog"
	"github.com/speechcoach/coach/internal/config"
	"github.com/speechcoach/coach/internal/hub"
	"github.com/speechcoach/coach/internal/repository"
	"github.com/speechcoach/coach/internal/service"
	"github.com/speechcoach/coach/internal/telemetry"
	handler "github.com/speechcoach/coach/internal/transport/http"
	"github.com/speechcoach/coach/internal/workerpool"
	"github.com/speechcoach/coach/policy"
)

var logger = telemetry.NewLogger("github.com/speechcoach/coach")

func main() {
	if err := run(); err != nil {
		logger.Error("coach failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)

	logger.Info("starting coach",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"storage", cfg.StorageType,
		"mode", cfg.Mode,
		"stt_backend", cfg.STTBackend,
		"tts_backend", cfg.TTSBackend,
		"workers", cfg.WorkerPoolSize,
		"implicit_sessions", cfg.AllowImplicitSessions)

	ctx := context.Background()

	// Model catalogs
	llmCatalog, voices, err := catalog.Load(cfg.LLMConfigPath, cfg.TTSConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}
	resolver, err := catalog.NewResolver(llmCatalog, voices, catalog.DetectRAMGB())
	if err != nil {
		return fmt.Errorf("failed to resolve default models: %w", err)
	}

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	artifacts, err := artifact.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	// Engines
	transcriber, err := stt.NewTranscriber(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}
	synthesizer, err := tts.NewSynthesizer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize synthesizer: %w", err)
	}
	engines := service.Engines{
		Transcriber: transcriber,
		Generator:   llm.NewGenerator(cfg),
		Synthesizer: synthesizer,
	}

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	metrics := telemetry.NewMetrics()
	h := hub.NewHub(metrics)
	svc := service.New(db, artifacts, engines, resolver, workerpool.New(cfg.WorkerPoolSize), policyEngine, metrics, cfg)

	server := handler.NewServer(cfg, svc, h, metrics)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.Info("coach started", "port", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down coach", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("coach stopped")
	return nil
}
