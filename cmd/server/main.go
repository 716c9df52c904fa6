package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"kbrag/internal/api"
	"kbrag/internal/config"
	"kbrag/internal/embed"
	"kbrag/internal/llm"
	"kbrag/internal/pipeline"
	"kbrag/internal/rerank"
	"kbrag/internal/vectorstore"
)

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embedder, err := embed.New(cfg)
	if err != nil {
		log.Error("embedding provider init failed", "error", err)
		os.Exit(1)
	}

	store, err := vectorstore.New(ctx, cfg)
	if err != nil {
		log.Error("vector store init failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	reranker, err := rerank.New(cfg)
	if err != nil {
		log.Error("reranker init failed", "error", err)
		os.Exit(1)
	}

	generator := llm.New(cfg)

	pipe := pipeline.New(cfg, embedder, store, reranker, generator, log)
	srv := api.NewServer(pipe, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	log.Info("starting server",
		"port", cfg.Port,
		"embed_provider", cfg.EmbedProvider,
		"store_backend", cfg.StoreBackend,
		"reranker", cfg.Reranker,
		"llm_model", cfg.LLMModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
