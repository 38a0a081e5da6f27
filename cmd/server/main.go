package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/blogdemo/internal/badge"
	"github.com/blackmichael/blogdemo/internal/blobstore"
	"github.com/blackmichael/blogdemo/internal/config"
	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/blackmichael/blogdemo/internal/httpserver"
	"github.com/blackmichael/blogdemo/internal/realtime"
	"github.com/blackmichael/blogdemo/internal/storage"
	"github.com/blackmichael/blogdemo/internal/telemetry"
	"github.com/blackmichael/blogdemo/internal/uploadtoken"
)

const serviceName = "blogdemo"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	repo, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to database", "backend", storage.BackendFor(cfg.DatabaseURL))

	blobs, err := blobstore.Open(cfg.BlobPath)
	if err != nil {
		return fmt.Errorf("open image store: %w", err)
	}
	defer blobs.Close()

	signer, err := uploadtoken.NewSigner(cfg.UploadSecret)
	if err != nil {
		return fmt.Errorf("create upload signer: %w", err)
	}

	hub := realtime.NewHub(logger)

	blogService, err := domain.NewBlogService(domain.BlogDeps{
		Posts:     repo,
		Comments:  repo,
		Users:     repo,
		Sessions:  repo,
		Images:    blobs,
		Signer:    signer,
		Publisher: hub,
	}, domain.BlogOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
		OrphanTTL:      cfg.OrphanTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("create blog service: %w", err)
	}
	authService := domain.NewAuthService(repo, repo, cfg.SessionTTL, logger)

	// Start background cleanup of expired sessions and orphaned images
	go blogService.StartCleanupJob(ctx, cfg.CleanupInterval)

	// Start the HTTP server
	server, err := httpserver.NewServer(cfg, httpserver.Deps{
		Blog:  blogService,
		Auth:  authService,
		Hub:   hub,
		Badge: badge.NewHandler(logger),
		Ping:  repo.Ping,
	}, logger)
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Info("server started", "port", cfg.Port, "hostname", cfg.Hostname)

	// Wait for shutdown signal
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-serverErr:
		logger.Error("http server exited with error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
