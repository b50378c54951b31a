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

	h "github.com/veranemoloko/media-downloader/internal/api/http"
	cfgpkg "github.com/veranemoloko/media-downloader/internal/config"
	"github.com/veranemoloko/media-downloader/internal/extractor"
	"github.com/veranemoloko/media-downloader/internal/lifecycle"
	repo "github.com/veranemoloko/media-downloader/internal/repository"
	"github.com/veranemoloko/media-downloader/internal/scheduler"
	svc "github.com/veranemoloko/media-downloader/internal/service"
	"github.com/veranemoloko/media-downloader/internal/storage"
	"github.com/veranemoloko/media-downloader/internal/worker"
)

func main() {

	cfg, err := cfgpkg.Load()
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			slog.Error("configuration file not found", "error", err)
		} else {
			slog.Error("failed to load configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := cfgpkg.SetupLogger(cfg)
	logger.Info("configuration loaded successfully", "env", cfg.Environment, "metadata_backend", cfg.MetadataBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openMetadataStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err)
		os.Exit(1)
	}

	profiles := extractor.DefaultProfiles()
	if cfg.ProfilesFile != "" {
		profiles, err = extractor.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			logger.Error("failed to load extraction profiles", "path", cfg.ProfilesFile, "error", err)
			os.Exit(1)
		}
	}

	files := storage.NewFileStorage(cfg.DownloadDir)
	manager := lifecycle.NewManager(store, files, logger)
	registry := repo.NewTaskRegistry()

	runner := extractor.NewYtDlp(cfg.YtDlpPath, logger)
	chain := extractor.NewChain(runner, profiles, logger)

	pool := worker.NewPool(cfg.WorkerPoolSize, cfg.QueueSize, logger)
	executor := worker.NewExecutor(registry, runner, manager, pool, cfg.DownloadTimeout, logger)

	taskService := svc.NewTaskService(registry, chain, executor, manager, files, cfg.ProbeTimeout, logger).
		WithSelfTest(runner, cfg.SelfTestURL)

	cleanup, err := scheduler.NewCleanup(manager, registry, scheduler.Options{
		Interval:      cfg.CleanupInterval,
		FileRetention: cfg.FileRetention,
		TaskRetention: cfg.TaskRetention,
	}, logger)
	if err != nil {
		logger.Error("failed to create cleanup scheduler", "error", err)
		os.Exit(1)
	}
	if err := cleanup.RunOnce(ctx); err != nil {
		logger.Warn("startup cleanup failed", "error", err)
	}
	cleanup.Start()

	router := h.NewRouter(taskService, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	go func() {
		logger.Info("server starting", "address", server.Addr, "workers", cfg.WorkerPoolSize, "profiles", len(profiles))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if err := cleanup.Stop(shutdownCtx); err != nil {
		logger.Warn("cleanup scheduler did not stop in time", "error", err)
	}

	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("workers did not finish in time, in-flight downloads cancelled", "error", err)
	}

	if err := store.Close(); err != nil {
		logger.Error("failed to close metadata store", "error", err)
	}
}

func openMetadataStore(ctx context.Context, cfg *cfgpkg.Config) (storage.MetadataStore, error) {
	if cfg.MetadataBackend == cfgpkg.MetadataBackendSQLite {
		store, err := storage.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := storage.NewJSONStore(cfg.MetadataPath())
	if err != nil {
		return nil, err
	}
	return store, nil
}
