// Package main provides the entry point for the dist-git import worker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TommyLike/copr/internal/frontend"
	"github.com/TommyLike/copr/internal/health"
	"github.com/TommyLike/copr/internal/importer"
	"github.com/TommyLike/copr/internal/providers"
	"github.com/TommyLike/copr/pkg/config"
	"github.com/TommyLike/copr/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger from config
	log := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogFormat == "json")

	// Frontend queue client
	fe := frontend.NewClient(cfg.FrontendBaseURL, cfg.FrontendAuth, log.Logger)

	// Dist-git collaborators
	provisioner := importer.NewProvisioner(cfg.DistGit, log.Logger)
	srpmImporter := importer.NewScriptImporter(cfg.DistGit.ImportScript, log.Logger)

	// Configure the worker
	workerCfg := &importer.WorkerConfig{
		WorkDir:       cfg.WorkDir,
		SleepInterval: cfg.SleepInterval,
		Providers: providers.Options{
			MockChroot:     cfg.Mock.Chroot,
			MockConfigDir:  cfg.Mock.ConfigDir,
			CustomChroot:   cfg.Mock.CustomChroot,
			SourcesCommand: cfg.Mock.SourcesCommand,
			Logger:         log.Logger,
		},
	}

	worker, err := importer.NewWorker(workerCfg, fe, provisioner, srpmImporter, log)
	if err != nil {
		log.Error("failed to create worker", "error", err)
		os.Exit(1)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Health endpoint
	checker := health.NewChecker(fe.Ping, worker.LastPoll, 10*cfg.SleepInterval)
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/health", checker.Handler())

	healthSrv := &http.Server{
		Addr:    cfg.HealthAddr,
		Handler: router,
	}
	go func() {
		log.Info("health endpoint listening", "addr", cfg.HealthAddr)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health endpoint failed", "error", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Run the polling loop; it blocks until Stop or context cancellation.
	done := make(chan error, 1)
	go func() {
		done <- worker.Run(ctx)
	}()

	log.Info("starting dist-git importer",
		"frontend", cfg.FrontendBaseURL,
		"work_dir", cfg.WorkDir,
		"sleep_interval", cfg.SleepInterval,
	)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
		worker.Stop()
		<-done
	case err := <-done:
		if err != nil && err != context.Canceled {
			log.Error("worker loop ended", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("health endpoint shutdown failed", "error", err)
	}

	log.Info("dist-git importer shutdown complete")
}
