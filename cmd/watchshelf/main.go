package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mlevan/watchshelf/internal/api"
	"github.com/mlevan/watchshelf/internal/config"
	"github.com/mlevan/watchshelf/internal/controllers"
	"github.com/mlevan/watchshelf/internal/models"
	"github.com/mlevan/watchshelf/internal/scheduler"
	"github.com/mlevan/watchshelf/internal/services/gemini"
	"github.com/mlevan/watchshelf/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Watchshelf")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Load blocklist
	blocklist, err := utils.LoadBlocklist(cfg.BlocklistFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load blocklist, continuing without it")
		blocklist = &utils.Blocklist{}
	} else {
		logger.Info("Blocklist loaded")
	}

	// 5. Initialize AI client
	aiClient := gemini.NewClient(cfg, logger)
	if aiClient.Enabled() {
		logger.Info("Gemini client initialized")
	} else {
		logger.Warn("Gemini client disabled (no API key), AI features return 503")
	}

	// 6. Initialize controllers
	libraryCtrl := controllers.NewLibraryController(db, logger)
	suggestCtrl := controllers.NewSuggestionController(
		db,
		aiClient,
		blocklist,
		cfg.SuggestionCount,
		time.Duration(cfg.DebounceMillis)*time.Millisecond,
		logger,
	)
	logger.Info("Controllers initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(suggestCtrl, db, aiClient.Enabled(), cfg.PicksRetentionDays, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, libraryCtrl, suggestCtrl, logger)

	// Start server in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Watchshelf is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Watchshelf stopped")
	return nil
}
