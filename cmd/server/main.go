package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp-bulk-import-api/internal/api"
	"github.com/erp-bulk-import-api/internal/config"
	"github.com/erp-bulk-import-api/internal/database"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/erp-bulk-import-api/internal/service"
	"github.com/erp-bulk-import-api/pkg/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting ERP bulk import API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *rollback {
		version, err := db.MigrateDown(cfg.Database.MigrationsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		log.Info().Uint("version", version.Version).Msg("Rollback complete")
		return
	}

	// Run migrations
	if _, err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	if err := os.MkdirAll(cfg.Import.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Import.UploadDir).Msg("Failed to create upload directory")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Initialize services
	services := service.NewServices(repos, cfg, log)

	// Start background run processor
	go services.History.StartProcessor(context.Background())
	log.Info().Msg("Background import processor started")

	// Initialize router
	router := api.NewRouter(services, cfg, log, db.HealthCheck)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop run processor
	services.History.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
