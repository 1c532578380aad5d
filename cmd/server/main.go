// Package main provides the API server entry point for the form autopilot service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/form-autopilot/internal/api"
	"github.com/form-autopilot/internal/browser"
	"github.com/form-autopilot/internal/config"
	"github.com/form-autopilot/internal/connectors"
	"github.com/form-autopilot/internal/detector"
	"github.com/form-autopilot/internal/filler"
	"github.com/form-autopilot/internal/lifecycle"
	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync() //nolint:errcheck

	logger.Info("Structured logging initialized",
		zap.String("level", cfg.Logging.Level),
		zap.String("format", cfg.Logging.Format),
	)

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer postgres.Close()

	// Redis is optional; without it schema lookups hit Postgres directly
	var schemaCache *storage.SchemaCache
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, schema caching disabled", zap.Error(err))
	} else {
		defer redis.Close()
		schemaCache = storage.NewSchemaCache(redis, cfg.Database.Redis.SchemaTTL)
	}

	logger.Info("Database connections established")

	// Initialize repositories
	candidateRepo := storage.NewPostgresCandidateRepository(postgres)
	schemaRepo := storage.NewPostgresSchemaRepository(postgres)
	applicationRepo := storage.NewPostgresApplicationRepository(postgres)

	// Initialize browser automation
	driver := browser.NewChromeDriver(cfg.Browser)
	formDetector := detector.New(driver, cfg.Browser, cfg.Automation.EnableProfiling)
	formFiller := filler.New(driver, cfg.Browser, cfg.Automation.EnableProfiling)

	// Initialize lifecycle manager
	manager := lifecycle.NewManager(
		formDetector,
		formFiller,
		candidateRepo,
		schemaRepo,
		applicationRepo,
		schemaCache,
		cfg.Automation,
		logger,
	)

	// Initialize job board connectors
	registry := connectors.NewRegistry(cfg.Connectors)
	defer registry.Close() //nolint:errcheck

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.WriteTimeout * 2,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	server := api.NewServer(
		serverConfig,
		manager,
		candidateRepo,
		schemaRepo,
		applicationRepo,
		registry,
		logger,
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Let queued applications finish before dropping database connections
	manager.Wait()

	logger.Info("Server exited")
}
