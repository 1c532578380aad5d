// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/connectors"
	"github.com/form-autopilot/internal/lifecycle"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/storage"
	"github.com/form-autopilot/internal/types"
)

// Service interfaces for dependency injection and testing

// LifecycleServiceInterface defines the lifecycle operations the API exposes
type LifecycleServiceInterface interface {
	DetectAndStore(ctx context.Context, url string) (*models.FormSchema, *profiling.Data, error)
	UpdateFieldMappings(ctx context.Context, schemaID string, req *models.FormMappingRequest) (*models.FormSchema, error)
	BatchApply(ctx context.Context, req *models.BatchApplyRequest) ([]*models.ApplicationRecord, error)
	Retry(ctx context.Context, recordID string) (*models.ApplicationRecord, error)
	ProfilingStats(ctx context.Context, filters *storage.ApplicationFilters) (*lifecycle.ProfilingStats, error)
}

// ConnectorRegistryInterface resolves job board connectors by source
type ConnectorRegistryInterface interface {
	Get(source types.JobSource) (connectors.Connector, error)
	Sources() []types.JobSource
}

// Server represents the HTTP API server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	lifecycle    LifecycleServiceInterface
	candidates   storage.CandidateRepository
	schemas      storage.SchemaRepository
	applications storage.ApplicationRepository
	registry     ConnectorRegistryInterface
	logger       *zap.Logger
	config       *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	lifecycleService LifecycleServiceInterface,
	candidates storage.CandidateRepository,
	schemas storage.SchemaRepository,
	applications storage.ApplicationRepository,
	registry ConnectorRegistryInterface,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		lifecycle:    lifecycleService,
		candidates:   candidates,
		schemas:      schemas,
		applications: applications,
		registry:     registry,
		logger:       logger,
		config:       config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	// Candidate endpoints
	api.HandleFunc("/candidates", s.handleCreateCandidate).Methods("POST")
	api.HandleFunc("/candidates", s.handleListCandidates).Methods("GET")
	api.HandleFunc("/candidates/{id}", s.handleGetCandidate).Methods("GET")
	api.HandleFunc("/candidates/{id}", s.handleUpdateCandidate).Methods("PUT")
	api.HandleFunc("/candidates/{id}", s.handleDeleteCandidate).Methods("DELETE")

	// Form schema endpoints
	api.HandleFunc("/forms/detect", s.handleDetectForm).Methods("POST")
	api.HandleFunc("/forms/{id}", s.handleGetSchema).Methods("GET")
	api.HandleFunc("/forms/{id}/mapping", s.handleUpdateMapping).Methods("PUT")

	// Application endpoints
	api.HandleFunc("/applications/batch", s.handleBatchApply).Methods("POST")
	api.HandleFunc("/applications", s.handleListApplications).Methods("GET")
	api.HandleFunc("/applications/{id}", s.handleGetApplication).Methods("GET")
	api.HandleFunc("/applications/{id}/retry", s.handleRetryApplication).Methods("POST")

	// Analytics endpoints
	api.HandleFunc("/analytics/profiling", s.handleProfilingStats).Methods("GET")

	// Job board endpoints
	api.HandleFunc("/jobs/search", s.handleSearchJobs).Methods("GET")
	api.HandleFunc("/jobs/{source}/{id}", s.handleGetJob).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "form-autopilot",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
