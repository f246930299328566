// Package server provides the HTTP server for the Parley API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/parley-ai/parley/internal/auth"
	"github.com/parley-ai/parley/internal/event"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/session"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/user"
	"github.com/parley-ai/parley/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for streaming responses
	}
}

// Server is the HTTP server.
type Server struct {
	config       *Config
	router       *chi.Mux
	httpSrv      *http.Server
	appConfig    *types.Config
	storage      *storage.Storage
	users        *user.Service
	sessions     *session.Store
	orchestrator *session.Orchestrator
	providerReg  *provider.Registry
	bus          *event.Bus
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, store *storage.Storage, providerReg *provider.Registry) *Server {
	r := chi.NewRouter()
	bus := event.NewBus()
	sessions := session.NewStore(store, bus)

	orchCfg := orchestratorConfig(appConfig)

	s := &Server{
		config:       cfg,
		router:       r,
		appConfig:    appConfig,
		storage:      store,
		users:        user.NewService(store),
		sessions:     sessions,
		orchestrator: session.NewOrchestrator(sessions, providerReg, bus, orchCfg),
		providerReg:  providerReg,
		bus:          bus,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// orchestratorConfig maps the streaming section of the app config onto
// orchestrator settings. Zero values select the orchestrator defaults;
// negative values would wrap to a near-unbounded uint64 retry budget, so
// they are clamped to zero.
func orchestratorConfig(appConfig *types.Config) session.OrchestratorConfig {
	cfg := session.OrchestratorConfig{}
	if appConfig == nil {
		return cfg
	}

	cfg.IdleTimeout = time.Duration(appConfig.Stream.IdleTimeoutMS) * time.Millisecond
	if retries := appConfig.Stream.ConnectRetries; retries > 0 {
		cfg.ConnectRetries = uint64(retries)
	}

	return cfg
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(middleware.RequestID)

	// Logging
	s.router.Use(middleware.Logger)

	// Recover from panics
	s.router.Use(middleware.Recoverer)

	// Real IP
	s.router.Use(middleware.RealIP)

	// CORS
	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) authSecret() string {
	if s.appConfig == nil {
		return ""
	}
	return s.appConfig.Auth.Secret
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.bus.Close()
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// identity returns the authenticated identity from the request context.
func identity(r *http.Request) *auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
