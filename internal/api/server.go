// Package api provides the HTTP API server and handlers for the Shelfmark server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
	"github.com/shelfmarkapp/shelfmark-server/internal/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService    *service.AuthService
	shelfService   *service.ShelfService
	catalogService *service.CatalogService
	searchService  *service.SearchService
	sseHandler     *sse.Handler
	router         *chi.Mux
	logger         *slog.Logger

	corsOrigins []string
	serverName  string
}

// Options configures the HTTP server.
type Options struct {
	AuthService    *service.AuthService
	ShelfService   *service.ShelfService
	CatalogService *service.CatalogService
	SearchService  *service.SearchService
	SSEHandler     *sse.Handler
	Logger         *slog.Logger
	CORSOrigins    []string
	ServerName     string
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	s := &Server{
		authService:    opts.AuthService,
		shelfService:   opts.ShelfService,
		catalogService: opts.CatalogService,
		searchService:  opts.SearchService,
		sseHandler:     opts.SSEHandler,
		router:         chi.NewRouter(),
		logger:         opts.Logger,
		corsOrigins:    opts.CORSOrigins,
		serverName:     opts.ServerName,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited per IP).
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.authRateLimit())
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.Post("/password-reset/request", s.handleResetRequest)
			r.Post("/password-reset/confirm", s.handleResetConfirm)
			r.With(s.requireAuth).Delete("/account", s.handleDeleteAccount)
		})

		// The user's shelves (require auth).
		r.Route("/bookshelf", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/", s.handleGetBookshelf)
			r.Post("/books", s.handleAddBook)
			r.Post("/move", s.handleMoveBook)
			r.Post("/books/remove", s.handleRemoveBook)
			r.Post("/books/update", s.handleUpdateBook)
			r.Get("/stats", s.handleStats)
			r.Get("/search", s.handleShelfSearch)
			r.Get("/sync/status", s.handleSyncStatus)
			r.Get("/stream", s.handleStream)
		})

		// Catalog lookups (require auth).
		r.Route("/catalog", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/search", s.handleCatalogSearch)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
		"server": s.serverName,
	}, s.logger)
}
