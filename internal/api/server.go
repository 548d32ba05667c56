// Package api provides the HTTP frontend for the title reservation engine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/titlekeep/titlekeep-server/internal/service"
	"github.com/titlekeep/titlekeep-server/internal/validation"
)

// Middleware wraps a handler; the admin surface takes one so deployments can
// plug in their own auth. The default is pass-through.
type Middleware func(http.Handler) http.Handler

// Server holds dependencies for HTTP handlers.
type Server struct {
	booking   *service.BookingService
	holders   *service.HolderService
	schedule  *service.ScheduleService
	titles    *service.TitleService
	tenants   *service.TenantService
	settings  *service.SettingsService
	validator *validation.Validator
	adminAuth Middleware
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// adminAuth may be nil, leaving the admin routes open.
func NewServer(
	booking *service.BookingService,
	holders *service.HolderService,
	schedule *service.ScheduleService,
	titles *service.TitleService,
	tenants *service.TenantService,
	settings *service.SettingsService,
	adminAuth Middleware,
	logger *slog.Logger,
) *Server {
	if adminAuth == nil {
		adminAuth = func(next http.Handler) http.Handler { return next }
	}
	s := &Server{
		booking:   booking,
		holders:   holders,
		schedule:  schedule,
		titles:    titles,
		tenants:   tenants,
		settings:  settings,
		validator: validation.New(),
		adminAuth: adminAuth,
		router:    chi.NewRouter(),
		logger:    logger,
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
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/slots", s.handleGetSlots)
		r.Get("/titles", s.handleStatusCards)
		r.Get("/titles/requestable", s.handleRequestableTitles)
		r.Get("/schedule", s.handleScheduleGrid)

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", s.handleBook)
			r.Get("/upcoming", s.handleUpcomingReservations)
			r.Delete("/{token}", s.handleCancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)

			r.Post("/assign", s.handleManualAssign)
			r.Post("/release", s.handleForceRelease)
			r.Delete("/reservations", s.handleAdminReleaseReservation)
			r.Get("/audit", s.handleListAudit)

			r.Route("/tenants", func(r chi.Router) {
				r.Get("/", s.handleListTenants)
				r.Post("/", s.handleCreateTenant)
				r.Patch("/{id}", s.handleUpdateTenant)
				r.Delete("/{id}", s.handleDeleteTenant)
				r.Post("/{id}/default", s.handleSetDefaultTenant)
				r.Post("/{id}/test", s.handleTestTenant)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Patch("/settings", s.handleUpdateSettings)

			r.Patch("/titles/{name}", s.handleUpdateTitle)
		})
	})
}
