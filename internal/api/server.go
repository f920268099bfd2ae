// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/vrsandeep/techmail/internal/core"
	"github.com/vrsandeep/techmail/internal/logger"
)

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
	db  *sql.DB
	log *logrus.Entry
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app: app,
		db:  app.DB(),
		log: logger.Component(app.Logger(), "api"),
	}
}

// App returns the application the server dispatches into.
func (s *Server) App() *core.App {
	return s.app
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/version", s.handleGetVersion)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/recipient", s.handleGetRecipient)

	cfg := s.app.Config()
	adminOnly := chi.Chain(RateLimit(cfg.API.AdminRate, cfg.API.AdminBurst), s.AdminTokenMiddleware)

	// Host dispatch. Actions rewrite the config file, so they sit behind
	// the same guard as the admin routes.
	r.Get("/api/hooks", s.handleListHooks)
	r.Post("/api/filters/{name}", s.handleApplyFilter)
	r.With(adminOnly...).Post("/api/actions/{name}", s.handleDoAction)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminOnly...)

		r.Get("/settings/technical-email", s.handleGetTechnicalEmail)
		r.Put("/settings/technical-email", s.handleUpdateTechnicalEmail)
		r.Post("/update-check", s.handleUpdateCheck)

		r.Get("/jobs/status", s.handleGetAdminJobsStatus)
		r.Post("/jobs/run", s.handleRunAdminJob)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
