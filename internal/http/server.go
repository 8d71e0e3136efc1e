// Package http exposes the budgeting API over REST.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"dentalbudget/internal/auth"
	applog "dentalbudget/internal/log"
	"dentalbudget/internal/services"
)

// Server wires the service layer to the REST surface.
type Server struct {
	http.Server

	tokens     *auth.TokenManager
	authSvc    *services.AuthService
	registry   *services.RegistryService
	categories *services.CategoryService
	budget     *services.BudgetService
	reports    *services.ReportService

	logs         *applog.StructuredLogger
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Services bundles the dependencies of the server.
type Services struct {
	Tokens     *auth.TokenManager
	Auth       *services.AuthService
	Registry   *services.RegistryService
	Categories *services.CategoryService
	Budget     *services.BudgetService
	Reports    *services.ReportService
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Services) *Server {
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP})
	s := &Server{
		tokens:      deps.Tokens,
		authSvc:     deps.Auth,
		registry:    deps.Registry,
		categories:  deps.Categories,
		budget:      deps.Budget,
		reports:     deps.Reports,
		logs:        applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(),
	}

	r := chi.NewRouter()
	r.Use(applog.Middleware(logger))
	r.Use(s.withObservability)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/auth/register", s.handleRegister)

			r.Route("/practices", func(r chi.Router) {
				r.Get("/", s.handleListPractices)
				r.Post("/", s.handleCreatePractice)
				r.Get("/{practiceID}", s.handleGetPractice)
				r.Put("/{practiceID}", s.handleUpdatePractice)
				r.Delete("/{practiceID}", s.handleDeletePractice)
				r.Get("/{practiceID}/fiscal-years", s.handleListFiscalYears)
				r.Post("/{practiceID}/fiscal-years", s.handleCreateFiscalYear)
			})

			r.Get("/fiscal-years/{fiscalYearID}/periods", s.handleListPeriods)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.handleListCategories)
				r.Post("/", s.handleCreateCategory)
				r.Delete("/{categoryID}", s.handleDeleteCategory)
			})

			r.Route("/periods/{periodID}", func(r chi.Router) {
				r.Get("/lines", s.handleListLines)
				r.Post("/lines", s.handleSetAmount)
				r.Get("/totals", s.handlePeriodTotal)
				r.Post("/actuals", s.handleRecordActual)
			})

			r.Route("/budget/lines/{lineID}", func(r chi.Router) {
				r.Put("/", s.handleUpdateLine)
				r.Delete("/", s.handleDeleteLine)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/variance/{practiceID}/{periodID}", s.handleVarianceReport)
				r.Get("/pl/{practiceID}", s.handlePLReport)
			})
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
