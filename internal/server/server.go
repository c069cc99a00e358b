// Package server exposes the lookup pipeline, the company store, and the
// dialog assistant over a JSON REST API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agb-search/agb-searcher/internal/chat"
	"github.com/agb-search/agb-searcher/internal/deliverability"
	"github.com/agb-search/agb-searcher/internal/importer"
	"github.com/agb-search/agb-searcher/internal/model"
	"github.com/agb-search/agb-searcher/internal/store"
)

// Searcher is the part of the pipeline the API calls into.
type Searcher interface {
	SearchCompanyInfo(ctx context.Context, companyName string) model.CompanyRecord
	SearchCompaniesByEquipment(ctx context.Context, equipmentName string) ([]model.CompanyRecord, error)
}

const defaultLookupTimeout = 60 * time.Second

// Config tunes the HTTP server.
type Config struct {
	Port           int
	AllowedOrigins []string
	// LookupTimeout bounds a single company or equipment search request.
	LookupTimeout time.Duration
}

// Server wires handlers to their dependencies.
type Server struct {
	store     store.Store
	searcher  Searcher
	importer  *importer.Importer
	assistant *chat.Assistant
	checker   *deliverability.Checker
	cfg       Config
}

// New creates a Server.
func New(st store.Store, searcher Searcher, imp *importer.Importer, assistant *chat.Assistant, checker *deliverability.Checker, cfg Config) *Server {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	return &Server{
		store:     st,
		searcher:  searcher,
		importer:  imp,
		assistant: assistant,
		checker:   checker,
		cfg:       cfg,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", s.handleListCompanies)
		r.Post("/search", s.handleSearchCompany)
		r.Post("/bulk-search", s.handleBulkSearch)
		r.Get("/{companyID}", s.handleGetCompany)
		r.Put("/{companyID}", s.handleUpdateCompany)
	})

	r.Route("/equipment", func(r chi.Router) {
		r.Get("/", s.handleListEquipment)
		r.Post("/search", s.handleSearchEquipment)
	})

	r.Get("/search-logs", s.handleListSearchLogs)

	r.Route("/dialogs", func(r chi.Router) {
		r.Get("/", s.handleListDialogs)
		r.Post("/", s.handleCreateDialog)
		r.Route("/{dialogID}", func(r chi.Router) {
			r.Get("/", s.handleGetDialog)
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handleSendMessage)
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)
		})
	})

	r.Post("/emails/check", s.handleCheckEmail)

	return r
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "AGB Searcher API работает!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
