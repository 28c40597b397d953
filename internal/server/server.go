// Package server exposes the prediction pipeline over HTTP: a health probe,
// single and bulk prediction endpoints, and the prediction audit log.
package server

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/attrition-cli/internal/config"
	"github.com/sells-group/attrition-cli/internal/pipeline"
	"github.com/sells-group/attrition-cli/internal/store"
)

// Server wires the prediction service, the audit store, and the HTTP router.
// The service slot may be empty (no artifact trained yet); prediction
// endpoints then answer 503 until SetService installs one.
type Server struct {
	cfg config.ServerConfig
	st  store.Store

	mu  sync.RWMutex
	svc *pipeline.Service
}

// New creates a Server. svc may be nil when no artifact is available.
func New(cfg config.ServerConfig, st store.Store, svc *pipeline.Service) *Server {
	return &Server{cfg: cfg, st: st, svc: svc}
}

// SetService swaps in a new prediction service, e.g. after retraining.
func (s *Server) SetService(svc *pipeline.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.svc = svc
}

func (s *Server) service() *pipeline.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.svc
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimiter(s.cfg.RateLimit, s.cfg.RateBurst))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/predict/bulk", s.handlePredictBulk)
	r.Get("/logs", s.handleListLogs)

	return r
}
