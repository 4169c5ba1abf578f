// Package server exposes the assessment service over HTTP. Routes are
// JSON in, JSON out; browser clients are served through a configurable
// CORS policy.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/benchmark"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/config"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/db"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/recommend"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/scoring"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/store"
)

// Server wires the HTTP handlers to the computation packages.
type Server struct {
	store       store.Store
	pool        db.Pool
	scorer      *scoring.Aggregator
	blender     *benchmark.Blender
	recommender *recommend.Aggregator
	cfg         config.ServerConfig
}

// New builds a Server on top of an existing pool and store.
func New(pool db.Pool, st store.Store, cfg config.ServerConfig) *Server {
	return &Server{
		store:       st,
		pool:        pool,
		scorer:      scoring.NewAggregator(pool),
		blender:     benchmark.NewBlender(pool),
		recommender: recommend.NewAggregator(pool),
		cfg:         cfg,
	}
}

// Router assembles the chi route tree with middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(rateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/classification", s.handleGetClassification)
			r.Post("/responses", s.handleSubmitResponses)
			r.Get("/score", s.handleGetScore)
			r.Get("/recommendations", s.handleGetRecommendations)
		})

		r.Get("/questions", s.handleListQuestions)

		r.Get("/benchmarks", s.handleListBenchmarks)
		r.Get("/benchmarks/{sector}", s.handleGetBenchmark)

		r.Route("/admin", func(r chi.Router) {
			r.Put("/benchmarks/{sector}/external", s.handleSetExternalBenchmark)
			r.Get("/settings/benchmark-weights", s.handleGetWeights)
			r.Put("/settings/benchmark-weights", s.handleUpdateWeights)
		})
	})

	return r
}
