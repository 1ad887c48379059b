package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Read endpoints.
		r.Group(func(r chi.Router) {
			if s.cfg.RateLimit.Enabled {
				r.Use(s.rateLimitMiddleware())
			}

			r.Get("/batches", s.handleListBatches)
			r.Get("/batches/latest", s.handleLatestBatch)
			r.Get("/batches/{id}", s.handleGetBatch)
			r.Get("/runs", s.handleListRuns)
			r.Get("/benchmarks", s.handleListBenchmarks)
			r.Get("/compare", s.handleCompare)
			r.Get("/rank", s.handleRank)
		})

		// Admin endpoints; disabled entirely without a configured
		// credential hash.
		if s.cfg.Admin.PasswordBcrypt != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminAuth)

				r.Post("/reindex", s.handleReindex)
			})
		}
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the API config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}

	origins := s.cfg.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
