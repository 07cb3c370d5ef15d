// Package api exposes the feature engine and the metadata queries over
// HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sucolo/hexfeat/internal/config"
	"github.com/sucolo/hexfeat/internal/features"
	"github.com/sucolo/hexfeat/internal/health"
)

// FeatureComputer computes feature tables.
type FeatureComputer interface {
	Compute(ctx context.Context, req *features.FeatureRequest) (*features.Table, error)
}

// Metadata answers the city listing queries.
type Metadata interface {
	ListCities(ctx context.Context) ([]string, error)
	CityExists(ctx context.Context, city string) (bool, error)
	ListAmenities(ctx context.Context, city string) ([]string, error)
	ListStaticAttributes(ctx context.Context, city string) ([]string, error)
	AmenityCounts(ctx context.Context, city string) (map[string]int64, error)
}

// HealthChecker probes the backing stores.
type HealthChecker interface {
	Status(ctx context.Context) health.Status
}

// maxRequestBytes bounds the body of a feature request.
const maxRequestBytes = 1 << 20

// Server holds the HTTP handlers.
type Server struct {
	engine FeatureComputer
	meta   Metadata
	health HealthChecker
	log    *zap.Logger
}

// NewServer creates a Server.
func NewServer(engine FeatureComputer, meta Metadata, hc HealthChecker) *Server {
	return &Server{
		engine: engine,
		meta:   meta,
		health: hc,
		log:    zap.L().With(zap.String("component", "api")),
	}
}

// Router builds the route tree with CORS, rate limiting and request
// logging applied.
func (s *Server) Router(cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))

	r.Get("/health", s.handleHealth)
	r.Route("/cities", func(r chi.Router) {
		r.Get("/", s.handleCities)
		r.Route("/{city}", func(r chi.Router) {
			r.Get("/amenities", s.handleAmenities)
			r.Get("/attributes", s.handleAttributes)
			r.Get("/amenity-counts", s.handleAmenityCounts)
		})
	})
	r.Post("/features", s.handleFeatures)
	return r
}

// rateLimit rejects requests beyond the limiter's budget with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
