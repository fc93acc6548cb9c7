package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vrbridge/internal/auth"
	"vrbridge/internal/geoip"
	"vrbridge/internal/jellyfin"
	"vrbridge/internal/metrics"
	"vrbridge/internal/playback"
	"vrbridge/internal/sessions"
	"vrbridge/internal/version"
)

type Server struct {
	router     chi.Router
	upstream   *jellyfin.Client
	negotiator *playback.Negotiator
	registry   *sessions.Registry

	corsOrigin  string
	authService *auth.Service
	geoResolver *geoip.Resolver
	metrics     *metrics.Metrics
	versions    *version.Checker
	startedAt   time.Time
}

func NewServer(upstream *jellyfin.Client, neg *playback.Negotiator, reg *sessions.Registry, opts ...Option) *Server {
	srv := &Server{
		router:     chi.NewRouter(),
		upstream:   upstream,
		negotiator: neg,
		registry:   reg,
		corsOrigin: "*",
		startedAt:  time.Now().UTC(),
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	if srv.metrics != nil {
		srv.router.Use(metrics.RequestMiddleware(srv.metrics))
	}
	srv.routes()
	return srv
}

type Option func(*Server)

// WithCORSOrigin narrows the allowed origin. The default is permissive ("*")
// so headset browsers can always reach the stream routes.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func WithAuthService(a *auth.Service) Option {
	return func(s *Server) { s.authService = a }
}

func WithGeoResolver(r *geoip.Resolver) Option {
	return func(s *Server) { s.geoResolver = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithVersionChecker(c *version.Checker) Option {
	return func(s *Server) { s.versions = c }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
