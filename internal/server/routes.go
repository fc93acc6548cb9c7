package server

import (
	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.authService != nil {
		s.router.Post("/auth/login", s.authService.HandleLocalLogin)
		s.router.Get("/auth/oidc/login", s.authService.HandleOIDCLogin)
		s.router.Get("/auth/oidc/callback", s.authService.HandleOIDCCallback)
		s.router.Post("/auth/logout", s.authService.HandleLogout)
	}

	if s.metrics != nil {
		s.router.Method("GET", "/metrics", s.metrics.Handler(func() {
			s.metrics.SetActiveSessions(len(s.registry.ListActive()))
		}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(limitBody)
		r.Use(corsMiddleware(s.corsOrigin))

		// The byte proxy and segment proxy set their own content types.
		r.Get("/stream/{itemId}", s.handleStream)
		r.Get("/stream/{itemId}/segments/*", s.handleSegmentProxy)

		r.Group(func(jr chi.Router) {
			jr.Use(jsonContentType)

			jr.Post("/stream/{itemId}/start", s.handlePlaybackStart)
			jr.Post("/stream/{itemId}/progress", s.handlePlaybackProgress)
			jr.Post("/stream/{itemId}/stop", s.handlePlaybackStop)

			jr.With(rateLimitSearch).Get("/libraries/{id}/items", s.handleListItems)
			jr.Get("/libraries", s.handleListLibraries)
			jr.Get("/items/{id}", s.handleGetItem)
			jr.Get("/genres", s.handleListGenres)

			jr.Get("/version", s.handleVersion)

			jr.Route("/admin", func(ar chi.Router) {
				ar.Use(RequireAuth(s.authService))
				ar.Get("/sessions", s.handleAdminSessions)
				ar.Get("/sessions/sse", s.handleSessionsSSE)
			})
		})
	})
}
