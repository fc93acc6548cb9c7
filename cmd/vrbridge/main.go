package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vrbridge/internal/auth"
	"vrbridge/internal/geoip"
	"vrbridge/internal/jellyfin"
	"vrbridge/internal/metrics"
	"vrbridge/internal/playback"
	"vrbridge/internal/server"
	"vrbridge/internal/sessions"
	"vrbridge/internal/units"
	"vrbridge/internal/version"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	// A missing .env file is fine; environment variables win either way.
	_ = godotenv.Load()

	listenAddr := envOr("LISTEN_ADDR", ":8096")
	corsOrigin := os.Getenv("CORS_ORIGIN")

	upstreamURL := os.Getenv("MEDIA_SERVER_URL")
	if upstreamURL == "" {
		log.Fatal("MEDIA_SERVER_URL is required")
	}
	username := os.Getenv("MEDIA_SERVER_USER")
	password := os.Getenv("MEDIA_SERVER_PASSWORD")
	if username == "" || password == "" {
		log.Fatal("MEDIA_SERVER_USER and MEDIA_SERVER_PASSWORD are required")
	}
	deviceID := envOr("DEVICE_ID", "vrbridge")

	upstream, err := jellyfin.New(upstreamURL, username, password, deviceID)
	if err != nil {
		log.Fatalf("configuring upstream client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed first login is logged, not fatal: requests re-attempt until
	// the media server comes back.
	if _, err := upstream.EnsureAuthenticated(ctx); err != nil {
		log.Printf("initial authentication failed (will retry): %v", err)
	}
	go upstream.RunAuthRefresh(ctx)

	registry := sessions.New()
	go registry.Run(ctx)

	go watchUpstreamSessions(ctx, upstream)

	geoResolver := geoip.NewResolver(os.Getenv("GEOIP_DB"))
	defer geoResolver.Close()

	authSvc, err := auth.NewService(auth.Config{
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Issuer:            os.Getenv("OIDC_ISSUER"),
		ClientID:          os.Getenv("OIDC_CLIENT_ID"),
		ClientSecret:      os.Getenv("OIDC_CLIENT_SECRET"),
		RedirectURL:       os.Getenv("OIDC_REDIRECT_URL"),
	})
	if err != nil {
		log.Fatalf("initializing auth: %v", err)
	}
	if authSvc.Enabled() {
		log.Println("admin authentication enabled")
	} else {
		log.Println("admin authentication not configured, admin surface is open")
	}

	m := metrics.New()

	checker := version.NewChecker(Version)
	go checker.Run(ctx)

	var opts []server.Option
	if corsOrigin != "" {
		opts = append(opts, server.WithCORSOrigin(corsOrigin))
	}
	opts = append(opts,
		server.WithAuthService(authSvc),
		server.WithGeoResolver(geoResolver),
		server.WithMetrics(m),
		server.WithVersionChecker(checker),
	)
	srv := server.NewServer(upstream, playback.NewNegotiator(upstream), registry, opts...)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("VRBridge %s listening on %s (upstream %s)", Version, listenAddr, upstreamURL)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// watchUpstreamSessions logs playback activity the media server reports over
// its websocket, giving operators visibility into sessions started outside
// the bridge.
func watchUpstreamSessions(ctx context.Context, upstream *jellyfin.Client) {
	for ev := range upstream.SubscribeSessions(ctx) {
		state := "playing"
		if ev.IsPaused {
			state = "paused"
		}
		log.Printf("upstream session %s: %q %s at %.0fs",
			ev.SessionID, ev.ItemName, state, units.TicksToSeconds(ev.PositionTicks))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
