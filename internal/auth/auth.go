// Package auth guards the bridge's admin surface. Two providers are
// supported: a local password (hash supplied via configuration) and an
// optional OIDC identity provider. Sessions are held in memory only; there
// are no persisted user accounts.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const SessionDuration = 7 * 24 * time.Hour
const CookieName = "vrbridge_session"
const stateCookieName = "oidc_state"

type Config struct {
	// AdminPasswordHash is an argon2id PHC hash enabling local login.
	AdminPasswordHash string

	// OIDC settings; all four required together.
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c Config) oidcSet() bool {
	return c.Issuer != "" || c.ClientID != "" || c.ClientSecret != ""
}

func (c Config) validateOIDC() error {
	if c.Issuer == "" || c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("issuer, client ID, and client secret are all required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	return nil
}

// Service authenticates admin requests. A Service with neither a password
// hash nor OIDC configured reports Enabled() == false and the server leaves
// the admin surface open (trusted-network deployments).
type Service struct {
	passwordHash string
	sessions     *sessionStore

	mu       sync.RWMutex
	oidcOn   bool
	provider *gooidc.Provider
	oauth2   oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

func NewService(cfg Config) (*Service, error) {
	s := &Service{
		passwordHash: cfg.AdminPasswordHash,
		sessions:     newSessionStore(),
	}
	if cfg.oidcSet() {
		if err := cfg.validateOIDC(); err != nil {
			return nil, err
		}
		provider, err := gooidc.NewProvider(context.Background(), cfg.Issuer)
		if err != nil {
			return nil, err
		}
		s.oidcOn = true
		s.provider = provider
		s.oauth2 = oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
		}
		s.verifier = provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
	}
	return s, nil
}

// Enabled reports whether any authentication method is configured.
func (s *Service) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passwordHash != "" || s.oidcOn
}

// Authenticated reports whether the request carries a valid session cookie.
func (s *Service) Authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return s.sessions.valid(cookie.Value)
}

func (s *Service) createSession(w http.ResponseWriter, r *http.Request, subject string) error {
	token, err := s.sessions.create(subject, time.Now().UTC().Add(SessionDuration))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// HandleLogout invalidates the current session.
func (s *Service) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		s.sessions.delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
