package auth

import (
	"log"
	"net/http"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

func (s *Service) oidcConfig() (bool, oauth2.Config, *gooidc.IDTokenVerifier) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oidcOn, s.oauth2, s.verifier
}

// HandleOIDCLogin redirects to the identity provider.
func (s *Service) HandleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	enabled, oauth2Cfg, _ := s.oidcConfig()
	if !enabled {
		http.NotFound(w, r)
		return
	}

	state, err := generateState()
	if err != nil {
		log.Printf("auth: failed to generate OIDC state: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, oauth2Cfg.AuthCodeURL(state), http.StatusFound)
}

// HandleOIDCCallback exchanges the authorization code, verifies the ID
// token, and issues a session cookie.
func (s *Service) HandleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	enabled, oauth2Cfg, verifier := s.oidcConfig()
	if !enabled {
		http.NotFound(w, r)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := oauth2Cfg.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("auth: OIDC token exchange error: %v", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "missing id_token", http.StatusUnauthorized)
		return
	}

	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		log.Printf("auth: OIDC token verify error: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Sub   string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "invalid claims", http.StatusUnauthorized)
		return
	}

	subject := claims.Sub
	if claims.Email != "" {
		subject = claims.Email
	}

	if err := s.createSession(w, r, subject); err != nil {
		log.Printf("auth: session creation error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}
