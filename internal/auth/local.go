package auth

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// HandleLocalLogin verifies the configured admin password and issues a
// session cookie.
func (s *Service) HandleLocalLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Always verify against a hash (real or dummy) to prevent timing attacks.
	hashToVerify := s.passwordHash
	configured := hashToVerify != ""
	if !configured {
		hashToVerify = DummyHash
	}

	valid, _ := VerifyPassword(req.Password, hashToVerify)
	if !configured || !valid {
		writeJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := s.createSession(w, r, "admin"); err != nil {
		log.Printf("auth: session creation error: %v", err)
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
