package auth

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// sessionStore is an in-memory token table. Tokens do not survive a restart;
// admins simply log in again.
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]session
}

type session struct {
	subject   string
	expiresAt time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]session)}
}

func (st *sessionStore) create(subject string, expiresAt time.Time) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	st.mu.Lock()
	st.tokens[token] = session{subject: subject, expiresAt: expiresAt}
	// Opportunistic cleanup keeps the table bounded without a ticker.
	now := time.Now().UTC()
	for t, s := range st.tokens {
		if s.expiresAt.Before(now) {
			delete(st.tokens, t)
		}
	}
	st.mu.Unlock()
	return token, nil
}

func (st *sessionStore) valid(token string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.tokens[token]
	if !ok {
		return false
	}
	if s.expiresAt.Before(time.Now().UTC()) {
		delete(st.tokens, token)
		return false
	}
	return true
}

func (st *sessionStore) delete(token string) {
	st.mu.Lock()
	delete(st.tokens, token)
	st.mu.Unlock()
}
