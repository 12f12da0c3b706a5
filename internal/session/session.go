package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the credentials of the signed-in account. It replaces the
// ambient token storage of a browser: one Session is created at start-up
// and handed to every component that talks to the backend.
type Session struct {
	mu        sync.RWMutex
	token     string
	role      Role
	expiresAt time.Time
	now       func() time.Time
}

// New returns an empty, signed-out session.
func New() *Session {
	return &Session{now: time.Now}
}

// Establish stores a freshly issued token. The expiry is read from the
// token's exp claim when it is a JWT; the signature is not checked here,
// that is the backend's job.
func (s *Session) Establish(token string, role Role) {
	var expiresAt time.Time
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.role = role
	s.expiresAt = expiresAt
}

// Token returns the bearer token, or false when signed out or expired.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

// Role returns the role resolved at sign-in. It survives Clear so that a
// re-login can be checked against it.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// ExpiresAt is zero when the token carries no exp claim.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Authenticated reports whether a usable token is held.
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Clear drops the token. Called on any 401 from the backend.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}
