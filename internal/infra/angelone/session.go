package angelone

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionFallbackTTL applies when the JWT carries no readable expiry.
const sessionFallbackTTL = 6 * time.Hour

// session holds the tokens returned by loginByPassword.
type session struct {
	mu        sync.Mutex
	jwtToken  string
	refresh   string
	feedToken string
	expiresAt time.Time
}

// tokenExpiry reads the exp claim without verifying the signature; only
// SmartAPI can verify it, we just need to know when to log in again.
func tokenExpiry(token string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return now.Add(sessionFallbackTTL)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return now.Add(sessionFallbackTTL)
	}
	return exp.Time
}

func (s *session) set(d loginData, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwtToken = d.JWTToken
	s.refresh = d.RefreshToken
	s.feedToken = d.FeedToken
	s.expiresAt = tokenExpiry(d.JWTToken, now)
}

// bearer returns the token if it is still valid a minute from now.
func (s *session) bearer(now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jwtToken == "" || !now.Add(time.Minute).Before(s.expiresAt) {
		return "", false
	}
	return s.jwtToken, true
}

func (s *session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jwtToken, s.refresh, s.feedToken = "", "", ""
	s.expiresAt = time.Time{}
}
