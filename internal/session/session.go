// Package session owns the bearer credential handed to the HTTP client.
//
// A Session starts established, moves to refreshed each time its refresher
// renews the token, and ends expired when the token lapses without a way to
// renew it or the user logs out. Nothing else mutates the credential.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketbasket/pricewatch/internal/apperr"
)

type State int

const (
	StateEstablished State = iota
	StateRefreshed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateEstablished:
		return "established"
	case StateRefreshed:
		return "refreshed"
	case StateExpired:
		return "expired"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Credentials is what the managed auth provider hands out. A zero Expiry
// means the token carries no expiry we could read.
type Credentials struct {
	Token        string
	RefreshToken string
	Expiry       time.Time
}

// Refresher trades a refresh token for fresh credentials.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

type Session struct {
	mu        sync.Mutex
	creds     Credentials
	state     State
	refresher Refresher
	leeway    time.Duration
	now       func() time.Time
}

// New starts a session from creds. When Expiry is unset it is read from the
// token's exp claim if the token is a JWT. refresher may be nil.
func New(creds Credentials, refresher Refresher) *Session {
	if creds.Expiry.IsZero() {
		if exp, ok := ExpiryFromJWT(creds.Token); ok {
			creds.Expiry = exp
		}
	}
	s := &Session{
		creds:     creds,
		refresher: refresher,
		leeway:    30 * time.Second,
		now:       time.Now,
	}
	if creds.Token == "" && creds.RefreshToken == "" {
		s.state = StateExpired
	}
	return s
}

// CurrentSession returns a usable bearer token, refreshing it first when it
// is within the leeway of expiring. It fails with apperr.ErrAuthRequired once
// the session cannot produce a token.
func (s *Session) CurrentSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateExpired && s.creds.Token != "" && !s.expiringLocked() {
		return s.creds.Token, nil
	}
	if s.refresher == nil || s.creds.RefreshToken == "" {
		s.expireLocked()
		return "", apperr.ErrAuthRequired
	}

	fresh, err := s.refresher.Refresh(ctx, s.creds.RefreshToken)
	if err != nil || fresh.Token == "" {
		s.expireLocked()
		if err == nil {
			err = fmt.Errorf("refresh returned no token")
		}
		return "", fmt.Errorf("%w: %v", apperr.ErrAuthRequired, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.creds.RefreshToken
	}
	if fresh.Expiry.IsZero() {
		if exp, ok := ExpiryFromJWT(fresh.Token); ok {
			fresh.Expiry = exp
		}
	}
	s.creds = fresh
	s.state = StateRefreshed
	return fresh.Token, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateExpired && s.expiringLocked() && (s.refresher == nil || s.creds.RefreshToken == "") {
		return StateExpired
	}
	return s.state
}

// Expire drops the credential, e.g. on logout.
func (s *Session) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
}

func (s *Session) expiringLocked() bool {
	if s.creds.Expiry.IsZero() {
		return false
	}
	return !s.now().Add(s.leeway).Before(s.creds.Expiry)
}

func (s *Session) expireLocked() {
	s.creds = Credentials{}
	s.state = StateExpired
}

// ExpiryFromJWT reads the exp claim without verifying the signature. The
// backend verifies; the client only needs to know when to refresh.
func ExpiryFromJWT(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
