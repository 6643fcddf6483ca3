package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Anonymous owns everything when auth is disabled.
const Anonymous = "anonymous"

type ctxKey struct{}

// Verifier checks bearer tokens and extracts the subject. HS256 with a
// shared secret is the dev mode; RS256 keys come from a JWKS endpoint.
type Verifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
}

// NewVerifier returns nil when secret is empty, which disables auth.
func NewVerifier(secret, issuer string) *Verifier {
	if secret == "" {
		return nil
	}
	key := []byte(secret)
	return newVerifier(func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.SigningMethodHS256.Alg(), issuer, "")
}

// NewJWKSVerifier fetches RS256 keys from jwksURL and picks one per token
// by its kid header. The set is refreshed in the background until ctx ends.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer, audience string) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, err
	}
	return NewKeySetVerifier(k, issuer, audience), nil
}

// NewKeySetVerifier verifies RS256 tokens against an already loaded key set.
func NewKeySetVerifier(k keyfunc.Keyfunc, issuer, audience string) *Verifier {
	return newVerifier(k.Keyfunc, jwt.SigningMethodRS256.Alg(), issuer, audience)
}

func newVerifier(kf jwt.Keyfunc, alg, issuer, audience string) *Verifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{alg})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Verifier{keyFunc: kf, parser: jwt.NewParser(opts...)}
}

func (v *Verifier) Subject(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Subject returns the caller attached by Optional or Required.
func Subject(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKey{}).(string)
	return s, ok && s != ""
}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sub)
}

// Optional attaches the subject of a valid bearer token and lets everyone
// else through anonymously. With v == nil every caller is Anonymous.
func Optional(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), Anonymous)))
				return
			}
			if tok := bearer(r); tok != "" {
				if sub, err := v.Subject(tok); err == nil {
					r = r.WithContext(WithSubject(r.Context(), sub))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Required rejects requests without a valid bearer token.
// With v == nil every caller is Anonymous (handy for local dev).
func Required(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), Anonymous)))
				return
			}
			sub, err := v.Subject(bearer(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}
