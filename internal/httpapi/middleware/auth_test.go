package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret, sub, iss string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    iss,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := Subject(r.Context())
		if !ok {
			sub = "-"
		}
		_, _ = w.Write([]byte(sub))
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequired(t *testing.T) {
	v := NewVerifier("s3cret", "pricewatch")
	h := Required(v)(echoSubject())
	future := time.Now().Add(time.Hour)

	if rr := serve(h, sign(t, "s3cret", "alice", "pricewatch", future)); rr.Code != 200 || rr.Body.String() != "alice" {
		t.Fatalf("valid token: %d %q", rr.Code, rr.Body.String())
	}

	cases := map[string]string{
		"missing":      "",
		"wrong secret": sign(t, "other", "alice", "pricewatch", future),
		"wrong issuer": sign(t, "s3cret", "alice", "someone", future),
		"expired":      sign(t, "s3cret", "alice", "pricewatch", time.Now().Add(-time.Hour)),
		"no subject":   sign(t, "s3cret", "", "pricewatch", future),
		"garbage":      "not.a.jwt",
	}
	for name, tok := range cases {
		rr := serve(h, tok)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want 401, got %d", name, rr.Code)
		}
		if rr.Body.String() != `{"error":"unauthorized"}` {
			t.Fatalf("%s: body %q", name, rr.Body.String())
		}
	}
}

func TestOptional(t *testing.T) {
	v := NewVerifier("s3cret", "")
	h := Optional(v)(echoSubject())

	if rr := serve(h, sign(t, "s3cret", "bob", "", time.Now().Add(time.Hour))); rr.Body.String() != "bob" {
		t.Fatalf("valid token: %q", rr.Body.String())
	}
	if rr := serve(h, ""); rr.Code != 200 || rr.Body.String() != "-" {
		t.Fatalf("anonymous: %d %q", rr.Code, rr.Body.String())
	}
	if rr := serve(h, "junk"); rr.Code != 200 || rr.Body.String() != "-" {
		t.Fatalf("bad token should pass anonymously: %d %q", rr.Code, rr.Body.String())
	}
}

func TestDisabledAuthIsAnonymousOwner(t *testing.T) {
	if NewVerifier("", "x") != nil {
		t.Fatalf("expected nil verifier without secret")
	}
	for _, mw := range []func(http.Handler) http.Handler{Optional(nil), Required(nil)} {
		if rr := serve(mw(echoSubject()), ""); rr.Code != 200 || rr.Body.String() != Anonymous {
			t.Fatalf("disabled auth: %d %q", rr.Code, rr.Body.String())
		}
	}
}

func jwksJSON(kid string, pub *rsa.PublicKey) string {
	enc := base64.RawURLEncoding
	return fmt.Sprintf(`{"keys":[{"kty":"RSA","use":"sig","alg":"RS256","kid":%q,"n":%q,"e":%q}]}`,
		kid, enc.EncodeToString(pub.N.Bytes()), enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()))
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRequired_RS256KeySet(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	k, err := keyfunc.NewJWKSetJSON([]byte(jwksJSON("k1", &key.PublicKey)))
	if err != nil {
		t.Fatalf("jwks: %v", err)
	}
	h := Required(NewKeySetVerifier(k, "https://issuer.example", "pricewatch"))(echoSubject())

	claims := func(sub, iss, aud string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    iss,
			Audience:  jwt.ClaimStrings{aud},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}
	good := claims("alice", "https://issuer.example", "pricewatch")
	if rr := serve(h, signRS256(t, key, "k1", good)); rr.Code != 200 || rr.Body.String() != "alice" {
		t.Fatalf("valid token: %d %q", rr.Code, rr.Body.String())
	}

	cases := map[string]string{
		"wrong audience": signRS256(t, key, "k1", claims("alice", "https://issuer.example", "someone-else")),
		"wrong issuer":   signRS256(t, key, "k1", claims("alice", "https://evil.example", "pricewatch")),
		"unknown kid":    signRS256(t, key, "k2", good),
		"wrong key":      signRS256(t, other, "k1", good),
		"hs256 token":    sign(t, "s3cret", "alice", "https://issuer.example", time.Now().Add(time.Hour)),
	}
	for name, tok := range cases {
		if rr := serve(h, tok); rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: want 401, got %d", name, rr.Code)
		}
	}
}

func TestNewJWKSVerifier_FetchesKeySet(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksJSON("k1", &key.PublicKey)))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := NewJWKSVerifier(ctx, srv.URL, "", "")
	if err != nil {
		t.Fatalf("NewJWKSVerifier: %v", err)
	}
	tok := signRS256(t, key, "k1", jwt.RegisteredClaims{
		Subject:   "carol",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	sub, err := v.Subject(tok)
	if err != nil || sub != "carol" {
		t.Fatalf("Subject: %q %v", sub, err)
	}
}
