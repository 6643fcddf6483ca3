// Command preflight checks the API environment before a deploy.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type result struct {
	fatal bool
	lines []string
}

func (r *result) fail(msg string) { r.fatal = true; r.lines = append(r.lines, "✖ "+msg) }
func (r *result) warn(msg string) { r.lines = append(r.lines, "⚠ "+msg) }
func (r *result) ok(msg string)   { r.lines = append(r.lines, "✔ "+msg) }

func check(env func(string) string) result {
	var r result
	get := func(k string) string { return strings.TrimSpace(env(k)) }

	if get("KROGER_CLIENT_ID") == "" || get("KROGER_CLIENT_SECRET") == "" {
		r.fail("KROGER_CLIENT_ID/KROGER_CLIENT_SECRET missing (price lookups will fail).")
	} else {
		r.ok("Kroger credentials present")
	}

	if get("JWKS_URL") != "" {
		if get("JWT_AUDIENCE") == "" {
			r.warn("JWKS_URL set without JWT_AUDIENCE; tokens for any audience will be accepted.")
		} else {
			r.ok("JWKS_URL present (RS256)")
		}
	} else if get("JWT_SECRET") == "" {
		r.warn("JWT_SECRET empty; auth is disabled and every caller shares the anonymous owner.")
	} else {
		r.ok("JWT_SECRET present")
	}

	if addr := get("API_ADDR"); addr == "" {
		r.warn("API_ADDR is empty; default 127.0.0.1:8080 will be used.")
	} else {
		r.ok("API_ADDR=" + addr)
	}

	if get("DATABASE_URL") == "" {
		r.warn("DATABASE_URL empty; API will use in-memory stores (triggers are lost on restart).")
	} else {
		r.ok("DATABASE_URL present")
	}

	if redis := get("REDIS_ADDR"); redis == "" {
		r.warn("REDIS_ADDR empty; item prices will not be cached.")
	} else {
		r.ok("REDIS_ADDR=" + redis)
	}

	if allowed := get("ALLOWED_ORIGINS"); allowed == "" {
		r.warn("ALLOWED_ORIGINS empty; CORS allows any origin.")
	} else {
		r.ok("ALLOWED_ORIGINS=" + allowed)
	}
	return r
}

func main() {
	_ = godotenv.Load()
	r := check(os.Getenv)
	for _, l := range r.lines {
		if strings.HasPrefix(l, "✔") {
			fmt.Println(l)
		} else {
			fmt.Fprintln(os.Stderr, l)
		}
	}
	if r.fatal {
		os.Exit(1)
	}
	fmt.Println("✔ preflight passed")
}
