package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config drives cmd/api.
type Config struct {
	Addr        string // API bind address, e.g. "127.0.0.1:8080" or ":8080" in Docker
	LogDir      string
	LogLevel    string
	DatabaseURL string // empty means in-memory store
	RedisAddr   string // empty disables the item price cache
	PriceTTL    time.Duration

	KrogerClientID     string
	KrogerClientSecret string
	KrogerBaseURL      string

	JWTSecret string // empty disables auth (every caller is anonymous)
	JWTIssuer string
	// JWKSURL switches auth to RS256 tokens signed by keys from this set.
	JWKSURL     string
	JWTAudience string

	AllowedOrigins []string
	PublicRPM      int
	PublicBurst    int

	RefreshInterval time.Duration // 0 disables the background price refresh
	MaxLookups      int
	HTTPTimeout     time.Duration
}

// Client drives cmd/basket.
type Client struct {
	APIBase      string
	LogDir       string
	LogLevel     string
	Token        string
	RefreshToken string
	TokenURL     string
	AuthClientID string
	SlackWebhook string
	DatabaseURL  string // empty keeps watch notification state in memory
	HTTPTimeout  time.Duration
	Interval     time.Duration
	Cooldown     time.Duration
}

func loadDotEnv() {
	// Missing .env is fine; real env vars always win.
	_ = godotenv.Load()
}

func FromEnv() Config {
	loadDotEnv()
	return Config{
		Addr:               str("API_ADDR", "127.0.0.1:8080"),
		LogDir:             str("LOG_DIR", "logs"),
		LogLevel:           str("LOG_LEVEL", "info"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		PriceTTL:           millis("PRICE_CACHE_TTL_MS", 5*time.Minute),
		KrogerClientID:     os.Getenv("KROGER_CLIENT_ID"),
		KrogerClientSecret: os.Getenv("KROGER_CLIENT_SECRET"),
		KrogerBaseURL:      str("KROGER_BASE_URL", "https://api.kroger.com"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		JWKSURL:            os.Getenv("JWKS_URL"),
		JWTAudience:        os.Getenv("JWT_AUDIENCE"),
		AllowedOrigins:     list("ALLOWED_ORIGINS"),
		PublicRPM:          integer("PUBLIC_RPM", 120),
		PublicBurst:        integer("PUBLIC_BURST", 60),
		RefreshInterval:    millis("PRICE_REFRESH_INTERVAL_MS", 0),
		MaxLookups:         integer("MAX_CONCURRENT_LOOKUPS", 4),
		HTTPTimeout:        millis("HTTP_TIMEOUT_MS", 5*time.Second),
	}
}

func ClientFromEnv() Client {
	loadDotEnv()
	return Client{
		APIBase:      strings.TrimRight(str("API_BASE", "http://localhost:8080"), "/"),
		LogDir:       str("LOG_DIR", "logs"),
		LogLevel:     str("LOG_LEVEL", "info"),
		Token:        os.Getenv("BASKET_TOKEN"),
		RefreshToken: os.Getenv("BASKET_REFRESH_TOKEN"),
		TokenURL:     os.Getenv("AUTH_TOKEN_URL"),
		AuthClientID: os.Getenv("AUTH_CLIENT_ID"),
		SlackWebhook: os.Getenv("SLACK_WEBHOOK_URL"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		HTTPTimeout:  millis("HTTP_TIMEOUT_MS", 10*time.Second),
		Interval:     millis("WATCH_INTERVAL_MS", time.Minute),
		Cooldown:     millis("ALERT_COOLDOWN_MS", time.Hour),
	}
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func millis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
