package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/catalog/rediscache"
	"github.com/marketbasket/pricewatch/internal/config"
	"github.com/marketbasket/pricewatch/internal/httpapi"
	apimw "github.com/marketbasket/pricewatch/internal/httpapi/middleware"
	"github.com/marketbasket/pricewatch/internal/kroger"
	"github.com/marketbasket/pricewatch/internal/logging"
	"github.com/marketbasket/pricewatch/internal/repo"
	"github.com/marketbasket/pricewatch/internal/repo/memory"
	pg "github.com/marketbasket/pricewatch/internal/repo/postgres"
	"github.com/marketbasket/pricewatch/internal/scheduler"
)

type stores interface {
	repo.TriggerStore
	repo.SearchTermStore
}

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "api", cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func() error

	var store stores
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		store = memory.New()
	} else {
		s, err := pg.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect", zap.Error(err))
		}
		if err := s.Migrate(ctx); err != nil {
			logger.Fatal("postgres_migrate", zap.Error(err))
		}
		closers = append(closers, func() error { s.Close(); return nil })
		logger.Info("store_postgres")
		store = s
	}

	if cfg.KrogerClientID == "" || cfg.KrogerClientSecret == "" {
		logger.Warn("kroger_credentials_missing")
	}
	var cat catalog.Catalog = kroger.New(cfg.KrogerBaseURL, cfg.KrogerClientID, cfg.KrogerClientSecret, cfg.HTTPTimeout, logger)
	if cfg.RedisAddr != "" {
		rc, err := rediscache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis_unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			closers = append(closers, rc.Close)
			cat = catalog.NewCached(cat, rc, cfg.PriceTTL, logger)
			logger.Info("price_cache_redis", zap.Duration("ttl", cfg.PriceTTL))
		}
	}

	verifier := apimw.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if cfg.JWKSURL != "" {
		verifier, err = apimw.NewJWKSVerifier(ctx, cfg.JWKSURL, cfg.JWTIssuer, cfg.JWTAudience)
		if err != nil {
			logger.Fatal("jwks_load", zap.String("url", cfg.JWKSURL), zap.Error(err))
		}
		logger.Info("auth_jwks", zap.String("url", cfg.JWKSURL))
	} else if verifier == nil {
		logger.Warn("auth_disabled")
	}

	api := httpapi.NewServer(logger, store, store, cat)
	api.MaxLookups = cfg.MaxLookups
	api.LookupTimeout = cfg.HTTPTimeout

	rc := scheduler.NewRechecker(logger, store, cat, cfg.RefreshInterval, cfg.HTTPTimeout, cfg.MaxLookups)
	go rc.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(verifier, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_serve", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("api_shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	if err != nil {
		logger.Error("api_shutdown_errors", zap.Error(err))
	}
}
