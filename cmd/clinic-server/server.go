package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/records"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/middleware"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	maxBodySize     = "1MB"
	hstsMaxAge      = 365 * 24 * 60 * 60
)

type services struct {
	identity   *identity.Service
	scheduling *scheduling.Service
	billing    *billing.Service
	records    *records.Service
}

func newServices(b *backend, cfg *config.Config, logger zerolog.Logger) *services {
	people := identity.NewService(b.identity, b.tx, auth.NewPasswordHasher(cfg.BcryptCost), logger)
	invoices := billing.NewService(b.billing, b.tx, logger)
	return &services{
		identity:   people,
		scheduling: scheduling.NewService(b.scheduling, b.tx, people, invoices, logger),
		billing:    invoices,
		records:    records.NewService(b.records, logger),
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newServer builds the HTTP surface. It opens no listeners.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *services, tokens *auth.TokenIssuer, health db.HealthChecker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Total-Count", "X-Request-ID"},
	}))
	headers := middleware.SecurityHeadersConfig{}
	if cfg.IsProduction() {
		headers.HSTSMaxAge = hstsMaxAge
	}
	e.Use(middleware.SecurityHeaders(headers))
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.RequestTimeout(requestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "store": cfg.StoreDriver})
	})
	e.GET("/health/db", db.HealthHandler(health))

	api := e.Group("/api")
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
		rl.BurstSize = cfg.RateLimitBurst
	}
	api.Use(middleware.RateLimit(rl))

	creds := middleware.CredentialRateLimitConfig()
	creds.Skipper = func(c echo.Context) bool { return !auth.IsCredentialPath(c.Path()) }
	api.Use(middleware.RateLimit(creds))

	revoked := auth.NewRevocations()
	jwtCfg := auth.JWTConfig{Tokens: tokens, Skipper: auth.AuthSkipper, Revoked: revoked}
	if cfg.AuthRequired {
		api.Use(auth.JWTMiddleware(jwtCfg))
	} else {
		api.Use(auth.DevAuthMiddleware(jwtCfg))
	}

	api.POST("/auth/logout", auth.LogoutHandler(revoked))
	identity.NewHandler(svc.identity, tokens).RegisterRoutes(api)
	scheduling.NewHandler(svc.scheduling).RegisterRoutes(api)
	billing.NewHandler(svc.billing).RegisterRoutes(api)
	records.NewHandler(svc.records).RegisterRoutes(api)

	return e
}

func newTokenIssuer(cfg *config.Config, logger zerolog.Logger) (*auth.TokenIssuer, error) {
	key, generated, err := auth.ResolveSigningKey(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("JWT_SECRET not set: using a random signing key, tokens will not survive a restart")
	}
	return auth.NewTokenIssuer(key, cfg.TokenTTL), nil
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg)
	if !cfg.AuthRequired {
		logger.Warn().Msg("AUTH_REQUIRED is off: requests without a token act as admin")
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer b.close()

	svc := newServices(b, cfg, logger)
	if cfg.SeedDemoData {
		n, err := svc.identity.Seed(ctx, identity.DemoFixtures())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to seed demo data")
		}
		logger.Info().Int("created", n).Msg("demo data seeded")
	}

	tokens, err := newTokenIssuer(cfg, logger)
	if err != nil {
		return err
	}
	e := newServer(cfg, logger, svc, tokens, b.health)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
