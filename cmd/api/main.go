package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/giftgate/internal/access"
	"github.com/BradenHooton/giftgate/internal/auth"
	"github.com/BradenHooton/giftgate/internal/background"
	"github.com/BradenHooton/giftgate/internal/clock"
	"github.com/BradenHooton/giftgate/internal/config"
	"github.com/BradenHooton/giftgate/internal/database"
	"github.com/BradenHooton/giftgate/internal/handlers"
	middlewareCustom "github.com/BradenHooton/giftgate/internal/middleware"
	"github.com/BradenHooton/giftgate/internal/repositories"
	"github.com/BradenHooton/giftgate/internal/routes"
	"github.com/BradenHooton/giftgate/internal/security"
	"github.com/BradenHooton/giftgate/internal/storefront"
	pkghttp "github.com/BradenHooton/giftgate/pkg/http"
	pkglogger "github.com/BradenHooton/giftgate/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	logger.Info("Starting giftgate storefront API")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	sites, err := config.LoadSites(cfg.SitesFile)
	if err != nil {
		logger.Error("Failed to load site directory", "path", cfg.SitesFile, "error", err)
		os.Exit(1)
	}
	logger.Info("Site directory loaded", "sites", len(sites.All()))

	clk := clock.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rate-limit windows: shared in Redis when configured, otherwise in memory
	var windowStore security.WindowStore
	var cleanupTasks []background.Task
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Limiter fails open, so an unreachable Redis is not fatal
			logger.Warn("Redis unreachable; access attempts will not be throttled until it recovers", "addr", cfg.Redis.Addr, "error", err)
		}
		windowStore = security.NewRedisWindowStore(redisClient, clk, cfg.Redis.KeyPrefix)
		logger.Info("Using Redis rate-limit store", "addr", cfg.Redis.Addr)
	} else {
		memoryStore := security.NewMemoryWindowStore(clk)
		windowStore = memoryStore
		cleanupTasks = append(cleanupTasks, background.Task{Name: "rate_limit_windows", Pruner: memoryStore})
	}
	limiter := security.NewRateLimiter(windowStore, clk, logger)

	// Security event sinks
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)
	sinks := []security.Sink{security.NewSlogSink(auditLogger)}

	var healthDB handlers.HealthChecker
	if cfg.Database.Enabled {
		db, err := database.OpenAuditDB(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("Failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool, logger); err != nil {
			logger.Error("Failed to migrate audit database", "error", err)
			os.Exit(1)
		}

		sinks = append(sinks, security.NewRepositorySink(repositories.NewSecurityEventRepository(db)))
		healthDB = db
	}
	events := security.NewEventLogger(clk, logger, sinks...)

	verifier := access.NewHTTPVerifier(access.HTTPVerifierConfig{
		BaseURL:       cfg.Verifier.URL,
		EnvironmentID: cfg.Verifier.EnvironmentID,
		APIKey:        cfg.Verifier.APIKey,
		Timeout:       cfg.Verifier.Timeout,
	})

	registry := storefront.NewRegistry(storefront.Config{
		SessionTimeout: cfg.Session.InactivityTimeout,
		IdleTTL:        cfg.Session.VisitorIdleTTL,
		MaxVisitors:    cfg.Session.MaxVisitors,
		Access: access.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		},
		Verifier: verifier,
		Limiter:  limiter,
		Sites:    sites,
		Events:   events,
		Clock:    clk,
		Logger:   logger,
	})
	cleanupTasks = append(cleanupTasks, background.Task{Name: "visitors", Pruner: registry})

	// Background cleanup of idle visitors and expired windows
	cleanupManager := background.NewCleanupManager(logger, cfg.Session.CleanupInterval, cleanupTasks...)
	cleanupManager.Start(ctx)
	defer cleanupManager.Stop()

	tokenManager := auth.NewVisitorTokenManager(cfg.Session.VisitorSecret, cfg.Session.VisitorIdleTTL, clk)
	cookieConfig := auth.CookieConfig{
		Domain:   cfg.Server.CookieDomain,
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	h := routes.Handlers{
		Health:   handlers.NewHealthHandler(healthDB, logger),
		Sites:    handlers.NewSiteHandler(sites),
		Access:   handlers.NewAccessHandler(registry, sites, logger),
		Session:  handlers.NewSessionHandler(registry),
		Cart:     handlers.NewCartHandler(registry),
		Checkout: handlers.NewCheckoutHandler(registry, events),
	}

	accessRateLimit := middlewareCustom.DefaultAccessRateLimit()
	accessRateLimit.RequestsPerMinute = cfg.RateLimit.IPRequestsPerMinute
	accessRateLimit.IPConfig = ipConfig
	visitorRateLimit := middlewareCustom.DefaultVisitorRateLimit()
	visitorRateLimit.IPConfig = ipConfig

	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)
	logger.Info("CORS configured", "allowed_origins", cfg.Server.AllowedOrigins)

	router := chi.NewRouter()

	// Middleware stack. RealIP is omitted: client IPs are resolved against
	// the trusted proxy list instead of trusting forwarding headers blindly.
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middlewareCustom.RequestInfo)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, routes.Options{
		TokenManager:     tokenManager,
		Cookies:          cookieConfig,
		Visitors:         registry,
		AccessRateLimit:  accessRateLimit,
		VisitorRateLimit: visitorRateLimit,
		Logger:           logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
