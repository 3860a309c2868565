package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/infra/config"
	"github.com/arklim/social-platform-reading/internal/transport/http/handlers"
	"github.com/arklim/social-platform-reading/internal/transport/http/middleware"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Lifecycle   *usecase.LifecycleService
	Payments    *usecase.PaymentService
	Leaderboard *usecase.LeaderboardService
	Admin       *usecase.AdminService
	Reclaimer   *usecase.Reclaimer
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Verifier    middleware.TokenVerifier
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Config != nil && len(deps.Config.App.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	}

	if httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("http metrics disabled", zap.Error(err))
	} else {
		r.Use(httpMetrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Verifier)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		sessionHandler := handlers.NewSessionHandler(deps.Services.Lifecycle)
		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(authMiddleware)
		if mw := buildStartRateLimit(deps); mw != nil {
			sessionGroup.POST("", append(mw, sessionHandler.StartSession)...)
			sessionGroup.GET("/active", sessionHandler.GetActiveSession)
			mutation := buildMutationRateLimit(deps)
			sessionGroup.POST("/:session_id/pause", append(mutation, sessionHandler.PauseSession)...)
			sessionGroup.POST("/:session_id/resume", append(mutation, sessionHandler.ResumeSession)...)
			sessionGroup.POST("/:session_id/end", append(mutation, sessionHandler.EndSession)...)
		} else {
			sessionHandler.RegisterRoutes(sessionGroup)
		}

		leaderboardHandler := handlers.NewLeaderboardHandler(deps.Services.Leaderboard)
		leaderboardGroup := api.Group("/leaderboard")
		leaderboardHandler.RegisterRoutes(leaderboardGroup)

		webhookSecret := ""
		if deps.Config != nil {
			webhookSecret = deps.Config.Payment.PaystackWebhookSecret
		}
		paymentHandler := handlers.NewPaymentHandler(deps.Services.Payments, webhookSecret, deps.Logger)
		paymentGroup := api.Group("/payments")
		if mw := buildWebhookRateLimit(deps); mw != nil {
			paymentGroup.Use(mw...)
		}
		paymentHandler.RegisterRoutes(paymentGroup)

		adminHandler := handlers.NewAdminHandler(deps.Services.Admin, deps.Services.Lifecycle, deps.Services.Reclaimer)
		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

func buildStartRateLimit(deps Dependencies) []gin.HandlerFunc {
	return buildRateLimit(deps, "session_start_user",
		func(cfg config.RateLimitSettings) int { return cfg.StartMaxAttempts },
		middleware.AuthenticatedUserIdentifier())
}

func buildMutationRateLimit(deps Dependencies) []gin.HandlerFunc {
	return buildRateLimit(deps, "session_mutation_user",
		func(cfg config.RateLimitSettings) int { return cfg.MutationMaxAttempts },
		middleware.AuthenticatedUserIdentifier())
}

func buildWebhookRateLimit(deps Dependencies) []gin.HandlerFunc {
	return buildRateLimit(deps, "payment_webhook_ip",
		func(cfg config.RateLimitSettings) int { return cfg.WebhookMaxAttempts },
		middleware.ClientIPIdentifier())
}

func buildRateLimit(deps Dependencies, name string, limitOf func(config.RateLimitSettings) int, identifier middleware.IdentifierFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := limitOf(deps.Config.RateLimit)
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: identifier,
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
