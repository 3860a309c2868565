package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/infra/config"
	"github.com/arklim/social-platform-reading/internal/infra/database"
	kafkainfra "github.com/arklim/social-platform-reading/internal/infra/kafka"
	"github.com/arklim/social-platform-reading/internal/infra/logger"
	redisinfra "github.com/arklim/social-platform-reading/internal/infra/redis"
	"github.com/arklim/social-platform-reading/internal/infra/scheduler"
	"github.com/arklim/social-platform-reading/internal/infra/security"
	"github.com/arklim/social-platform-reading/internal/infra/telemetry"
	postgresrepo "github.com/arklim/social-platform-reading/internal/repository/postgres"
	redisrepo "github.com/arklim/social-platform-reading/internal/repository/redis"
	"github.com/arklim/social-platform-reading/internal/transport/http/middleware"
	"github.com/arklim/social-platform-reading/internal/transport/http/routes"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	tracer    *telemetry.TracerProvider
	reclaimer *usecase.Reclaimer
	sweeper   *scheduler.Scheduler
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	verifier, err := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	store := postgresrepo.NewStore(pool, log).WithMaxAttempts(cfg.Session.TxMaxAttempts)
	repos := postgresrepo.NewRepositories(pool)

	// Kafka event publisher, or a logging stub when no brokers are configured.
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var board port.Leaderboard
	if cfg.Redis.LeaderboardEnable {
		leaderboard := redisrepo.NewLeaderboard(redisClient.Client())
		if cfg.Redis.LeaderboardKey != "" {
			leaderboard.WithKey(cfg.Redis.LeaderboardKey)
		}
		board = leaderboard
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "reading:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	lifecycleCfg := usecase.LifecycleConfig{
		StuckThreshold:         cfg.Session.StuckThreshold,
		RewardThresholdMinutes: cfg.Session.RewardThresholdMinutes,
		PointsPerReward:        cfg.Session.PointsPerReward,
	}
	lifecycleService := usecase.NewLifecycleService(store, repos.Sessions, eventPublisher, lifecycleCfg, log).
		WithLeaderboard(board).
		WithMetrics(metrics)

	reclaimer := usecase.NewReclaimer(store, repos.Sessions, eventPublisher, usecase.ReclaimerConfig{
		StuckThreshold: cfg.Session.StuckThreshold,
		BatchSize:      cfg.Session.ReclaimBatchSize,
	}, log).WithMetrics(metrics)

	paymentService := usecase.NewPaymentService(repos.Accounts, eventPublisher, log)
	leaderboardService := usecase.NewLeaderboardService(board, repos.Accounts, log)
	adminService := usecase.NewAdminService(repos.Accounts, repos.Sessions, repos.Audit, log)

	sweepInterval := cfg.Session.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	sweeper := scheduler.New(sweepInterval, func(ctx context.Context) (int, int, error) {
		result, err := reclaimer.Sweep(ctx)
		if err != nil {
			return 0, 0, err
		}
		return len(result.Reclaimed), result.Failed, nil
	}, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Verifier:    verifier,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Lifecycle:   lifecycleService,
			Payments:    paymentService,
			Leaderboard: leaderboardService,
			Admin:       adminService,
			Reclaimer:   reclaimer,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		tracer:    tracer,
		reclaimer: reclaimer,
		sweeper:   sweeper,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}
	}()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()

	var wg sync.WaitGroup
	if a.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.sweeper.Run(sweepCtx)
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting reading session API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		cancelSweep()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		wg.Wait()
		return nil
	case err := <-serverErrCh:
		cancelSweep()
		wg.Wait()
		return err
	}
}
