package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sitrep-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/sitrep-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sitrep-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sitrep-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sitrep-core/internal/adapters/driven/redis"
	"github.com/custodia-labs/sitrep-core/internal/adapters/driving/http"
	"github.com/custodia-labs/sitrep-core/internal/config"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/services"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

// app holds the adapters and services shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client // nil when Redis is not configured
	registry    *prometheus.Registry
	metrics     *metrics.Metrics

	sessionStore driven.SessionStore
	taskQueue    driven.TaskQueue
	lock         driven.DistributedLock

	services http.Services
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// newApp connects to PostgreSQL (and Redis when configured), applies the
// schema and builds the services.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   cfg.NewLogger(os.Stderr),
		registry: prometheus.NewRegistry(),
	}
	slog.SetDefault(a.logger)
	if cfg.UsesDefaultSecret() {
		a.logger.Warn("using the development JWT secret; set JWT_SECRET in production")
	}

	// ===== PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	if err := db.InitSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	a.logger.Info("postgres connected and schema initialized")

	// ===== Redis (optional) =====
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.logger.Info("redis connected")
	}

	// ===== Sessions, queue and lock (Redis if available, otherwise PostgreSQL) =====
	if a.redisClient != nil {
		a.sessionStore = redisadapter.NewSessionStore(a.redisClient)
		a.lock = redisadapter.NewLock(a.redisClient)
		q, err := redisqueue.NewQueue(ctx, a.redisClient)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create task queue: %w", err)
		}
		a.taskQueue = q
		a.logger.Info("using redis sessions, task queue and lock")
	} else {
		a.sessionStore = postgres.NewSessionStore(db)
		a.lock = postgres.NewAdvisoryLock(db)
		a.taskQueue = postgresqueue.NewQueue(db.DB)
		a.logger.Info("using postgres sessions, task queue and advisory lock")
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db.DB, "sitrep"),
	)

	a.metrics = metrics.New(a.registry)
	dom := services.DomConfig{
		Store:   postgres.NewDomStore(db),
		Lock:    a.lock,
		Metrics: a.metrics,
		Logger:  a.logger,
		LockTTL: cfg.Lifecycle.AdvanceLockTTL,
	}
	userStore := postgres.NewUserStore(db)
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret)
	authService := services.NewAuthService(userStore, a.sessionStore, authAdapter,
		services.WithSessionTTL(cfg.Auth.SessionTTL), services.WithAuthLogger(a.logger))

	a.services = http.Services{
		Auth:        authService,
		Users:       services.NewUserService(userStore, a.sessionStore, authAdapter, a.logger),
		Ingest:      services.NewIngestService(dom),
		Lifecycle:   services.NewLifecycleService(dom),
		Review:      services.NewReviewService(dom),
		Eligibility: services.NewEligibilityService(dom),
	}
	return a, nil
}

// readinessChecks lists the dependencies /ready pings.
func (a *app) readinessChecks() map[string]http.Pinger {
	checks := map[string]http.Pinger{
		"postgres":   a.db,
		"task_queue": a.taskQueue,
	}
	if a.redisClient != nil {
		checks["redis"] = redisPinger{a.redisClient}
	}
	return checks
}

func (a *app) close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
