package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/cache"
	"github.com/croftje/billingd/internal/config"
	"github.com/croftje/billingd/internal/limits"
	"github.com/croftje/billingd/internal/logstore"
	"github.com/croftje/billingd/internal/observability"
	analyticssvc "github.com/croftje/billingd/internal/services/analytics"
	billingsvc "github.com/croftje/billingd/internal/services/billing"
	reconciliationsvc "github.com/croftje/billingd/internal/services/reconciliation"
)

// Container aggregates runtime dependencies for handlers and services.
type Container struct {
	Config         *config.Config
	DBPool         *pgxpool.Pool
	Redis          *redis.Client
	Cache          *cache.Store
	Store          *logstore.Store
	Billing        *billingsvc.Service
	Reconciliation *reconciliationsvc.Service
	Analytics      *analyticssvc.Service
	RateLimiter    *limits.RateLimiter
	ClientLimit    limits.LimitConfig
	Observability  *observability.Provider
	Location       *time.Location
	Logger         *slog.Logger
}

// NewContainer builds a dependency container from the provided primitives.
func NewContainer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("db pool is required")
	}
	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone: %w", err)
	}

	resultCache := cache.NewStore()

	obsProvider, err := observability.Setup(ctx, cfg.Observability, resultCache.Stats)
	if err != nil {
		return nil, fmt.Errorf("setup observability: %w", err)
	}

	store, err := logstore.NewStore(pool, resultCache, cfg.Reporting.EventsTable, cfg.Cache.QueryTTL)
	if err != nil {
		return nil, fmt.Errorf("init log store: %w", err)
	}
	store.OnQuery = obsProvider.RecordQuery

	validity := aggregate.NewValidity(cfg.Reporting.ValidResultCodes)

	return &Container{
		Config:         cfg,
		DBPool:         pool,
		Redis:          redisClient,
		Cache:          resultCache,
		Store:          store,
		Billing:        billingsvc.NewService(store, resultCache, validity, loc, cfg.Cache.BillingTTL, obsProvider, logger),
		Reconciliation: reconciliationsvc.NewService(store, resultCache, validity, loc, cfg.Cache.ReconciliationTTL, cfg.Reporting.MaxPageSize, obsProvider, logger),
		Analytics:      analyticssvc.NewService(store, resultCache, validity, loc, cfg.Cache.AnalyticsTTL, logger),
		RateLimiter:    limits.NewRateLimiter(redisClient),
		ClientLimit: limits.LimitConfig{
			RequestsPerMinute: cfg.RateLimits.RequestsPerMinute,
			ParallelRequests:  cfg.RateLimits.ParallelRequests,
		},
		Observability: obsProvider,
		Location:      loc,
		Logger:        logger,
	}, nil
}
