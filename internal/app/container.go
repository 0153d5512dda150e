package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/taxjar/internal/observability"
	"github.com/odyssey-erp/taxjar/internal/platform/cache"
	"github.com/odyssey-erp/taxjar/internal/platform/db"
	"github.com/odyssey-erp/taxjar/internal/taxjar"
)

// Container holds the long-lived dependencies shared by every command.
type Container struct {
	Config  *Config
	Logger  *slog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
	Client  *taxjar.Client
	Service *taxjar.Service
}

// Build connects to Postgres and, depending on CACHE_BACKEND, Redis, then
// wires the TaxJar client and service. Call Close when done.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	if cfg.AutoMigrate {
		status, err := db.Migrate(cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrated", slog.Uint64("version", uint64(status.Version)), slog.Bool("dirty", status.Dirty))
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c.Pool = pool

	var store cache.Store
	switch cfg.CacheBackend {
	case CacheRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Redis = client
		store = cache.NewRedisStore(client)
	case CacheMemory:
		store = cache.NewMemoryStore()
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.HTTPClient = c.Metrics.InstrumentClient(nil, cfg.TaxJarHTTPTimeout)
	client, err := taxjar.NewClient(clientCfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Client = client
	c.Service = taxjar.NewService(client, taxjar.NewRepository(pool), taxjar.NewCache(store, cfg.TaxJarCacheTTL), cfg.ServiceConfig())
	return c, nil
}

// RedisOpts returns the asynq connection options for REDIS_ADDR.
func (c *Container) RedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Config.RedisAddr}
}

// Ready pings the database and, when configured, Redis.
func (c *Container) Ready(ctx context.Context) error {
	if err := c.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
