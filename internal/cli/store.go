package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/app"
	"online-quiz/internal/config"
	"online-quiz/internal/infra/file"
	"online-quiz/internal/infra/memory"
	"online-quiz/internal/infra/postgres"
	infraredis "online-quiz/internal/infra/redis"
	"online-quiz/internal/infra/sqlite"
)

// openEventLog builds the configured backend. The returned func releases its
// connections.
func openEventLog(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (app.EventLog, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "memory":
		return memory.NewEventLog(), noop, nil

	case "file":
		events, err := file.NewEventLog(cfg.Store.DataDir, logger)
		if err != nil {
			return nil, noop, err
		}
		return events, noop, nil

	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, noop, fmt.Errorf("redis addr not configured")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		ttl := config.TTLDuration(cfg.Redis.TTL, 0)
		return infraredis.NewEventLog(client, ttl, logger), func() { _ = client.Close() }, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, noop, fmt.Errorf("create sqlite dir: %w", err)
		}
		events, err := sqlite.Open(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, noop, err
		}
		return events, func() { _ = events.Close() }, nil

	case "postgres":
		if err := postgres.Migrate(ctx, cfg.Postgres.URL, logger); err != nil {
			return nil, noop, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewEventLog(pool, logger), pool.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
