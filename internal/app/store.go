package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/storage"
)

// OpenStore builds the backend named by cfg.Store. The returned close
// function releases it.
func OpenStore(ctx context.Context, cfg *Config, logger *slog.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case StoreMemory:
		return storage.NewMemory(), noop, nil
	case StoreFile:
		return storage.NewFile(cfg.StorePath), noop, nil
	case StoreSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		st := storage.NewRedis(client, cfg.RedisPrefix)
		latency, err := st.Ping(ctx)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("redis store connected", slog.String("addr", cfg.RedisAddr), slog.Duration("ping", latency))
		return st, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
