package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/songzhibin97/riskladder/internal/configs"
	"github.com/songzhibin97/riskladder/internal/risk"
)

// Store is a risk.StateStore holding resources that must be released
type Store interface {
	risk.StateStore
	Close() error
}

// Open builds the store selected by cfg.Risk.StateStore
func Open(ctx context.Context, cfg *configs.Config) (Store, error) {
	switch cfg.Risk.StateStore {
	case configs.StoreFile, "":
		path := cfg.Risk.StatePath
		if path == "" {
			path = configs.DefaultStatePath
		}
		return NewFileStore(path), nil

	case configs.StoreMemory:
		return NewMemoryStore(), nil

	case configs.StoreSQLite:
		s, err := NewSQLiteStore(cfg.SQLite.Path, cfg.Risk.StateName)
		if err != nil {
			return nil, err
		}
		return s, nil

	case configs.StorePostgres:
		s, err := NewPostgresStorage(cfg.Database.ConnStr, cfg.Risk.StateName)
		if err != nil {
			return nil, err
		}
		return s, nil

	case configs.StoreRedis:
		s, err := NewRedisStore(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.KeyPrefix, cfg.Risk.StateName)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("unknown state store: %q", cfg.Risk.StateStore)
}
