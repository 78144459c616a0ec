package storage

import (
	"context"
	"fmt"

	"github.com/marcelsud/webhook-relay/config"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/failure/memory"
	"github.com/marcelsud/webhook-relay/failure/postgres"
	"github.com/marcelsud/webhook-relay/failure/redis"
)

// Open returns the failure store selected by STORAGE_DRIVER
func Open(ctx context.Context, cfg *config.Config) (failure.Repository, error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		repo, err := redis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return repo, nil
	case config.StoragePostgres:
		repo, err := postgres.NewRepository(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		if err := repo.CreateTables(ctx); err != nil {
			repo.Close(ctx)
			return nil, err
		}
		return repo, nil
	case config.StorageMemory:
		return memory.NewRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}
