// Package backend opens the result store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/adapters/repository/postgres"
	"github.com/okian/winstate/internal/adapters/repository/redis"
	"github.com/okian/winstate/internal/adapters/repository/sqlite"
	"github.com/okian/winstate/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// Open returns the store named by cfg.StoreDriver. The caller closes it.
func Open(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case "", config.DriverMemory:
		return repository.NewTreapStore(ctx), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		s, err := redis.Open(ctx, &goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}
