package bootstrap

import (
	"context"
	"fmt"
	"time"

	"linkstride-client/internal/config"
	"linkstride-client/internal/pkg/logger"
	"linkstride-client/internal/repository/contract"
	"linkstride-client/internal/repository/implementation"
	"linkstride-client/internal/repository/memory"
	"linkstride-client/pkg/database"

	"github.com/redis/go-redis/v9"
)

// NewStorage opens the session store selected by STORAGE_DRIVER. The redis client
// is returned as well so the push hub can share the connection.
func NewStorage(cfg config.StorageConfig, log logger.ILogger) (contract.StorageRepository, *redis.Client, error) {
	switch cfg.Driver {
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{
				"error": err.Error(),
			})
			opt = &redis.Options{Addr: cfg.RedisURL}
		}
		rdb := redis.NewClient(opt)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		log.Info("Bootstrap", "Session storage: redis", map[string]interface{}{"namespace": cfg.Namespace})
		return implementation.NewRedisStorageRepository(rdb, cfg.Namespace), rdb, nil

	case "postgres":
		db, err := database.NewGormDB(database.GormConfig{DSN: cfg.PostgresDSN, MaxIdleConns: 2, MaxOpenConns: 5})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		store, err := implementation.NewGormStorageRepository(db, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Bootstrap", "Session storage: postgres", map[string]interface{}{"namespace": cfg.Namespace})
		return store, nil, nil

	default:
		store, err := memory.NewStorageRepository(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Bootstrap", "Session storage: memory", map[string]interface{}{"snapshot": cfg.SnapshotPath})
		return store, nil, nil
	}
}
