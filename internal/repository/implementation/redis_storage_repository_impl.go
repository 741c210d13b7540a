// FILE: internal/repository/implementation/redis_storage_repository_impl.go
// Redis-backed session key-value store
package implementation

import (
	"context"
	"errors"

	"linkstride-client/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

type RedisStorageRepositoryImpl struct {
	rdb       *redis.Client
	namespace string
}

func NewRedisStorageRepository(rdb *redis.Client, namespace string) contract.StorageRepository {
	return &RedisStorageRepositoryImpl{
		rdb:       rdb,
		namespace: namespace,
	}
}

func (r *RedisStorageRepositoryImpl) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisStorageRepositoryImpl) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", contract.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisStorageRepositoryImpl) Set(ctx context.Context, key string, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStorageRepositoryImpl) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		return nil
	})
	return err
}

func (r *RedisStorageRepositoryImpl) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.rdb.Del(ctx, full...).Err()
}

func (r *RedisStorageRepositoryImpl) Close() error {
	return r.rdb.Close()
}
