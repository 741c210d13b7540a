package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"linkstride-client/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// StorageRepository keeps values in go-cache and, when a snapshot path is set,
// rewrites a JSON file after every mutation so state survives restarts.
type StorageRepository struct {
	cache        *cache.Cache
	snapshotPath string
	mu           sync.Mutex
}

func NewStorageRepository(snapshotPath string) (*StorageRepository, error) {
	r := &StorageRepository{
		cache:        cache.New(cache.NoExpiration, 0),
		snapshotPath: snapshotPath,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

var _ contract.StorageRepository = (*StorageRepository)(nil)

func (r *StorageRepository) Get(ctx context.Context, key string) (string, error) {
	if x, found := r.cache.Get(key); found {
		return x.(string), nil
	}
	return "", contract.ErrKeyNotFound
}

func (r *StorageRepository) Set(ctx context.Context, key string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(key, value, cache.NoExpiration)
	return r.persist()
}

func (r *StorageRepository) SetMany(ctx context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := make(map[string]interface{}, len(values))
	for key, value := range values {
		if x, found := r.cache.Get(key); found {
			previous[key] = x
		}
		r.cache.Set(key, value, cache.NoExpiration)
	}
	if err := r.persist(); err != nil {
		for key := range values {
			if x, found := previous[key]; found {
				r.cache.Set(key, x, cache.NoExpiration)
			} else {
				r.cache.Delete(key)
			}
		}
		return err
	}
	return nil
}

func (r *StorageRepository) Delete(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		r.cache.Delete(key)
	}
	return r.persist()
}

func (r *StorageRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist()
}

func (r *StorageRepository) load() error {
	if r.snapshotPath == "" {
		return nil
	}
	data, err := os.ReadFile(r.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", r.snapshotPath, err)
	}
	for k, v := range values {
		r.cache.Set(k, v, cache.NoExpiration)
	}
	return nil
}

// persist must be called with mu held.
func (r *StorageRepository) persist() error {
	if r.snapshotPath == "" {
		return nil
	}

	items := r.cache.Items()
	values := make(map[string]string, len(items))
	for k, item := range items {
		if s, ok := item.Object.(string); ok {
			values[k] = s
		}
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := r.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp, r.snapshotPath)
}
