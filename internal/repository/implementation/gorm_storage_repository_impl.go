// FILE: internal/repository/implementation/gorm_storage_repository_impl.go
// Postgres-backed session key-value store
package implementation

import (
	"context"
	"errors"

	"linkstride-client/internal/model"
	"linkstride-client/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStorageRepositoryImpl struct {
	db        *gorm.DB
	namespace string
}

// NewGormStorageRepository migrates the session_storage table before returning.
func NewGormStorageRepository(db *gorm.DB, namespace string) (contract.StorageRepository, error) {
	if err := db.AutoMigrate(&model.StorageEntry{}); err != nil {
		return nil, err
	}
	return &GormStorageRepositoryImpl{
		db:        db,
		namespace: namespace,
	}, nil
}

func (r *GormStorageRepositoryImpl) Get(ctx context.Context, key string) (string, error) {
	var m model.StorageEntry
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", r.namespace, key).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", contract.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return string(m.Value), nil
}

func (r *GormStorageRepositoryImpl) Set(ctx context.Context, key string, value string) error {
	return r.upsert(r.db.WithContext(ctx), key, value)
}

func (r *GormStorageRepositoryImpl) SetMany(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if err := r.upsert(tx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormStorageRepositoryImpl) upsert(db *gorm.DB, key, value string) error {
	m := model.StorageEntry{
		Namespace: r.namespace,
		Key:       key,
		Value:     datatypes.JSON(value),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
}

func (r *GormStorageRepositoryImpl) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("namespace = ? AND key IN ?", r.namespace, keys).
		Delete(&model.StorageEntry{}).Error
}

func (r *GormStorageRepositoryImpl) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
