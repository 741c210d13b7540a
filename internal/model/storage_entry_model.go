// FILE: internal/model/storage_entry_model.go
// GORM model for the session key-value table
package model

import (
	"time"

	"gorm.io/datatypes"
)

// StorageEntry is one key of the session store. Values are JSON documents.
type StorageEntry struct {
	Namespace string         `gorm:"type:varchar(100);primaryKey"`
	Key       string         `gorm:"type:varchar(255);primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (StorageEntry) TableName() string {
	return "session_storage"
}
