package models

import (
	"time"
)

// CacheEntry holds one value of the database-backed cache store. A zero
// ExpiresAt never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name used by the cache store.
func (CacheEntry) TableName() string {
	return "cache_entry"
}
