package app

import (
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/cache"
)

// CacheStore returns the backing store for the permission cache, or nil when
// caching is disabled. The database driver shares invalidations across every
// process using the same database.
func (c EngineConfig) CacheStore(db *gorm.DB) cache.Store {
	if !c.Cache.Enabled {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Cache.Driver)) {
	case "database":
		return cache.NewDatabaseStore(db)
	default:
		return cache.NewMemoryStore()
	}
}

// EngineOptions converts EngineConfig into authz options, attaching a
// permission cache over store when it is non-nil.
func (c EngineConfig) EngineOptions(store cache.Store) ([]authz.Option, error) {
	opts := []authz.Option{authz.WithGrantRetries(c.GrantRetries)}
	if store == nil {
		return opts, nil
	}
	permCache, err := authz.NewPermissionCache(store, c.Cache.TTL)
	if err != nil {
		return nil, err
	}
	return append(opts, authz.WithPermissionCache(permCache)), nil
}
