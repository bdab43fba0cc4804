package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/authzd/internal/cache"
	"github.com/charlesng35/authzd/pkg/logger"
	"github.com/charlesng35/authzd/pkg/metrics"
)

const (
	// DefaultCacheTTL bounds how long an effective-permission set may be served.
	DefaultCacheTTL = 30 * time.Second

	cacheKeyPrefix   = "authz:perms"
	generationKey    = "authz:perms:generation"
	generationWindow = 24 * time.Hour
	maxCacheTTL      = time.Hour
)

// PermissionCache memoises effective permission sets per user. Entries are
// keyed by a generation that every RBAC mutation bumps, so a committed change
// is never served stale by the instance that made it; other instances sharing
// the same cache.Store see the new generation on their next lookup.
// Cache failures never fail a check: the set is loaded from the store instead.
type PermissionCache struct {
	store cache.Store
	ttl   time.Duration
	local atomic.Int64
	group singleflight.Group
	log   *zap.Logger
}

// NewPermissionCache wraps store. A non-positive ttl selects DefaultCacheTTL.
func NewPermissionCache(store cache.Store, ttl time.Duration) (*PermissionCache, error) {
	if store == nil {
		return nil, errors.New("authz: cache store is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	return &PermissionCache{
		store: store,
		ttl:   ttl,
		log:   logger.WithModule("authz.cache"),
	}, nil
}

// Load returns the cached set for userID or computes it with load. Concurrent
// misses for the same key share one load, which runs detached from any single
// caller's cancellation; each caller still stops waiting when its own ctx ends.
func (c *PermissionCache) Load(ctx context.Context, userID int64, load func(context.Context) (map[int64]struct{}, error)) (map[int64]struct{}, error) {
	key, err := c.key(ctx, userID)
	if err != nil {
		metrics.PermissionCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("permission cache generation unavailable", zap.Error(err))
		return load(ctx)
	}

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		metrics.PermissionCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("permission cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var ids []int64
		if err := json.Unmarshal(raw, &ids); err == nil {
			metrics.PermissionCacheLookups.WithLabelValues("hit").Inc()
			return toSet(ids), nil
		}
		c.log.Warn("discarding undecodable permission cache entry", zap.String("key", key))
	}

	metrics.PermissionCacheLookups.WithLabelValues("miss").Inc()
	shared := context.WithoutCancel(ctx)
	results := c.group.DoChan(key, func() (any, error) {
		set, err := load(shared)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(fromSet(set))
		if err == nil {
			err = c.store.Set(shared, key, raw, c.ttl)
		}
		if err != nil {
			c.log.Warn("permission cache write failed", zap.String("key", key), zap.Error(err))
		}
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[int64]struct{}), nil
	}
}

// Invalidate retires every cached set by advancing the generation.
func (c *PermissionCache) Invalidate(ctx context.Context) error {
	c.local.Add(1)
	if _, _, err := c.store.IncrementWithTTL(ctx, generationKey, generationWindow); err != nil {
		return fmt.Errorf("authz: bump cache generation: %w", err)
	}
	return nil
}

func (c *PermissionCache) key(ctx context.Context, userID int64) (string, error) {
	var shared int64
	raw, ok, err := c.store.Get(ctx, generationKey)
	if err != nil {
		return "", err
	}
	if ok {
		shared, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", fmt.Errorf("authz: parse cache generation: %w", err)
		}
	}
	return fmt.Sprintf("%s:%d:%d:%d", cacheKeyPrefix, shared, c.local.Load(), userID), nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func fromSet(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
