// Package maintenance runs housekeeping jobs on demand: audit retention and
// expired cache entries. Nothing here is scheduled; callers decide when to run.
package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/authzd/internal/cache"
	"github.com/charlesng35/authzd/internal/services"
	"github.com/charlesng35/authzd/pkg/logger"
)

const defaultAuditRetentionDays = 90

// Cleaner coordinates housekeeping tasks.
type Cleaner struct {
	audit     *services.AuditService
	cache     *cache.DatabaseStore
	retention int
	log       *zap.Logger

	mu      sync.Mutex
	lastRun Status
}

// Status describes the most recent RunOnce call.
type Status struct {
	At     time.Time `json:"at"`
	Report Report    `json:"report"`
	Err    error     `json:"-"`
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithCacheStore enables purging of expired database cache rows.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = store
	}
}

// NewCleaner constructs a Cleaner. A nil audit service skips audit retention.
func NewCleaner(audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:     audit,
		retention: defaultAuditRetentionDays,
		log:       logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	return cleaner
}

// Report summarises one cleanup run.
type Report struct {
	AuditLogs    int64 `json:"audit_logs"`
	CacheEntries int64 `json:"cache_entries"`
}

// RunOnce executes every configured cleanup routine, continuing past failures
// and returning them combined.
func (c *Cleaner) RunOnce(ctx context.Context) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		report Report
		errs   error
	)

	if c.audit != nil && c.retention > 0 {
		n, err := c.audit.CleanupOlderThan(ctx, c.retention)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		report.AuditLogs = n
	}

	if c.cache != nil {
		n, err := c.cache.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		report.CacheEntries = n
	}

	c.mu.Lock()
	c.lastRun = Status{At: time.Now(), Report: report, Err: errs}
	c.mu.Unlock()

	c.log.Info("maintenance run finished",
		zap.Int64("audit_logs", report.AuditLogs),
		zap.Int64("cache_entries", report.CacheEntries),
		zap.Error(errs),
	)
	return report, errs
}

// LastRun reports the outcome of the previous RunOnce. ok is false before the
// first run.
func (c *Cleaner) LastRun() (status Status, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun, !c.lastRun.At.IsZero()
}
