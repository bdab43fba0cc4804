package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authzd/pkg/logger"
)

// DefaultGrantRetries bounds how often a grant is retried after losing an insert race.
const DefaultGrantRetries = 5

// Engine composes the permission catalog, role store, role assignments and
// the authorization ledger. It holds no durable state of its own: the Store
// is the single source of truth, and the optional PermissionCache is only an
// optimisation that every RBAC mutation invalidates.
type Engine struct {
	store        Store
	directory    Directory
	cache        *PermissionCache
	now          func() time.Time
	grantRetries int
	log          *zap.Logger
}

// Option customises the Engine.
type Option func(*Engine)

// WithClock overrides the clock used for ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithGrantRetries sets how many transactions a grant may use before giving up
// with ErrConflictRetryExhausted.
func WithGrantRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.grantRetries = n
		}
	}
}

// WithPermissionCache enables bounded-staleness caching of effective permissions.
func WithPermissionCache(cache *PermissionCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithLogger replaces the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine constructs an Engine over the given store and directory.
func NewEngine(store Store, directory Directory, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("authz: store is required")
	}
	if directory == nil {
		return nil, errors.New("authz: directory is required")
	}

	e := &Engine{
		store:        store,
		directory:    directory,
		now:          func() time.Time { return time.Now().UTC() },
		grantRetries: DefaultGrantRetries,
		log:          logger.WithModule("authz"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) validateUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUnknownUser
	}
	ok, err := e.directory.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("authz: lookup user %d: %w", userID, err)
	}
	if !ok {
		return ErrUnknownUser
	}
	return nil
}

func (e *Engine) validateClient(ctx context.Context, clientID int64) error {
	if clientID <= 0 {
		return ErrUnknownClient
	}
	ok, err := e.directory.ClientExists(ctx, clientID)
	if err != nil {
		return fmt.Errorf("authz: lookup client %d: %w", clientID, err)
	}
	if !ok {
		return ErrUnknownClient
	}
	return nil
}

func (e *Engine) validateScope(ctx context.Context, scopeID, clientID int64) error {
	if scopeID <= 0 {
		return ErrUnknownScope
	}
	ok, err := e.directory.ScopeExists(ctx, scopeID, clientID)
	if err != nil {
		return fmt.Errorf("authz: lookup scope %d: %w", scopeID, err)
	}
	if !ok {
		return ErrUnknownScope
	}
	return nil
}

func (e *Engine) validateGrantKey(ctx context.Context, key GrantKey) error {
	if err := e.validateUser(ctx, key.UserID); err != nil {
		return err
	}
	if err := e.validateClient(ctx, key.ClientID); err != nil {
		return err
	}
	return e.validateScope(ctx, key.ScopeID, key.ClientID)
}

// invalidate drops cached permission sets after an RBAC mutation has committed.
func (e *Engine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.log.Warn("permission cache invalidation failed", zap.Error(err))
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
