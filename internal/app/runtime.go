package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/app/maintenance"
	"github.com/charlesng35/authzd/internal/auditctx"
	iauth "github.com/charlesng35/authzd/internal/auth"
	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/cache"
	"github.com/charlesng35/authzd/internal/database"
	"github.com/charlesng35/authzd/internal/directory"
	"github.com/charlesng35/authzd/internal/monitoring"
	"github.com/charlesng35/authzd/internal/monitoring/checks"
	"github.com/charlesng35/authzd/internal/services"
	"github.com/charlesng35/authzd/internal/store/gormstore"
	"github.com/charlesng35/authzd/pkg/logger"
)

// Runtime bundles the long-lived dependencies shared by the server and the admin CLI.
type Runtime struct {
	Config  *Config
	DB      *gorm.DB
	JWT     *iauth.JWTService
	Engine  *authz.Engine
	Audit   *services.AuditService
	RBAC    *services.RBACService
	Consent *services.ConsentService
	Cleaner *maintenance.Cleaner

	// CacheStore backs the permission cache; nil when caching is disabled.
	CacheStore cache.Store
}

// NewRuntime opens and migrates the database and wires the engine and services.
func NewRuntime(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime: config is nil")
	}

	db, err := database.Open(cfg.Database.DatabaseOpenConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	rt := &Runtime{Config: cfg, DB: db}

	if err := rt.wire(); err != nil {
		return nil, multierr.Append(err, rt.Close())
	}
	return rt, nil
}

func (r *Runtime) wire() error {
	if err := database.AutoMigrate(r.DB); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}

	var err error
	r.JWT, err = iauth.NewJWTService(r.Config.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	store, err := gormstore.New(r.DB)
	if err != nil {
		return err
	}
	dir, err := directory.New(r.DB)
	if err != nil {
		return err
	}
	r.CacheStore = r.Config.Engine.CacheStore(r.DB)
	opts, err := r.Config.Engine.EngineOptions(r.CacheStore)
	if err != nil {
		return fmt.Errorf("configure permission cache: %w", err)
	}
	r.Engine, err = authz.NewEngine(store, dir, opts...)
	if err != nil {
		return fmt.Errorf("initialise engine: %w", err)
	}

	if r.Audit, err = services.NewAuditService(r.DB); err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}
	if r.RBAC, err = services.NewRBACService(r.Engine, r.Audit); err != nil {
		return err
	}
	if r.Consent, err = services.NewConsentService(r.Engine, r.Audit); err != nil {
		return err
	}

	r.Cleaner = maintenance.NewCleaner(r.Audit,
		maintenance.WithAuditRetentionDays(r.Config.Audit.RetentionDays),
		maintenance.WithCacheStore(cache.NewDatabaseStore(r.DB)),
	)
	return nil
}

// Bootstrap seeds the permission catalog and admin role, then grants the
// admin role to the configured users. It is safe to run on every start.
func (r *Runtime) Bootstrap(ctx context.Context) error {
	if !r.Config.Bootstrap.Enabled {
		return nil
	}
	ctx = auditctx.WithActor(ctx, auditctx.Actor{Source: "bootstrap"})

	if err := r.RBAC.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap catalog: %w", err)
	}
	if len(r.Config.Bootstrap.AdminUserIDs) == 0 {
		return nil
	}

	roles, err := r.RBAC.ListRoles(ctx)
	if err != nil {
		return err
	}
	var admin authz.Role
	for _, role := range roles {
		if role.Name == authz.AdminRoleName {
			admin = role
			break
		}
	}
	if admin.ID == 0 {
		return errors.New("bootstrap: admin role missing after seeding")
	}

	log := logger.WithModule("bootstrap")
	var errs error
	for _, userID := range r.Config.Bootstrap.AdminUserIDs {
		added, err := r.RBAC.AssignRole(ctx, userID, admin.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("assign admin role to user %d: %w", userID, err))
			continue
		}
		if added {
			log.Info("admin role granted", zap.Int64("user_id", userID))
		}
	}
	return errs
}

// HealthChecks returns the readiness probes for the runtime's optional
// dependencies. The database probe is registered by the router itself.
// Maintenance only runs on demand, so its probe reports failures, not staleness.
func (r *Runtime) HealthChecks() []monitoring.Check {
	return []monitoring.Check{
		checks.Cache(r.CacheStore),
		checks.Maintenance(r.Cleaner, 0),
	}
}

// Close releases the database handle.
func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return database.Close(r.DB)
}
