package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/authzd/internal/auth"
	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/internal/monitoring"
	"github.com/charlesng35/authzd/internal/monitoring/checks"
	"github.com/charlesng35/authzd/internal/services"
)

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	metrics bool
	checks  []monitoring.Check
}

// WithMetricsEndpoint toggles the Prometheus scrape endpoint at /metrics.
func WithMetricsEndpoint(enabled bool) RouterOption {
	return func(o *routerOptions) {
		o.metrics = enabled
	}
}

// WithHealthChecks adds readiness probes to /health beside the database ping.
func WithHealthChecks(probes ...monitoring.Check) RouterOption {
	return func(o *routerOptions) {
		o.checks = append(o.checks, probes...)
	}
}

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, engine *authz.Engine, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if engine == nil {
		return nil, fmt.Errorf("authorization engine must be provided")
	}

	options := routerOptions{metrics: true}
	for _, opt := range opts {
		opt(&options)
	}

	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	rbac, err := services.NewRBACService(engine, audit)
	if err != nil {
		return nil, err
	}
	consent, err := services.NewConsentService(engine, audit)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	health := monitoring.NewHealthManager(checks.Database(db))
	for _, check := range options.checks {
		health.Register(check)
	}
	registerHealthRoutes(r, health)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	if err := registerPermissionRoutes(api, rbac); err != nil {
		return nil, err
	}
	if err := registerRoleRoutes(api, rbac); err != nil {
		return nil, err
	}
	if err := registerAuthorizationRoutes(api, consent, rbac); err != nil {
		return nil, err
	}
	if err := registerAuditRoutes(api, audit, rbac); err != nil {
		return nil, err
	}

	if options.metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
