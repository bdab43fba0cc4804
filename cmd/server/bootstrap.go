package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/authzd/internal/api"
	"github.com/charlesng35/authzd/internal/app"
	"github.com/charlesng35/authzd/internal/security"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	*app.Runtime
	Router *gin.Engine
}

// bootstrapRuntime initialises the database, engine, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	rt, err := app.NewRuntime(cfg)
	if err != nil {
		return nil, err
	}
	stack.Runtime = rt
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(cfg.Database.Driver))))

	if err := rt.Bootstrap(ctx); err != nil {
		return nil, err
	}

	logSecurityAudit(security.NewAuditor(rt.DB, cfg).Run(ctx), log)

	if report, err := rt.Cleaner.RunOnce(ctx); err != nil {
		log.Warn("maintenance startup cleanup failed", zap.Error(err))
	} else {
		log.Debug("maintenance startup cleanup", zap.Int64("audit_logs", report.AuditLogs), zap.Int64("cache_entries", report.CacheEntries))
	}

	stack.Router, err = api.NewRouter(rt.DB, rt.JWT, rt.Engine,
		api.WithMetricsEndpoint(cfg.Monitoring.Prometheus.Enabled),
		api.WithHealthChecks(rt.HealthChecks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func logSecurityAudit(result security.Result, log *zap.Logger) {
	for _, check := range result.Checks {
		fields := []zap.Field{zap.String("check", check.ID), zap.String("remediation", check.Remediation)}
		switch check.Status {
		case security.StatusFail:
			log.Error(check.Message, fields...)
		case security.StatusWarn:
			log.Warn(check.Message, fields...)
		}
	}
}

// Shutdown runs a final maintenance pass and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil || s.Runtime == nil {
		return
	}

	if s.Cleaner != nil {
		if _, err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if err := s.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
