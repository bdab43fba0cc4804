package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/models"
)

func testRuntimeConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "authzd.sqlite"),
		},
		Auth:      AuthConfig{JWT: JWTSettings{Secret: "runtime-secret", Issuer: "authzd"}},
		Engine:    EngineConfig{GrantRetries: 3, Cache: CacheConfig{Enabled: true, Driver: "database"}},
		Audit:     AuditConfig{RetentionDays: 30},
		Bootstrap: BootstrapConfig{Enabled: true, AdminUserIDs: []int64{1}},
	}
}

func TestRuntime_BootstrapIsIdempotent(t *testing.T) {
	rt, err := NewRuntime(testRuntimeConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.NoError(t, rt.DB.Create(&models.User{ID: 1, Name: "root"}).Error)

	ctx := context.Background()
	require.NoError(t, rt.Bootstrap(ctx))
	require.NoError(t, rt.Bootstrap(ctx))

	perms, err := rt.Engine.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, len(authz.ResourceTypes())*len(authz.DefaultActions))

	decision, err := rt.Engine.Check(ctx, 1, authz.ResourceTypeAuthorization, authz.ActionDelete)
	require.NoError(t, err)
	require.Equal(t, authz.Allow, decision)

	var audits int64
	require.NoError(t, rt.DB.Model(&models.AuditLog{}).Where("action = ?", "role.assign").Count(&audits).Error)
	require.Equal(t, int64(2), audits)

	report, err := rt.Cleaner.RunOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, report.AuditLogs)
}

func TestRuntime_BootstrapReportsUnknownAdmin(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.Bootstrap.AdminUserIDs = []int64{404}

	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	err = rt.Bootstrap(context.Background())
	require.ErrorIs(t, err, authz.ErrUnknownUser)
	require.Contains(t, err.Error(), fmt.Sprintf("user %d", 404))
}

func TestRuntime_BootstrapDisabled(t *testing.T) {
	cfg := testRuntimeConfig(t)
	cfg.Bootstrap.Enabled = false

	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.NoError(t, rt.Bootstrap(context.Background()))
	perms, err := rt.Engine.ListPermissions(context.Background())
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestNewRuntime_RejectsNilConfig(t *testing.T) {
	_, err := NewRuntime(nil)
	require.Error(t, err)
}
