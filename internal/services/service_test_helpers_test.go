package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/database/testutil"
	"github.com/charlesng35/authzd/internal/directory"
	"github.com/charlesng35/authzd/internal/models"
	"github.com/charlesng35/authzd/internal/store/gormstore"
)

type serviceFixture struct {
	db      *gorm.DB
	engine  *authz.Engine
	audit   *AuditService
	rbac    *RBACService
	consent *ConsentService
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t,
		testutil.WithUsers(42, 43),
		testutil.WithClient(7, 3, 4),
	)

	store, err := gormstore.New(db)
	require.NoError(t, err)
	dir, err := directory.New(db)
	require.NoError(t, err)
	engine, err := authz.NewEngine(store, dir)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	rbac, err := NewRBACService(engine, audit)
	require.NoError(t, err)
	consent, err := NewConsentService(engine, audit)
	require.NoError(t, err)

	return serviceFixture{db: db, engine: engine, audit: audit, rbac: rbac, consent: consent}
}

func auditActions(t *testing.T, db *gorm.DB) []models.AuditLog {
	t.Helper()
	var logs []models.AuditLog
	require.NoError(t, db.Order("created_at ASC").Find(&logs).Error)
	return logs
}

func lastAudit(t *testing.T, db *gorm.DB, action string) models.AuditLog {
	t.Helper()
	var log models.AuditLog
	require.NoError(t, db.Where("action = ?", action).Order("created_at DESC").Take(&log).Error)
	return log
}

func bootstrapped(t *testing.T, f serviceFixture) authz.Role {
	t.Helper()
	require.NoError(t, f.rbac.Bootstrap(context.Background()))
	roles, err := f.rbac.ListRoles(context.Background())
	require.NoError(t, err)
	for _, role := range roles {
		if role.Name == authz.AdminRoleName {
			return role
		}
	}
	t.Fatalf("admin role not seeded")
	return authz.Role{}
}
