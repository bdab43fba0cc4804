package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/auditctx"
	"github.com/charlesng35/authzd/internal/authz"
)

func TestNewRBACService_RequiresEngine(t *testing.T) {
	_, err := NewRBACService(nil, nil)
	require.Error(t, err)
}

func TestRBACService_RoleLifecycleIsAudited(t *testing.T) {
	f := newServiceFixture(t)
	admin := bootstrapped(t, f)
	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    42,
		Source:    "api",
		IPAddress: "10.0.0.1",
		UserAgent: "test",
	})

	role, err := f.rbac.CreateRole(ctx, "support")
	require.NoError(t, err)

	perms, err := f.rbac.RolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	ids := make([]int64, 0, len(perms))
	for _, perm := range perms {
		if perm.ResourceType == authz.ResourceTypeUser {
			ids = append(ids, perm.ID)
		}
	}
	require.Len(t, ids, len(authz.DefaultActions))

	added, err := f.rbac.GrantPermissions(ctx, role.ID, ids)
	require.NoError(t, err)
	require.Equal(t, int64(len(ids)), added)

	changed, err := f.rbac.AssignRole(ctx, 43, role.ID)
	require.NoError(t, err)
	require.True(t, changed)

	decision, err := f.rbac.Check(ctx, 43, authz.ResourceTypeUser, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Allow, decision)

	removed, err := f.rbac.RevokePermissions(ctx, role.ID, []authz.ResourceType{authz.ResourceTypeUser})
	require.NoError(t, err)
	require.Len(t, removed, len(ids))

	decision, err = f.rbac.Check(ctx, 43, authz.ResourceTypeUser, authz.ActionRead)
	require.NoError(t, err)
	require.Equal(t, authz.Deny, decision)

	log := lastAudit(t, f.db, "role.permissions.revoke")
	require.Equal(t, auditResultSuccess, log.Result)
	require.NotNil(t, log.UserID)
	require.Equal(t, int64(42), *log.UserID)
	require.Equal(t, "10.0.0.1", log.IPAddress)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(log.Metadata), &metadata))
	require.Equal(t, "api", metadata["source"])
	require.Equal(t, []any{"user"}, metadata["resource_types"])
	require.Len(t, metadata["removed"], len(ids))

	changed, err = f.rbac.RevokeRole(ctx, 43, role.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, f.rbac.DeleteRole(ctx, role.ID))

	actions := make([]string, 0)
	for _, entry := range auditActions(t, f.db) {
		actions = append(actions, entry.Action)
	}
	require.Contains(t, actions, "catalog.bootstrap")
	require.Contains(t, actions, "role.create")
	require.Contains(t, actions, "role.permissions.grant")
	require.Contains(t, actions, "role.assign")
	require.Contains(t, actions, "role.unassign")
	require.Contains(t, actions, "role.delete")
}

func TestRBACService_FailuresAreAudited(t *testing.T) {
	f := newServiceFixture(t)
	bootstrapped(t, f)
	ctx := context.Background()

	_, err := f.rbac.CreateRole(ctx, authz.AdminRoleName)
	require.ErrorIs(t, err, authz.ErrDuplicateRoleName)

	log := lastAudit(t, f.db, "role.create")
	require.Equal(t, auditResultFailure, log.Result)
	require.Nil(t, log.UserID)

	_, err = f.rbac.DefinePermission(ctx, authz.ResourceTypeUser, authz.ActionRead)
	require.ErrorIs(t, err, authz.ErrDuplicatePermission)
	require.Equal(t, auditResultFailure, lastAudit(t, f.db, "permission.define").Result)
}

func TestRBACService_WorksWithoutAudit(t *testing.T) {
	f := newServiceFixture(t)
	rbac, err := NewRBACService(f.engine, nil)
	require.NoError(t, err)

	require.NoError(t, rbac.Bootstrap(context.Background()))
	perms, err := rbac.ListPermissions(context.Background())
	require.NoError(t, err)
	require.Len(t, perms, len(authz.ResourceTypes())*len(authz.DefaultActions))
	require.Empty(t, auditActions(t, f.db))
}
