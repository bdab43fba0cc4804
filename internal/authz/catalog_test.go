package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/store/memstore"
)

func TestCatalog_BootstrapIsIdempotent(t *testing.T) {
	store := memstore.New()
	engine := newTestEngine(t, store)
	ctx := context.Background()

	require.NoError(t, engine.Bootstrap(ctx))
	perms, err := engine.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, perms, len(authz.DefaultCatalog()))

	admin := findRole(t, engine, authz.AdminRoleName)
	_, err = engine.RevokePermissions(ctx, admin.ID, []authz.ResourceType{authz.ResourceTypeContact})
	require.NoError(t, err)

	require.NoError(t, engine.Bootstrap(ctx))
	again, err := engine.ListPermissions(ctx)
	require.NoError(t, err)
	require.Equal(t, perms, again)

	roles, err := engine.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	held, err := engine.RolePermissions(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, held, len(perms)-len(authz.DefaultActions))
}

func TestCatalog_ListPermissionsOrder(t *testing.T) {
	engine, _ := bootstrappedEngine(t)

	perms, err := engine.ListPermissions(context.Background())
	require.NoError(t, err)
	for i := 1; i < len(perms); i++ {
		prev, cur := perms[i-1], perms[i]
		if prev.ResourceType == cur.ResourceType {
			require.Less(t, string(prev.Action), string(cur.Action))
			continue
		}
		require.Less(t, int(prev.ResourceType), int(cur.ResourceType))
	}
}

func TestCatalog_DefinePermission(t *testing.T) {
	engine, _ := bootstrappedEngine(t)
	ctx := context.Background()

	perm, err := engine.DefinePermission(ctx, authz.ResourceTypeUser, authz.Action(" Export "))
	require.NoError(t, err)
	require.Equal(t, authz.Action("export"), perm.Action)

	resolved, err := engine.ResolvePermission(ctx, authz.ResourceTypeUser, authz.Action("export"))
	require.NoError(t, err)
	require.Equal(t, perm, resolved)

	_, err = engine.DefinePermission(ctx, authz.ResourceTypeUser, authz.Action("export"))
	require.ErrorIs(t, err, authz.ErrDuplicatePermission)

	_, err = engine.DefinePermission(ctx, authz.ResourceType(99), authz.ActionRead)
	require.ErrorIs(t, err, authz.ErrInvalidInput)

	_, err = engine.ResolvePermission(ctx, authz.ResourceTypeUser, authz.Action("missing"))
	require.ErrorIs(t, err, authz.ErrPermissionNotFound)
}

func TestParseResourceType(t *testing.T) {
	rt, err := authz.ParseResourceType("scope")
	require.NoError(t, err)
	require.Equal(t, authz.ResourceTypeScope, rt)

	rt, err = authz.ParseResourceType("7")
	require.NoError(t, err)
	require.Equal(t, authz.ResourceTypeAuthorization, rt)

	_, err = authz.ParseResourceType("8")
	require.Error(t, err)

	_, err = authz.ParseResourceType("widget")
	require.Error(t, err)
}
