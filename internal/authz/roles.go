package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/authzd/pkg/metrics"
)

// CreateRole registers a role under a unique name.
func (e *Engine) CreateRole(ctx context.Context, name string) (Role, error) {
	ctx = ensureContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, invalidInput("role name is required")
	}

	role := Role{Name: name}
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRoleByName(name); err == nil {
			return ErrDuplicateRoleName
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return tx.InsertRole(&role)
	})
	switch {
	case errors.Is(err, ErrDuplicateRoleName), errors.Is(err, ErrUniqueViolation):
		return Role{}, ErrDuplicateRoleName
	case err != nil:
		return Role{}, fmt.Errorf("authz: create role: %w", err)
	}

	e.log.Info("role created", zap.Int64("role_id", role.ID), zap.String("name", role.Name))
	return role, nil
}

// DeleteRole removes a role together with its permission and assignment rows.
func (e *Engine) DeleteRole(ctx context.Context, roleID int64) error {
	ctx = ensureContext(ctx)

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRole(roleID, true); err != nil {
			return err
		}
		return tx.DeleteRole(roleID)
	})
	if errors.Is(err, ErrRecordNotFound) {
		return ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("authz: delete role: %w", err)
	}

	e.invalidate(ctx)
	e.log.Info("role deleted", zap.Int64("role_id", roleID))
	return nil
}

// ListRoles returns every role ordered by id.
func (e *Engine) ListRoles(ctx context.Context) ([]Role, error) {
	ctx = ensureContext(ctx)

	var roles []Role
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		roles, err = tx.ListRoles()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authz: list roles: %w", err)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// RolePermissions returns the permissions held by a role.
func (e *Engine) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	ctx = ensureContext(ctx)

	var perms []Permission
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRole(roleID, false); err != nil {
			return err
		}
		var err error
		perms, err = tx.RolePermissions(roleID)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authz: role permissions: %w", err)
	}
	sortPermissions(perms)
	return perms, nil
}

// GrantPermissions adds catalog permissions to a role. Already-held
// permissions are skipped, so repeating the call is harmless.
func (e *Engine) GrantPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (int64, error) {
	ctx = ensureContext(ctx)
	ids := uniqueIDs(permissionIDs)
	if len(ids) == 0 {
		return 0, invalidInput("at least one permission id is required")
	}

	var added int64
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRole(roleID, true); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return ErrRoleNotFound
			}
			return err
		}
		perms, err := tx.PermissionsByIDs(ids)
		if err != nil {
			return err
		}
		if len(perms) != len(ids) {
			return ErrPermissionNotFound
		}
		added, err = tx.AddRolePermissions(roleID, ids)
		return err
	})
	switch {
	case errors.Is(err, ErrRoleNotFound), errors.Is(err, ErrPermissionNotFound):
		return 0, err
	case err != nil:
		return 0, fmt.Errorf("authz: grant permissions: %w", err)
	}

	if added > 0 {
		e.invalidate(ctx)
	}
	e.log.Info("role permissions granted", zap.Int64("role_id", roleID), zap.Int64("added", added))
	return added, nil
}

// RevokePermissions strips from a role every permission whose resource type is
// in filter. The role's permissions are snapshotted under a row lock, the
// matching subset is computed, and that subset is deleted in one batch, all in
// a single transaction. Other roles and resource types outside filter are not
// touched; running it again with the same filter removes nothing.
func (e *Engine) RevokePermissions(ctx context.Context, roleID int64, filter []ResourceType) ([]Permission, error) {
	ctx = ensureContext(ctx)

	wanted := make(map[ResourceType]struct{}, len(filter))
	for _, rt := range filter {
		wanted[rt] = struct{}{}
	}

	var removed []Permission
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRole(roleID, true); err != nil {
			return err
		}
		if len(wanted) == 0 {
			return nil
		}

		held, err := tx.RolePermissions(roleID)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(held))
		for _, perm := range held {
			if _, ok := wanted[perm.ResourceType]; ok {
				removed = append(removed, perm)
				ids = append(ids, perm.ID)
			}
		}
		if len(ids) == 0 {
			return nil
		}

		deleted, err := tx.DeleteRolePermissions(roleID, ids)
		if err != nil {
			return err
		}
		if deleted != int64(len(ids)) {
			return fmt.Errorf("deleted %d role permissions, expected %d", deleted, len(ids))
		}
		return nil
	})
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authz: revoke permissions: %w", err)
	}

	if len(removed) > 0 {
		metrics.RolePermissionsRevoked.Add(float64(len(removed)))
		e.invalidate(ctx)
	}
	sortPermissions(removed)
	e.log.Info("role permissions revoked",
		zap.Int64("role_id", roleID),
		zap.Int("resource_types", len(wanted)),
		zap.Int("removed", len(removed)),
	)
	return removed, nil
}

// AssignRole gives a role to a user. Assigning a held role is a no-op; the
// returned flag reports whether anything changed.
func (e *Engine) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	ctx = ensureContext(ctx)
	if err := e.validateUser(ctx, userID); err != nil {
		return false, err
	}

	var added bool
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindRole(roleID, false); err != nil {
			return err
		}
		var err error
		added, err = tx.AddUserRole(userID, roleID)
		return err
	})
	if errors.Is(err, ErrRecordNotFound) {
		return false, ErrRoleNotFound
	}
	if err != nil {
		return false, fmt.Errorf("authz: assign role: %w", err)
	}

	if added {
		e.invalidate(ctx)
		e.log.Info("role assigned", zap.Int64("user_id", userID), zap.Int64("role_id", roleID))
	}
	return added, nil
}

// RevokeRole removes a role from a user. Revoking an unheld role is a no-op.
func (e *Engine) RevokeRole(ctx context.Context, userID, roleID int64) (bool, error) {
	ctx = ensureContext(ctx)

	var removed bool
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		removed, err = tx.DeleteUserRole(userID, roleID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("authz: revoke role: %w", err)
	}

	if removed {
		e.invalidate(ctx)
		e.log.Info("role unassigned", zap.Int64("user_id", userID), zap.Int64("role_id", roleID))
	}
	return removed, nil
}

// UserRoles lists the roles currently assigned to a user.
func (e *Engine) UserRoles(ctx context.Context, userID int64) ([]Role, error) {
	ctx = ensureContext(ctx)

	var roles []Role
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		roles, err = tx.UserRoles(userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authz: user roles: %w", err)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func uniqueIDs(values []int64) []int64 {
	seen := make(map[int64]struct{}, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
