package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/charlesng35/authzd/pkg/metrics"
)

// Check answers whether the user may perform action on resourceType. A
// (resourceType, action) pair missing from the catalog is always denied.
func (e *Engine) Check(ctx context.Context, userID int64, resourceType ResourceType, action Action) (Decision, error) {
	ctx = ensureContext(ctx)

	decision, err := e.check(ctx, userID, resourceType, action)
	result := decision.String()
	if err != nil {
		result = "error"
	}
	metrics.PermissionChecks.WithLabelValues(resourceType.String(), string(normaliseAction(action)), result).Inc()
	return decision, err
}

func (e *Engine) check(ctx context.Context, userID int64, resourceType ResourceType, action Action) (Decision, error) {
	perm, err := e.ResolvePermission(ctx, resourceType, action)
	if errors.Is(err, ErrPermissionNotFound) {
		e.log.Debug("check on unknown permission",
			zap.Int64("user_id", userID),
			zap.Stringer("resource_type", resourceType),
			zap.String("action", string(action)),
		)
		return Deny, nil
	}
	if err != nil {
		return Deny, err
	}

	granted, err := e.effectivePermissionSet(ctx, userID)
	if err != nil {
		return Deny, err
	}
	if _, ok := granted[perm.ID]; ok {
		return Allow, nil
	}
	return Deny, nil
}

// EffectivePermissions returns the ids of every permission reachable through
// the user's current roles, sorted ascending.
func (e *Engine) EffectivePermissions(ctx context.Context, userID int64) ([]int64, error) {
	ctx = ensureContext(ctx)

	set, err := e.effectivePermissionSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UserPermissions resolves the user's effective permission ids into catalog entries.
func (e *Engine) UserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	ctx = ensureContext(ctx)

	ids, err := e.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Permission{}, nil
	}

	var perms []Permission
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		perms, err = tx.PermissionsByIDs(ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authz: user permissions: %w", err)
	}
	sortPermissions(perms)
	return perms, nil
}

func (e *Engine) effectivePermissionSet(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	if e.cache != nil {
		return e.cache.Load(ctx, userID, func(ctx context.Context) (map[int64]struct{}, error) {
			return e.loadEffectivePermissions(ctx, userID)
		})
	}
	return e.loadEffectivePermissions(ctx, userID)
}

// loadEffectivePermissions unions role permissions inside one read
// transaction, so the result never mixes states from different commits.
func (e *Engine) loadEffectivePermissions(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{})
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		roles, err := tx.UserRoles(userID)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			return nil
		}
		roleIDs := make([]int64, 0, len(roles))
		for _, role := range roles {
			roleIDs = append(roleIDs, role.ID)
		}
		ids, err := tx.PermissionIDsForRoles(roleIDs)
		if err != nil {
			return err
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("authz: effective permissions: %w", err)
	}
	return set, nil
}
