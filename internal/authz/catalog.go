package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultActions are defined for every resource type by the built-in catalog.
var DefaultActions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

// DefaultCatalog returns the built-in (resource type, action) definitions.
func DefaultCatalog() []Permission {
	perms := make([]Permission, 0, len(ResourceTypes())*len(DefaultActions))
	for _, rt := range ResourceTypes() {
		for _, action := range DefaultActions {
			perms = append(perms, Permission{ResourceType: rt, Action: action})
		}
	}
	return perms
}

func normaliseAction(action Action) Action {
	return Action(strings.ToLower(strings.TrimSpace(string(action))))
}

// ResolvePermission maps (resourceType, action) to its catalog entry.
func (e *Engine) ResolvePermission(ctx context.Context, resourceType ResourceType, action Action) (Permission, error) {
	ctx = ensureContext(ctx)
	action = normaliseAction(action)

	var perm Permission
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		found, err := tx.FindPermission(resourceType, action)
		if err != nil {
			return err
		}
		perm = found
		return nil
	})
	if errors.Is(err, ErrRecordNotFound) {
		return Permission{}, ErrPermissionNotFound
	}
	if err != nil {
		return Permission{}, fmt.Errorf("authz: resolve permission: %w", err)
	}
	return perm, nil
}

// DefinePermission adds a catalog entry. The (resource type, action) pair must be new.
func (e *Engine) DefinePermission(ctx context.Context, resourceType ResourceType, action Action) (Permission, error) {
	ctx = ensureContext(ctx)
	action = normaliseAction(action)
	if !resourceType.Valid() {
		return Permission{}, invalidInput(fmt.Sprintf("unknown resource type %d", int(resourceType)))
	}
	if action == "" {
		return Permission{}, invalidInput("action is required")
	}

	perm := Permission{ResourceType: resourceType, Action: action}
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.FindPermission(resourceType, action); err == nil {
			return ErrDuplicatePermission
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return tx.InsertPermission(&perm)
	})
	switch {
	case errors.Is(err, ErrDuplicatePermission), errors.Is(err, ErrUniqueViolation):
		return Permission{}, ErrDuplicatePermission
	case err != nil:
		return Permission{}, fmt.Errorf("authz: define permission: %w", err)
	}

	e.log.Info("permission defined",
		zap.Int64("permission_id", perm.ID),
		zap.Stringer("resource_type", perm.ResourceType),
		zap.String("action", string(perm.Action)),
	)
	return perm, nil
}

// ListPermissions returns the catalog ordered by resource type, then action.
func (e *Engine) ListPermissions(ctx context.Context) ([]Permission, error) {
	ctx = ensureContext(ctx)

	var perms []Permission
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		perms, err = tx.ListPermissions()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("authz: list permissions: %w", err)
	}
	sortPermissions(perms)
	return perms, nil
}

// Bootstrap seeds the built-in catalog and, when it does not exist yet, the
// admin role holding every catalog permission. An existing admin role is left
// untouched so deliberate narrowing survives restarts.
func (e *Engine) Bootstrap(ctx context.Context) error {
	ctx = ensureContext(ctx)

	var created int
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		for _, def := range DefaultCatalog() {
			_, err := tx.FindPermission(def.ResourceType, def.Action)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrRecordNotFound) {
				return err
			}
			perm := def
			if err := tx.InsertPermission(&perm); err != nil {
				return fmt.Errorf("insert %s:%s: %w", def.ResourceType, def.Action, err)
			}
			created++
		}

		if _, err := tx.FindRoleByName(AdminRoleName); err == nil {
			return nil
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		admin := Role{Name: AdminRoleName}
		if err := tx.InsertRole(&admin); err != nil {
			return fmt.Errorf("insert admin role: %w", err)
		}
		perms, err := tx.ListPermissions()
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(perms))
		for _, perm := range perms {
			ids = append(ids, perm.ID)
		}
		_, err = tx.AddRolePermissions(admin.ID, ids)
		return err
	})
	if err != nil {
		return fmt.Errorf("authz: bootstrap: %w", err)
	}

	if created > 0 {
		e.invalidate(ctx)
	}
	e.log.Info("catalog synchronised", zap.Int("created", created))
	return nil
}

func sortPermissions(perms []Permission) {
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].ResourceType != perms[j].ResourceType {
			return perms[i].ResourceType < perms[j].ResourceType
		}
		return perms[i].Action < perms[j].Action
	})
}
