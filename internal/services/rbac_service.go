package services

import (
	"context"
	"errors"

	"github.com/charlesng35/authzd/internal/authz"
)

// RBACService exposes catalog, role and assignment management and records
// every mutation in the audit trail.
type RBACService struct {
	engine *authz.Engine
	audit  *AuditService
}

// NewRBACService wires the engine with an optional audit service.
func NewRBACService(engine *authz.Engine, audit *AuditService) (*RBACService, error) {
	if engine == nil {
		return nil, errors.New("rbac service: engine is required")
	}
	return &RBACService{engine: engine, audit: audit}, nil
}

func (s *RBACService) Check(ctx context.Context, userID int64, resourceType authz.ResourceType, action authz.Action) (authz.Decision, error) {
	return s.engine.Check(ensureContext(ctx), userID, resourceType, action)
}

func (s *RBACService) ListPermissions(ctx context.Context) ([]authz.Permission, error) {
	return s.engine.ListPermissions(ensureContext(ctx))
}

func (s *RBACService) UserPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	return s.engine.UserPermissions(ensureContext(ctx), userID)
}

func (s *RBACService) DefinePermission(ctx context.Context, resourceType authz.ResourceType, action authz.Action) (authz.Permission, error) {
	ctx = ensureContext(ctx)
	perm, err := s.engine.DefinePermission(ctx, resourceType, action)
	recordAudit(s.audit, ctx, "permission.define", "permission", err, map[string]any{
		"resource_type": resourceType.String(),
		"action":        string(action),
		"permission_id": perm.ID,
	})
	return perm, err
}

// Bootstrap seeds the catalog and admin role.
func (s *RBACService) Bootstrap(ctx context.Context) error {
	ctx = ensureContext(ctx)
	err := s.engine.Bootstrap(ctx)
	recordAudit(s.audit, ctx, "catalog.bootstrap", "permission", err, nil)
	return err
}

func (s *RBACService) ListRoles(ctx context.Context) ([]authz.Role, error) {
	return s.engine.ListRoles(ensureContext(ctx))
}

func (s *RBACService) CreateRole(ctx context.Context, name string) (authz.Role, error) {
	ctx = ensureContext(ctx)
	role, err := s.engine.CreateRole(ctx, name)
	recordAudit(s.audit, ctx, "role.create", "role", err, map[string]any{
		"name":    name,
		"role_id": role.ID,
	})
	return role, err
}

func (s *RBACService) DeleteRole(ctx context.Context, roleID int64) error {
	ctx = ensureContext(ctx)
	err := s.engine.DeleteRole(ctx, roleID)
	recordAudit(s.audit, ctx, "role.delete", "role", err, map[string]any{"role_id": roleID})
	return err
}

func (s *RBACService) RolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error) {
	return s.engine.RolePermissions(ensureContext(ctx), roleID)
}

func (s *RBACService) GrantPermissions(ctx context.Context, roleID int64, permissionIDs []int64) (int64, error) {
	ctx = ensureContext(ctx)
	added, err := s.engine.GrantPermissions(ctx, roleID, permissionIDs)
	recordAudit(s.audit, ctx, "role.permissions.grant", "role", err, map[string]any{
		"role_id":        roleID,
		"permission_ids": permissionIDs,
		"added":          added,
	})
	return added, err
}

// RevokePermissions strips every permission of the given resource types from the role.
func (s *RBACService) RevokePermissions(ctx context.Context, roleID int64, resourceTypes []authz.ResourceType) ([]authz.Permission, error) {
	ctx = ensureContext(ctx)
	removed, err := s.engine.RevokePermissions(ctx, roleID, resourceTypes)

	names := make([]string, 0, len(resourceTypes))
	for _, rt := range resourceTypes {
		names = append(names, rt.String())
	}
	ids := make([]int64, 0, len(removed))
	for _, perm := range removed {
		ids = append(ids, perm.ID)
	}
	recordAudit(s.audit, ctx, "role.permissions.revoke", "role", err, map[string]any{
		"role_id":        roleID,
		"resource_types": names,
		"removed":        ids,
	})
	return removed, err
}

func (s *RBACService) UserRoles(ctx context.Context, userID int64) ([]authz.Role, error) {
	return s.engine.UserRoles(ensureContext(ctx), userID)
}

func (s *RBACService) AssignRole(ctx context.Context, userID, roleID int64) (bool, error) {
	ctx = ensureContext(ctx)
	added, err := s.engine.AssignRole(ctx, userID, roleID)
	recordAudit(s.audit, ctx, "role.assign", "user", err, map[string]any{
		"user_id": userID,
		"role_id": roleID,
		"changed": added,
	})
	return added, err
}

func (s *RBACService) RevokeRole(ctx context.Context, userID, roleID int64) (bool, error) {
	ctx = ensureContext(ctx)
	removed, err := s.engine.RevokeRole(ctx, userID, roleID)
	recordAudit(s.audit, ctx, "role.unassign", "user", err, map[string]any{
		"user_id": userID,
		"role_id": roleID,
		"changed": removed,
	})
	return removed, err
}
