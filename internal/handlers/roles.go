package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/services"
	"github.com/charlesng35/authzd/pkg/response"
)

type RoleHandler struct {
	svc *services.RBACService
}

func NewRoleHandler(svc *services.RBACService) (*RoleHandler, error) {
	if svc == nil {
		return nil, errors.New("role handler: rbac service is required")
	}
	return &RoleHandler{svc: svc}, nil
}

type createRoleRequest struct {
	Name string `json:"name" validate:"required,min=1,max=64"`
}

type grantPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,min=1,dive,gt=0"`
}

type revokePermissionsRequest struct {
	ResourceTypes []string `json:"resource_types" validate:"required,min=1"`
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, roles)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body createRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	role, err := h.svc.CreateRole(requestContext(c), body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	roleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRole(requestContext(c), roleID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/roles/:id/permissions
func (h *RoleHandler) Permissions(c *gin.Context) {
	roleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	perms, err := h.svc.RolePermissions(requestContext(c), roleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, perms)
}

// POST /api/roles/:id/permissions
func (h *RoleHandler) GrantPermissions(c *gin.Context) {
	roleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body grantPermissionsRequest
	if !bindAndValidate(c, &body) {
		return
	}
	added, err := h.svc.GrantPermissions(requestContext(c), roleID, body.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"added": added})
}

// POST /api/roles/:id/permissions/revoke
func (h *RoleHandler) RevokePermissions(c *gin.Context) {
	roleID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body revokePermissionsRequest
	if !bindAndValidate(c, &body) {
		return
	}
	types, err := parseResourceTypes(body.ResourceTypes)
	if err != nil {
		response.Error(c, err)
		return
	}
	removed, err := h.svc.RevokePermissions(requestContext(c), roleID, types)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, removed)
}

// GET /api/users/:id/roles
func (h *RoleHandler) UserRoles(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.svc.UserRoles(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, roles)
}

// POST /api/users/:id/roles
func (h *RoleHandler) Assign(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body assignRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	added, err := h.svc.AssignRole(requestContext(c), userID, body.RoleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": added})
}

// DELETE /api/users/:id/roles/:roleID
func (h *RoleHandler) Unassign(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	roleID, ok := parseIDParam(c, "roleID")
	if !ok {
		return
	}
	removed, err := h.svc.RevokeRole(requestContext(c), userID, roleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}
