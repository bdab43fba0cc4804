package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/services"
	"github.com/charlesng35/authzd/pkg/response"
)

type PermissionHandler struct {
	svc *services.RBACService
}

func NewPermissionHandler(svc *services.RBACService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("permission handler: rbac service is required")
	}
	return &PermissionHandler{svc: svc}, nil
}

type definePermissionRequest struct {
	ResourceType string `json:"resource_type" validate:"required"`
	Action       string `json:"action" validate:"required,action"`
}

type checkPermissionRequest struct {
	UserID       int64  `json:"user_id" validate:"omitempty,gt=0"`
	ResourceType string `json:"resource_type" validate:"required"`
	Action       string `json:"action" validate:"required,action"`
}

// GET /api/permissions
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.svc.ListPermissions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, perms)
}

// POST /api/permissions
func (h *PermissionHandler) Define(c *gin.Context) {
	var body definePermissionRequest
	if !bindAndValidate(c, &body) {
		return
	}
	types, err := parseResourceTypes([]string{body.ResourceType})
	if err != nil {
		response.Error(c, err)
		return
	}
	perm, err := h.svc.DefinePermission(requestContext(c), types[0], authz.Action(body.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	perms, err := h.svc.UserPermissions(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, perms)
}

// POST /api/permissions/check
func (h *PermissionHandler) Check(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var body checkPermissionRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.UserID > 0 {
		userID = body.UserID
	}
	types, err := parseResourceTypes([]string{body.ResourceType})
	if err != nil {
		response.Error(c, err)
		return
	}

	decision, err := h.svc.Check(requestContext(c), userID, types[0], authz.Action(body.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user_id":       userID,
		"resource_type": types[0].String(),
		"action":        body.Action,
		"allowed":       decision == authz.Allow,
		"decision":      decision.String(),
	})
}
