package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/handlers"
	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/internal/services"
)

func registerRoleRoutes(api *gin.RouterGroup, rbac *services.RBACService) error {
	handler, err := handlers.NewRoleHandler(rbac)
	if err != nil {
		return err
	}

	canRead := middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionRead)
	canUpdate := middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionUpdate)

	roles := api.Group("/roles")
	{
		roles.GET("", canRead, handler.List)
		roles.POST("", middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionCreate), handler.Create)
		roles.DELETE("/:id", middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionDelete), handler.Delete)
		roles.GET("/:id/permissions", canRead, handler.Permissions)
		roles.POST("/:id/permissions", canUpdate, handler.GrantPermissions)
		roles.POST("/:id/permissions/revoke", canUpdate, handler.RevokePermissions)
	}

	users := api.Group("/users")
	{
		users.GET("/:id/roles", canRead, handler.UserRoles)
		users.POST("/:id/roles", canUpdate, handler.Assign)
		users.DELETE("/:id/roles/:roleID", canUpdate, handler.Unassign)
	}
	return nil
}
