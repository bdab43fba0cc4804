package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/handlers"
	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/internal/services"
)

func registerPermissionRoutes(api *gin.RouterGroup, rbac *services.RBACService) error {
	handler, err := handlers.NewPermissionHandler(rbac)
	if err != nil {
		return err
	}

	perms := api.Group("/permissions")
	{
		perms.GET("", middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionRead), handler.List)
		perms.POST("", middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionCreate), handler.Define)
		perms.GET("/my", handler.MyPermissions)
		perms.POST("/check", middleware.RequirePermission(rbac, authz.ResourceTypePermission, authz.ActionRead), handler.Check)
	}
	return nil
}
