package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/handlers"
	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/internal/services"
)

func registerAuditRoutes(api *gin.RouterGroup, audit *services.AuditService, checker middleware.PermissionChecker) error {
	handler, err := handlers.NewAuditHandler(audit)
	if err != nil {
		return err
	}
	api.GET("/audit", middleware.RequirePermission(checker, authz.ResourceTypePermission, authz.ActionRead), handler.List)
	return nil
}
