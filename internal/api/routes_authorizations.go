package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/handlers"
	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/internal/services"
)

func registerAuthorizationRoutes(api *gin.RouterGroup, consent *services.ConsentService, checker middleware.PermissionChecker) error {
	handler, err := handlers.NewAuthorizationHandler(consent)
	if err != nil {
		return err
	}

	auths := api.Group("/authorizations")
	{
		auths.GET("", handler.ListMine)
		auths.POST("", handler.Grant)
		auths.POST("/preview", handler.Preview)
		auths.POST("/purge", middleware.RequirePermission(checker, authz.ResourceTypeAuthorization, authz.ActionDelete), handler.Purge)
		auths.GET("/:clientID/:scopeID", handler.Get)
		auths.DELETE("/:clientID/:scopeID", handler.Revoke)
	}
	api.GET("/users/:id/authorizations", middleware.RequirePermission(checker, authz.ResourceTypeAuthorization, authz.ActionRead), handler.ListForUser)
	return nil
}
