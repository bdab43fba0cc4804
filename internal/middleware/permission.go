package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/pkg/errors"
	"github.com/charlesng35/authzd/pkg/response"
)

// PermissionChecker decides whether a user may perform action on resourceType.
type PermissionChecker interface {
	Check(ctx context.Context, userID int64, resourceType authz.ResourceType, action authz.Action) (authz.Decision, error)
}

// RequirePermission checks that the authenticated user holds (resourceType, action).
func RequirePermission(checker PermissionChecker, resourceType authz.ResourceType, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		decision, err := checker.Check(c.Request.Context(), userID, resourceType, action)
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if decision != authz.Allow {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
