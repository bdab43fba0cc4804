package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/charlesng35/authzd/pkg/errors"
	"github.com/charlesng35/authzd/pkg/logger"
	"github.com/charlesng35/authzd/pkg/response"
)

// ErrRouteNotFound is returned for requests that match no route.
var ErrRouteNotFound = apperrors.New("ROUTE_NOT_FOUND", "Route not found", http.StatusNotFound)

// Recovery converts panics into a 500 response. The panic value and stack are
// logged with the acting user, never returned to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := []zap.Field{
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("route", c.FullPath()),
					zap.Any("panic", r),
					zap.Stack("stack"),
				}
				logger.WithModule("http").Error("panic recovered", append(fields, actorFields(c)...)...)

				if c.Writer.Written() {
					c.Abort()
					return
				}
				internal := apperrors.ErrInternalServer
				c.AbortWithStatusJSON(internal.StatusCode, response.Response{
					Success: false,
					Error:   &response.ErrorInfo{Code: internal.Code, Message: internal.Message},
				})
			}
		}()
		c.Next()
	}
}

// NotFoundHandler answers unknown routes with the standard error envelope.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, ErrRouteNotFound.WithInternal(fmt.Errorf("%s %s", c.Request.Method, c.Request.URL.Path)))
}
