package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authzd/internal/middleware"
	"github.com/charlesng35/authzd/pkg/errors"
	"github.com/charlesng35/authzd/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user or writes a 401.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}
