package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/authz"
)

type stubChecker struct {
	allowed map[authz.ResourceType]authz.Action
	err     error
	calls   int
}

func (s *stubChecker) Check(_ context.Context, userID int64, resourceType authz.ResourceType, action authz.Action) (authz.Decision, error) {
	s.calls++
	if s.err != nil {
		return authz.Deny, s.err
	}
	if userID == 42 && s.allowed[resourceType] == action {
		return authz.Allow, nil
	}
	return authz.Deny, nil
}

func permissionRouter(checker PermissionChecker, userID int64) *gin.Engine {
	r := gin.New()
	r.GET("/roles",
		func(c *gin.Context) {
			if userID > 0 {
				c.Set(CtxUserIDKey, userID)
			}
			c.Next()
		},
		RequirePermission(checker, authz.ResourceTypePermission, authz.ActionRead),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return r
}

func serve(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := &stubChecker{allowed: map[authz.ResourceType]authz.Action{
		authz.ResourceTypePermission: authz.ActionRead,
	}}

	require.Equal(t, http.StatusUnauthorized, serve(permissionRouter(checker, 0)).Code)
	require.Zero(t, checker.calls)

	require.Equal(t, http.StatusOK, serve(permissionRouter(checker, 42)).Code)
	require.Equal(t, http.StatusForbidden, serve(permissionRouter(checker, 43)).Code)
	require.Equal(t, 2, checker.calls)
}

func TestRequirePermission_CheckerFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	checker := &stubChecker{err: errors.New("db down")}
	w := serve(permissionRouter(checker, 42))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "db down")
}
