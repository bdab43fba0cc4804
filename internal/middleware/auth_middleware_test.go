package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/auditctx"
	iauth "github.com/charlesng35/authzd/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: 42})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		userID, _ := UserID(c)
		actor, _ := auditctx.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"user_id":      userID,
			"actor_id":     actor.UserID,
			"actor_source": actor.Source,
			"actor_agent":  actor.UserAgent,
		})
	})

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	// Tampered token -> 401
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "authzctl/1.0")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.EqualValues(t, 42, payload["user_id"])
	require.EqualValues(t, 42, payload["actor_id"])
	require.Equal(t, AuditSourceAPI, payload["actor_source"])
	require.Equal(t, "authzctl/1.0", payload["actor_agent"])
}

func TestAuthMiddleware_RejectsForeignIssuer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuer, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret", Issuer: "other"})
	require.NoError(t, err)
	verifier, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret", Issuer: "authzd"})
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken(iauth.AccessTokenInput{UserID: 42})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/secure", Auth(verifier), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
