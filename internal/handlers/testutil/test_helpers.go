package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/api"
	iauth "github.com/charlesng35/authzd/internal/auth"
	"github.com/charlesng35/authzd/internal/authz"
	sharedtestutil "github.com/charlesng35/authzd/internal/database/testutil"
	"github.com/charlesng35/authzd/internal/directory"
	"github.com/charlesng35/authzd/internal/store/gormstore"
	"github.com/charlesng35/authzd/pkg/response"
)

// Directory fixtures seeded into every Env.
const (
	AdminUserID   int64 = 42
	RegularUserID int64 = 43
	ClientID      int64 = 7
	ScopeID       int64 = 3
	OtherScopeID  int64 = 4
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Engine *authz.Engine
	Admin  authz.Role
}

// NewEnv provisions a fresh handler test environment. The catalog is
// bootstrapped and AdminUserID holds the admin role.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t,
		sharedtestutil.WithUsers(AdminUserID, RegularUserID),
		sharedtestutil.WithClient(ClientID, ScopeID, OtherScopeID),
	)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	store, err := gormstore.New(db)
	require.NoError(t, err)
	dir, err := directory.New(db)
	require.NoError(t, err)
	engine, err := authz.NewEngine(store, dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, engine.Bootstrap(ctx))

	var admin authz.Role
	roles, err := engine.ListRoles(ctx)
	require.NoError(t, err)
	for _, role := range roles {
		if role.Name == authz.AdminRoleName {
			admin = role
		}
	}
	require.NotZero(t, admin.ID)
	_, err = engine.AssignRole(ctx, AdminUserID, admin.ID)
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, engine)
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Engine: engine,
		Admin:  admin,
	}
}

// Token mints an access token for userID.
func (e *Env) Token(userID int64) string {
	e.T.Helper()
	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
