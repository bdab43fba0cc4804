package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authzd/internal/app"
	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/models"
)

const (
	testUserID   = 42
	testClientID = 7
	testScopeID  = 3
)

// newTestConfigDir writes a config pointing at a fresh sqlite file seeded with
// one user and one client owning one scope.
func newTestConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "authzd.sqlite")

	config := fmt.Sprintf(`database:
  driver: sqlite
  path: %s
auth:
  jwt:
    secret: cli-test-secret
engine:
  cache:
    driver: memory
bootstrap:
  enabled: true
`, filepath.ToSlash(dbPath))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	cfg, err := app.LoadConfig(dir)
	require.NoError(t, err)
	rt, err := app.NewRuntime(cfg)
	require.NoError(t, err)
	require.NoError(t, rt.DB.Create(&models.User{ID: testUserID, Name: "alice"}).Error)
	require.NoError(t, rt.DB.Create(&models.Application{ID: testClientID, Name: "app"}).Error)
	require.NoError(t, rt.DB.Create(&models.Scope{ID: testScopeID, ApplicationID: testClientID, Name: "email"}).Error)
	require.NoError(t, rt.Close())

	return dir
}

// run executes authzctl with the given arguments against dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, args...)
	require.NoError(t, err, "authzctl %s", strings.Join(args, " "))
	return out
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestCLI_RoleLifecycle(t *testing.T) {
	dir := newTestConfigDir(t)
	mustRun(t, dir, "maintenance", "bootstrap")

	role := decodeJSON[[]authz.Role](t, mustRun(t, dir, "-o", "json", "role", "create", "support"))
	require.Len(t, role, 1)
	roleID := fmt.Sprint(role[0].ID)

	perms := decodeJSON[[]authz.Permission](t, mustRun(t, dir, "-o", "json", "permission", "list"))
	var contactRead, contactDelete int64
	for _, p := range perms {
		if p.ResourceType == authz.ResourceTypeContact && p.Action == authz.ActionRead {
			contactRead = p.ID
		}
		if p.ResourceType == authz.ResourceTypeContact && p.Action == authz.ActionDelete {
			contactDelete = p.ID
		}
	}
	require.NotZero(t, contactRead)

	granted := decodeJSON[map[string]any](t, mustRun(t, dir, "-o", "json", "role", "grant", roleID, fmt.Sprint(contactRead), fmt.Sprint(contactDelete)))
	require.EqualValues(t, 2, granted["added"])

	_, err := run(t, dir, "check", "42", "contact", "read")
	require.ErrorIs(t, err, errDenied)

	require.Contains(t, mustRun(t, dir, "role", "assign", "42", roleID), "ok")
	require.Contains(t, mustRun(t, dir, "role", "assign", "42", roleID), "no change")
	require.Equal(t, "allow\n", mustRun(t, dir, "check", "42", "contact", "read"))

	removed := decodeJSON[[]authz.Permission](t, mustRun(t, dir, "-o", "json", "role", "revoke-permissions", roleID, "contact"))
	require.Len(t, removed, 2)

	out, err := run(t, dir, "check", "42", "contact", "read")
	require.ErrorIs(t, err, errDenied)
	require.Equal(t, "deny\n", out)

	mustRun(t, dir, "role", "delete", roleID)
	_, err = run(t, dir, "role", "delete", roleID)
	require.ErrorIs(t, err, authz.ErrRoleNotFound)

	audit := mustRun(t, dir, "audit", "list", "--action", "role.create")
	require.Contains(t, audit, "role.create")
}

func TestCLI_AuthorizationLedger(t *testing.T) {
	dir := newTestConfigDir(t)

	first := decodeJSON[[]authz.Authorization](t, mustRun(t, dir, "-o", "json", "grant", "42", "7", "3"))
	second := decodeJSON[[]authz.Authorization](t, mustRun(t, dir, "-o", "json", "grant", "42", "7", "3"))
	require.Equal(t, first[0].ID, second[0].ID)
	require.Equal(t, authz.StatusActive, second[0].Status)

	require.Equal(t, "true\n", mustRun(t, dir, "list", "42", "--authorized", "7,3"))

	revoked := decodeJSON[[]authz.Authorization](t, mustRun(t, dir, "-o", "json", "revoke", "42", "7", "3"))
	require.Equal(t, authz.StatusRevoked, revoked[0].Status)
	require.NotNil(t, revoked[0].RemovedTime)

	_, err := run(t, dir, "list", "42", "--authorized", "7,3")
	require.ErrorIs(t, err, errDenied)

	preview := decodeJSON[[]authz.ScopeDecision](t, mustRun(t, dir, "-o", "json", "preview", "42", "7", "3"))
	require.Len(t, preview, 1)
	require.Equal(t, authz.ScopeStateRevoked, preview[0].State)

	purged := decodeJSON[map[string]any](t, mustRun(t, dir, "-o", "json", "purge", "--older-than", "0s"))
	require.EqualValues(t, 1, purged["purged"])

	active := decodeJSON[[]authz.Authorization](t, mustRun(t, dir, "-o", "json", "list", "42"))
	require.Empty(t, active)

	_, err = run(t, dir, "revoke", "42", "7", "3")
	require.ErrorIs(t, err, authz.ErrAuthorizationNotFound)

	_, err = run(t, dir, "grant", "99", "7", "3")
	require.ErrorIs(t, err, authz.ErrUnknownUser)
}

func TestCLI_TokenAndMaintenance(t *testing.T) {
	dir := newTestConfigDir(t)

	token := strings.TrimSpace(mustRun(t, dir, "token", "42"))
	require.Len(t, strings.Split(token, "."), 3)

	report := decodeJSON[map[string]any](t, mustRun(t, dir, "-o", "json", "maintenance", "run"))
	require.Contains(t, report, "audit_logs")
	require.Contains(t, report, "cache_entries")
}

func TestCLI_InputValidation(t *testing.T) {
	dir := newTestConfigDir(t)

	_, err := run(t, dir, "grant", "abc", "7", "3")
	require.ErrorContains(t, err, "invalid user id")

	_, err = run(t, dir, "role", "revoke-permissions", "1", "spaceship")
	require.ErrorContains(t, err, "unknown resource type")

	_, err = run(t, dir, "-o", "yaml", "role", "list")
	require.ErrorContains(t, err, "unsupported output format")

	_, err = run(t, filepath.Join(dir, "missing"), "role", "list")
	require.ErrorContains(t, err, "does not exist")
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "authzctl version dev")
}

func TestCLI_Doctor(t *testing.T) {
	dir := newTestConfigDir(t)

	// cli-test-secret is too short and nobody holds admin yet.
	out, err := run(t, dir, "doctor")
	require.ErrorContains(t, err, "security audit failed")
	require.Contains(t, out, "jwt_secret_strength")
	require.Contains(t, out, "admin_role_assigned")
}
