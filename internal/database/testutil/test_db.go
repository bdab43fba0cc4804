package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/database"
	"github.com/charlesng35/authzd/internal/models"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	users       []int64
	clients     []int64
	scopes      map[int64]int64
}

// WithAutoMigrate applies the schema after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithUsers inserts directory users with the given ids.
func WithUsers(ids ...int64) TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.users = append(cfg.users, ids...)
	}
}

// WithClient inserts an application and the scopes it owns.
func WithClient(clientID int64, scopeIDs ...int64) TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.clients = append(cfg.clients, clientID)
		if cfg.scopes == nil {
			cfg.scopes = make(map[int64]int64)
		}
		for _, id := range scopeIDs {
			cfg.scopes[id] = clientID
		}
	}
}

// MustOpenTestDB opens a private in-memory SQLite database, applying the
// requested schema and directory fixtures. It is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if cfg.autoMigrate {
		require.NoError(t, database.AutoMigrate(db))
	}
	for _, id := range cfg.users {
		require.NoError(t, db.Create(&models.User{ID: id, Name: fmt.Sprintf("user-%d", id)}).Error)
	}
	for _, id := range cfg.clients {
		require.NoError(t, db.Create(&models.Application{ID: id, Name: fmt.Sprintf("client-%d", id)}).Error)
	}
	for scopeID, clientID := range cfg.scopes {
		require.NoError(t, db.Create(&models.Scope{ID: scopeID, ApplicationID: clientID, Name: fmt.Sprintf("scope-%d", scopeID)}).Error)
	}
	return db
}
