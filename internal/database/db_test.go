package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesEngineTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []string{"permission", "role", "role_permission", "user_role", "authorization", "audit_log", "cache_entry"} {
		require.True(t, migrator.HasTable(table), "expected table %s", table)
	}
	require.True(t, migrator.HasIndex(&models.Permission{}, "uq_permission_resource_type_action"))
	require.True(t, migrator.HasIndex(&models.Role{}, "uq_role_name"))
	require.True(t, migrator.HasIndex(&models.Authorization{}, "uq_authorization_user_client_scope"))
	require.True(t, migrator.HasColumn(&models.Authorization{}, "created_time"))
	require.True(t, migrator.HasColumn(&models.Authorization{}, "removed_time"))

	// Re-running against an existing schema is a no-op.
	require.NoError(t, AutoMigrate(db))
}

func TestUniqueViolationIsTranslated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.Role{Name: "admin"}).Error)
	err := db.Create(&models.Role{Name: "admin"}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}
