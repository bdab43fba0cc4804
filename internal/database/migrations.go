package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/models"
)

// AutoMigrate creates or updates the schema for the engine tables, the
// directory tables it reads, the audit trail and the cache table.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}
	return db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.Authorization{},
		&models.User{},
		&models.Application{},
		&models.Scope{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}
