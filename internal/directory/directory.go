// Package directory answers existence questions about users, client
// applications and scopes stored in tables owned by other services.
package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/authzd/internal/models"
)

// Directory implements authz.Directory over the shared database.
type Directory struct {
	db *gorm.DB
}

// New constructs a Directory reading from db.
func New(db *gorm.DB) (*Directory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	return &Directory{db: db}, nil
}

func (d *Directory) UserExists(ctx context.Context, userID int64) (bool, error) {
	return d.exists(ctx, &models.User{}, "id = ?", userID)
}

func (d *Directory) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	return d.exists(ctx, &models.Application{}, "id = ?", clientID)
}

// ScopeExists reports whether scopeID exists and belongs to clientID.
func (d *Directory) ScopeExists(ctx context.Context, scopeID, clientID int64) (bool, error) {
	return d.exists(ctx, &models.Scope{}, "id = ? AND application_id = ?", scopeID, clientID)
}

func (d *Directory) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
