// Package gormstore implements authz.Store on a relational database through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/authzd/internal/authz"
	"github.com/charlesng35/authzd/internal/models"
)

// Store runs engine transactions on a *gorm.DB.
type Store struct {
	db *gorm.DB
}

// New returns a Store over db. The schema must already be migrated.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: db is required")
	}
	return &Store{db: db}, nil
}

// WithinTx opens a transaction bound to ctx. The transaction rolls back when
// fn fails, and database/sql rolls it back when ctx is cancelled first.
func (s *Store) WithinTx(ctx context.Context, fn func(tx authz.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&txn{db: db})
	})
	if isTransactionConflict(err) && !errors.Is(err, authz.ErrTransactionConflict) {
		return fmt.Errorf("%w: %v", authz.ErrTransactionConflict, err)
	}
	return err
}

type txn struct {
	db *gorm.DB
}

func (t *txn) locked(forUpdate bool) *gorm.DB {
	if forUpdate {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

func (t *txn) FindPermission(resourceType authz.ResourceType, action authz.Action) (authz.Permission, error) {
	var row models.Permission
	err := t.db.Where("resource_type = ? AND action = ?", int(resourceType), string(action)).Take(&row).Error
	if err != nil {
		return authz.Permission{}, translate(err)
	}
	return toPermission(row), nil
}

func (t *txn) PermissionsByIDs(ids []int64) ([]authz.Permission, error) {
	if len(ids) == 0 {
		return []authz.Permission{}, nil
	}
	var rows []models.Permission
	if err := t.db.Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toPermissions(rows), nil
}

func (t *txn) ListPermissions() ([]authz.Permission, error) {
	var rows []models.Permission
	if err := t.db.Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toPermissions(rows), nil
}

func (t *txn) InsertPermission(p *authz.Permission) error {
	row := models.Permission{ResourceType: int(p.ResourceType), Action: string(p.Action)}
	if err := t.db.Create(&row).Error; err != nil {
		return translate(err)
	}
	p.ID = row.ID
	return nil
}

func (t *txn) FindRole(id int64, forUpdate bool) (authz.Role, error) {
	var row models.Role
	if err := t.locked(forUpdate).Where("id = ?", id).Take(&row).Error; err != nil {
		return authz.Role{}, translate(err)
	}
	return toRole(row), nil
}

func (t *txn) FindRoleByName(name string) (authz.Role, error) {
	var row models.Role
	if err := t.db.Where("name = ?", name).Take(&row).Error; err != nil {
		return authz.Role{}, translate(err)
	}
	return toRole(row), nil
}

func (t *txn) ListRoles() ([]authz.Role, error) {
	var rows []models.Role
	if err := t.db.Order("id").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return toRoles(rows), nil
}

func (t *txn) InsertRole(r *authz.Role) error {
	row := models.Role{Name: r.Name}
	if err := t.db.Create(&row).Error; err != nil {
		return translate(err)
	}
	r.ID = row.ID
	return nil
}

func (t *txn) DeleteRole(id int64) error {
	if err := t.db.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
		return translate(err)
	}
	if err := t.db.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return translate(err)
	}
	result := t.db.Where("id = ?", id).Delete(&models.Role{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return authz.ErrRecordNotFound
	}
	return nil
}

func (t *txn) RolePermissions(roleID int64) ([]authz.Permission, error) {
	var rows []models.Permission
	err := t.db.Model(&models.Permission{}).
		Joins("JOIN role_permission ON role_permission.permission_id = permission.id").
		Where("role_permission.role_id = ?", roleID).
		Order("permission.id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return toPermissions(rows), nil
}

func (t *txn) AddRolePermissions(roleID int64, permissionIDs []int64) (int64, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	rows := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		rows = append(rows, models.RolePermission{RoleID: roleID, PermissionID: id})
	}
	result := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteRolePermissions issues a single DELETE for the whole set.
func (t *txn) DeleteRolePermissions(roleID int64, permissionIDs []int64) (int64, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	result := t.db.
		Where("role_id = ? AND permission_id IN ?", roleID, permissionIDs).
		Delete(&models.RolePermission{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func (t *txn) UserRoles(userID int64) ([]authz.Role, error) {
	var rows []models.Role
	err := t.db.Model(&models.Role{}).
		Joins("JOIN user_role ON user_role.role_id = role.id").
		Where("user_role.user_id = ?", userID).
		Order("role.id").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return toRoles(rows), nil
}

func (t *txn) AddUserRole(userID, roleID int64) (bool, error) {
	result := t.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (t *txn) DeleteUserRole(userID, roleID int64) (bool, error) {
	result := t.db.Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&models.UserRole{})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (t *txn) PermissionIDsForRoles(roleIDs []int64) ([]int64, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var ids []int64
	err := t.db.Model(&models.RolePermission{}).
		Where("role_id IN ?", roleIDs).
		Distinct().
		Pluck("permission_id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (t *txn) FindAuthorization(key authz.GrantKey, forUpdate bool) (authz.Authorization, error) {
	var row models.Authorization
	err := t.locked(forUpdate).
		Where("user_id = ? AND client_id = ? AND scope_id = ?", key.UserID, key.ClientID, key.ScopeID).
		Take(&row).Error
	if err != nil {
		return authz.Authorization{}, translate(err)
	}
	return toAuthorization(row), nil
}

func (t *txn) InsertAuthorization(a *authz.Authorization) error {
	row := fromAuthorization(*a)
	if err := t.db.Create(&row).Error; err != nil {
		return translate(err)
	}
	a.ID = row.ID
	return nil
}

func (t *txn) UpdateAuthorization(a *authz.Authorization) error {
	err := t.db.Model(&models.Authorization{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":       int(a.Status),
			"updated_time": a.UpdatedTime,
			"removed_time": a.RemovedTime,
		}).Error
	return translate(err)
}

func (t *txn) ListAuthorizations(userID int64, status authz.Status) ([]authz.Authorization, error) {
	var rows []models.Authorization
	err := t.db.Where("user_id = ? AND status = ?", userID, int(status)).
		Order("created_time ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]authz.Authorization, 0, len(rows))
	for _, row := range rows {
		out = append(out, toAuthorization(row))
	}
	return out, nil
}

func (t *txn) PurgeRevokedAuthorizations(cutoff time.Time) (int64, error) {
	result := t.db.
		Where("status = ? AND removed_time IS NOT NULL AND removed_time < ?", int(authz.StatusRevoked), cutoff).
		Delete(&models.Authorization{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}
