package authz

import (
	"context"
	"time"
)

// Store is the relational storage the engine runs on. Every engine call opens
// exactly one transaction per attempt; when fn returns an error or the context
// is cancelled, nothing fn did is visible afterwards.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the statements the engine needs inside a transaction. Lookups
// return ErrRecordNotFound when nothing matches; inserts that would break a
// unique key return ErrUniqueViolation, and transactions the database aborts
// to resolve lock contention return ErrTransactionConflict. Methods taking forUpdate lock the row
// until the transaction ends so calls on the same key serialise.
type Tx interface {
	FindPermission(resourceType ResourceType, action Action) (Permission, error)
	PermissionsByIDs(ids []int64) ([]Permission, error)
	ListPermissions() ([]Permission, error)
	InsertPermission(p *Permission) error

	FindRole(id int64, forUpdate bool) (Role, error)
	FindRoleByName(name string) (Role, error)
	ListRoles() ([]Role, error)
	InsertRole(r *Role) error
	// DeleteRole removes the role together with its role_permission and user_role rows.
	DeleteRole(id int64) error

	RolePermissions(roleID int64) ([]Permission, error)
	// AddRolePermissions inserts the missing (role, permission) pairs and skips existing ones.
	AddRolePermissions(roleID int64, permissionIDs []int64) (int64, error)
	// DeleteRolePermissions removes the given pairs in one statement.
	DeleteRolePermissions(roleID int64, permissionIDs []int64) (int64, error)

	UserRoles(userID int64) ([]Role, error)
	// AddUserRole reports whether a new assignment row was written.
	AddUserRole(userID, roleID int64) (bool, error)
	DeleteUserRole(userID, roleID int64) (bool, error)
	PermissionIDsForRoles(roleIDs []int64) ([]int64, error)

	FindAuthorization(key GrantKey, forUpdate bool) (Authorization, error)
	InsertAuthorization(a *Authorization) error
	UpdateAuthorization(a *Authorization) error
	// ListAuthorizations returns the user's rows in the given status ordered by created_time, then id.
	ListAuthorizations(userID int64, status Status) ([]Authorization, error)
	// PurgeRevokedAuthorizations physically deletes revoked rows whose removed_time is before cutoff.
	PurgeRevokedAuthorizations(cutoff time.Time) (int64, error)
}

// Directory answers existence questions about entities owned by other systems.
type Directory interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	ClientExists(ctx context.Context, clientID int64) (bool, error)
	// ScopeExists reports whether scopeID exists and belongs to clientID.
	ScopeExists(ctx context.Context, scopeID, clientID int64) (bool, error)
}
