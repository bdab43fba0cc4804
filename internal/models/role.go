package models

// Role groups permissions under a unique name.
type Role struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:128;not null;uniqueIndex:uq_role_name" json:"name"`
}

func (Role) TableName() string {
	return "role"
}

// RolePermission joins a role to a catalog permission.
type RolePermission struct {
	RoleID       int64 `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	PermissionID int64 `gorm:"primaryKey;autoIncrement:false;index" json:"permission_id"`
}

func (RolePermission) TableName() string {
	return "role_permission"
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	RoleID int64 `gorm:"primaryKey;autoIncrement:false;index" json:"role_id"`
}

func (UserRole) TableName() string {
	return "user_role"
}
