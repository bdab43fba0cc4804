package models

// Permission is a catalog entry. (resource_type, action) is unique.
type Permission struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceType int    `gorm:"not null;uniqueIndex:uq_permission_resource_type_action,priority:1" json:"resource_type"`
	Action       string `gorm:"size:64;not null;uniqueIndex:uq_permission_resource_type_action,priority:2" json:"action"`
}

func (Permission) TableName() string {
	return "permission"
}
