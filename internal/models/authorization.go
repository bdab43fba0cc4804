package models

import "time"

// Authorization is one consent ledger row, unique per (user, client, scope).
// Status 0 is active and 1 revoked; other values are preserved as stored.
type Authorization struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64      `gorm:"not null;uniqueIndex:uq_authorization_user_client_scope,priority:1" json:"user_id"`
	ClientID    int64      `gorm:"not null;uniqueIndex:uq_authorization_user_client_scope,priority:2" json:"client_id"`
	ScopeID     int64      `gorm:"not null;uniqueIndex:uq_authorization_user_client_scope,priority:3" json:"scope_id"`
	CreatedTime time.Time  `gorm:"column:created_time;not null" json:"created_time"`
	UpdatedTime *time.Time `gorm:"column:updated_time" json:"updated_time,omitempty"`
	RemovedTime *time.Time `gorm:"column:removed_time;index" json:"removed_time,omitempty"`
	Status      int        `gorm:"not null" json:"status"`
}

func (Authorization) TableName() string {
	return "authorization"
}
