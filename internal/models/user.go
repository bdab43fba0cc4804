package models

import "time"

// User mirrors the rows owned by the user directory. The engine only reads it.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "user"
}

// Application is a registered OAuth client.
type Application struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Application) TableName() string {
	return "application"
}

// Scope is a grantable capability owned by one application.
type Scope struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID int64     `gorm:"not null;index" json:"application_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Scope) TableName() string {
	return "scope"
}
