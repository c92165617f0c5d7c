package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     *string   `gorm:"size:32"                  json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	RefreshToken *string   `json:"-"`
	Avatar       *string   `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}

type Contact struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"-"`
	FirstName string    `gorm:"not null"                 json:"first_name"`
	LastName  string    `gorm:"not null"                 json:"last_name"`
	Email     string    `gorm:"not null"                 json:"email"`
	Phone     string    `gorm:"not null"                 json:"phone"`
	Birthday  time.Time `gorm:"not null"                 json:"birthday"`
	Extra     *string   `json:"extra"`
	CreatedAt time.Time `json:"created_at"`
}
