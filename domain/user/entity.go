package user

import (
	"time"
)

// Role is the enumerated role carried by every user and every session token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User represents a registered account.
// PasswordHash is never serialized.
type User struct {
	ID           string    `gorm:"primaryKey;type:text" json:"_id"`
	Username     string    `gorm:"uniqueIndex;not null;type:text" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null;type:text" json:"email"`
	PasswordHash string    `gorm:"not null;type:text" json:"-"`
	Role         Role      `gorm:"not null;type:text;default:employee" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Ref is the resolved form of a user reference: the id plus the handle.
type Ref struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Claims represents the identity carried by a verified session token.
type Claims struct {
	UserID   string `json:"id"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
}
