package models

import (
	"time"
)

// Role identifies what a user is allowed to do. The set is closed; anything
// else is rejected at registration.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is a member of the closed role set.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"` // bcrypt hash, never sent to clients
	Role      Role      `json:"role" db:"role"`
	Name      string    `json:"name" db:"name"`
	Grade     *string   `json:"grade,omitempty" db:"grade"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	PhotoURL  *string   `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
