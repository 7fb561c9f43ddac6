package models

import "time"

// Role is a capability granted to a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is known
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserRole maps a user to a role
type UserRole struct {
	UserID    string    `db:"user_id"`
	Role      Role      `db:"role"`
	GrantedBy string    `db:"granted_by"`
	UpdatedAt time.Time `db:"updated_at"`
}
