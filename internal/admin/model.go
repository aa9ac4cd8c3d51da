package admin

import "time"

// Role is an administrator's privilege level.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// Admin is a console operator account, separate from player accounts.
type Admin struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput captures the data required to create an administrator.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
}
