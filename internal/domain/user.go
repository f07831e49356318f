package domain

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RolePIC    Role = "PIC"
	RoleClient Role = "CLIENT"
)

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePIC, RoleClient:
		return true
	}
	return false
}

// User identifies a participant. Immutable within the core; the role
// determines the capability set and is never inferred dynamically.
type User struct {
	ID     string
	Name   string
	Email  string
	Role   Role
	Phone  string // optional contact handle for the messaging collaborator
	Avatar string
}
