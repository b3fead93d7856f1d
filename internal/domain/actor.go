package domain

import "strings"

// Role is the closed set of roles the identity provider may assert.
type Role string

const (
	RoleUser       Role = "user"
	RoleEngineer   Role = "engineer"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]struct{}{
	RoleUser:       {},
	RoleEngineer:   {},
	RoleSupervisor: {},
	RoleAdmin:      {},
}

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := validRoles[role]
	return role, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := validRoles[r]
	return ok
}

// Actor is the authenticated caller of every operation.
type Actor struct {
	ID   string
	Role Role
}

// HasRole reports whether the actor holds any of the given roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
