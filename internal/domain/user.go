package domain

import "time"

// Role enumerates the fixed platform roles.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleTeamMember     Role = "TEAM_MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTeamMember:
		return true
	default:
		return false
	}
}

// User represents a platform account. Managed projects and assigned tasks
// are looked up by ID rather than stored on the user.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Caller identifies the authenticated principal invoking an operation.
type Caller struct {
	UserID string
	Role   Role
}

// Is reports whether the caller holds one of roles.
func (c Caller) Is(roles ...Role) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}
