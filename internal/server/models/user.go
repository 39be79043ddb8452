package models

import "time"

// Role is the closed set of account roles. Privileged roles are excluded
// from recipient listings.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

type User struct {
	ID               int64
	Username         string
	Email            string
	PasswordHash     string
	OrganizationName string
	Role             Role
	Verified         bool
	Enabled          bool
	CreatedAt        time.Time
}

// DisplayName prefers the organization name when one is set, falling back
// to the username. Used in notification emails and recipient listings.
func (u *User) DisplayName() string {
	if u.OrganizationName != "" {
		return u.OrganizationName
	}
	return u.Username
}
