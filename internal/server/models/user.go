// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
)

// User is an account that can log in. PasswordHash holds an encoded hash
// (never plaintext); FailedLoginAttempts is reset to 0 on every successful
// login and IsLocked blocks login regardless of credentials.
type User struct {
	ID                  string
	UserName            string
	Name                string
	PasswordHash        string
	Role                string
	Active              bool
	IsLocked            bool
	FailedLoginAttempts int
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == common.RoleAdmin
}

// ValidRole reports whether r is a role the users table accepts.
func ValidRole(r string) bool {
	return r == common.RoleAdmin || r == common.RoleUser
}
