package common

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "cadete_session"

// LockoutThreshold is the number of consecutive failed logins that locks an account.
const LockoutThreshold = 3

// User roles.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)
