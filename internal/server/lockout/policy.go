// Package lockout decides the outcome of a single login attempt and applies
// the resulting change to the user's login state.
package lockout

import (
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

// Outcome of one login attempt.
type Outcome int

const (
	Authenticated Outcome = iota
	UserNotFound
	AccountLocked
	InvalidPassword
	AccountNowLocked
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case UserNotFound:
		return "user_not_found"
	case AccountLocked:
		return "account_locked"
	case InvalidPassword:
		return "invalid_password"
	case AccountNowLocked:
		return "account_now_locked"
	default:
		return "unknown"
	}
}

// Result is the decision for one attempt. Attempts is the failed-attempt
// count after the attempt and Threshold the lock limit, so callers can
// render "Attempts/Threshold". Persist is true when the user record was
// changed and must be saved.
type Result struct {
	Outcome   Outcome
	Attempts  int
	Threshold int
	Persist   bool
}

// Policy locks an account after Threshold consecutive wrong passwords.
type Policy struct {
	Threshold int
}

// DefaultPolicy locks after common.LockoutThreshold failures.
func DefaultPolicy() Policy {
	return Policy{Threshold: common.LockoutThreshold}
}

// Evaluate applies the ordered decision list to user, which is nil when no
// account has the submitted username. matches is the result of verifying
// the submitted password and is ignored for unknown or locked users.
//
// user is modified in place: a wrong password increments the counter and may
// lock the account; a correct one resets the counter and sets LastLogin.
func (p Policy) Evaluate(user *models.User, matches bool, now time.Time) Result {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = common.LockoutThreshold
	}

	switch {
	case user == nil:
		return Result{Outcome: UserNotFound, Threshold: threshold}

	case user.IsLocked:
		return Result{Outcome: AccountLocked, Attempts: user.FailedLoginAttempts, Threshold: threshold}

	case !matches:
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= threshold {
			user.IsLocked = true
			return Result{Outcome: AccountNowLocked, Attempts: user.FailedLoginAttempts, Threshold: threshold, Persist: true}
		}
		return Result{Outcome: InvalidPassword, Attempts: user.FailedLoginAttempts, Threshold: threshold, Persist: true}

	default:
		user.FailedLoginAttempts = 0
		t := now
		user.LastLogin = &t
		return Result{Outcome: Authenticated, Threshold: threshold, Persist: true}
	}
}
