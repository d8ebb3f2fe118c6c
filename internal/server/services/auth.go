package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/auth"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/lockout"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// LoginResult is the outcome of one login attempt. User is set only when
// the outcome is lockout.Authenticated.
type LoginResult struct {
	lockout.Result
	User *models.User
}

// AuthService checks credentials and drives the lockout state of accounts.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	policy      lockout.Policy
	timeout     time.Duration
	maxRetries  uint64
	logger      logging.Logger
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		policy:      lockout.DefaultPolicy(),
		timeout:     cfg.DBTimeout,
		maxRetries:  cfg.TxMaxRetries,
		logger:      logger.With("module", "auth"),
		now:         time.Now,
	}
}

// Login evaluates one attempt of userName with password.
//
// The user row is locked for the whole read-modify-write, so concurrent
// attempts on one account are serialised and none of them is lost. Bad
// credentials are not an error: they are reported through the result
// outcome. Errors mean the attempt could not be evaluated at all.
func (s *AuthService) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	userName = strings.TrimSpace(userName)
	if err := required("username", userName); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var result *LoginResult
	err := dbx.WithTxRetry(ctx, s.db, nil, s.maxRetries, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetUserByLoginForUpdate(ctx, userName)
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			user = nil
		}

		matches := false
		switch {
		case user == nil:
			s.hasher.DummyVerify(password)
		case user.IsLocked:
			// the outcome does not depend on the password
		default:
			matches = s.hasher.Verify(user.PasswordHash, password)
		}

		res := s.policy.Evaluate(user, matches, s.now())
		result = &LoginResult{Result: res}

		if !res.Persist {
			return nil
		}
		if err := repo.UpdateLoginState(ctx, user); err != nil {
			return err
		}

		if res.Outcome == lockout.Authenticated {
			if s.hasher.NeedsRehash(user.PasswordHash) {
				hash, err := s.hasher.Hash(password)
				if err != nil {
					return err
				}
				if err := repo.SetPassword(ctx, user.ID, hash); err != nil {
					return err
				}
				user.PasswordHash = hash
			}
			result.User = user
		}
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "login failed", "username", userName, "error", err)
		return nil, storageErr(err)
	}

	s.logger.Info(ctx, "login attempt",
		"username", userName,
		"outcome", result.Outcome.String(),
		"attempts", result.Attempts,
	)
	return result, nil
}
