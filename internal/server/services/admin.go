package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/auth"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// DefaultUser is an account created by Seed.
type DefaultUser struct {
	UserName string
	Name     string
	Role     string
}

// DefaultUsers are the accounts every fresh installation starts with.
var DefaultUsers = []DefaultUser{
	{UserName: "cubix", Name: "Administrator", Role: common.RoleAdmin},
	{UserName: "cadete", Name: "Basic User", Role: common.RoleUser},
}

// AdminService provisions and repairs user accounts. It is used by the
// administration command and never exposed over HTTP.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	logger      logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, logger logging.Logger) *AdminService {
	return &AdminService{db: db, repomanager: m, hasher: hasher, logger: logger.With("module", "admin")}
}

// Seed creates each of DefaultUsers that does not exist yet, with the
// password found under its username in passwords. It returns the usernames
// it created.
func (s *AdminService) Seed(ctx context.Context, passwords map[string]string) ([]string, error) {
	var created []string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created = created[:0]
		repo := s.repomanager.Users(tx)

		var missing []DefaultUser
		for _, du := range DefaultUsers {
			_, err := repo.GetUserByLogin(ctx, du.UserName)
			if err == nil {
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			if passwords[du.UserName] == "" {
				return invalid("password", "for "+du.UserName+" is required")
			}
			missing = append(missing, du)
		}

		for _, du := range missing {
			if _, err := s.createUser(ctx, tx, du.UserName, du.Name, du.Role, passwords[du.UserName]); err != nil {
				return err
			}
			created = append(created, du.UserName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "seed finished", "created", created)
	return created, nil
}

// CreateUser adds an active, unlocked account.
func (s *AdminService) CreateUser(ctx context.Context, userName, name, role, password string) (*models.User, error) {
	var user *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.createUser(ctx, tx, userName, name, role, password)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "username", user.UserName, "role", user.Role)
	return user, nil
}

func (s *AdminService) createUser(ctx context.Context, tx dbx.DBTX, userName, name, role, password string) (*models.User, error) {
	userName = strings.TrimSpace(userName)
	if err := required("username", userName); err != nil {
		return nil, err
	}
	if !models.ValidRole(role) {
		return nil, invalid("role", "must be Admin or User")
	}
	if password == "" {
		return nil, invalid("password", "is required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(tx).Create(ctx, &models.User{
		UserName:     userName,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating user %s: %w", userName, err)
	}
	return user, nil
}

// SetPassword replaces the password of userName and ends all of their
// sessions.
func (s *AdminService) SetPassword(ctx context.Context, userName, password string) error {
	if password == "" {
		return invalid("password", "is required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetUserByLogin(ctx, userName)
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).SetPassword(ctx, user.ID, hash); err != nil {
			return err
		}
		return s.repomanager.Sessions(tx).DeleteByUser(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "username", userName)
	return nil
}

// Unlock clears the lock flag and the failed-attempt counter of userName.
func (s *AdminService) Unlock(ctx context.Context, userName string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Unlock(ctx, userName)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "user unlocked", "username", userName)
	return nil
}

// MigratePasswords hashes every stored password that is still plaintext.
// Hashes in any recognised format are left alone; they are upgraded on the
// next successful login instead.
func (s *AdminService) MigratePasswords(ctx context.Context) (migrated, skipped int, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		migrated, skipped = 0, 0
		repo := s.repomanager.Users(tx)

		list, err := repo.ListAll(ctx)
		if err != nil {
			return err
		}

		for _, u := range list {
			if auth.IsHashed(u.PasswordHash) {
				skipped++
				continue
			}

			hash, err := s.hasher.Hash(u.PasswordHash)
			if err != nil {
				return err
			}
			if err := repo.SetPassword(ctx, u.ID, hash); err != nil {
				return err
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.logger.Info(ctx, "password migration finished", "migrated", migrated, "skipped", skipped)
	return migrated, skipped, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).ListAll(ctx)
}
