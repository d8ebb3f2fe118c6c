package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/auth"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// sessionTokenSize is the number of random bytes in a session token.
const sessionTokenSize = 32

// IssuedSession is a newly created session and the cookie value that
// refers to it.
type IssuedSession struct {
	Session *models.Session
	Cookie  string
}

// SessionService issues, resolves and revokes login sessions.
//
// The cookie carries an HS256-signed JWT wrapping a random token. The store
// only knows the SHA-256 of that token.
type SessionService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	secret        []byte
	lifetime      time.Duration
	idle          time.Duration
	touchInterval time.Duration
	timeout       time.Duration
	logger        logging.Logger
	now           func() time.Time
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		db:            db,
		repomanager:   m,
		secret:        []byte(cfg.SecretKey),
		lifetime:      cfg.SessionLifetime,
		idle:          cfg.SessionIdleTimeout,
		touchInterval: cfg.SessionTouchInterval,
		timeout:       cfg.DBTimeout,
		logger:        logger.With("module", "sessions"),
		now:           time.Now,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue starts a session for user.
func (s *SessionService) Issue(ctx context.Context, user *models.User) (*IssuedSession, error) {
	if user == nil || user.ID == "" {
		return nil, common.ErrorUnauthorized
	}
	if !user.Active || user.IsLocked {
		return nil, common.ErrorUnauthorized
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	token, err := common.MakeRandHexString(sessionTokenSize)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := s.now()
	session := &models.Session{
		ID:         hashToken(token),
		UserID:     user.ID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.lifetime),
	}

	if err := s.repomanager.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, storageErr(fmt.Errorf("error creating session: %w", err))
	}

	cookie, err := auth.GenerateToken(token, s.secret, now, session.ExpiresAt)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "session issued", "user_id", user.ID)
	return &IssuedSession{Session: session, Cookie: cookie}, nil
}

// Resolve returns the user a cookie value belongs to. Any cookie that does
// not lead to a live session of an active, unlocked user yields
// common.ErrorUnauthorized. Expired sessions are deleted; sessions of locked
// or deactivated users are revoked.
//
// last_seen_at is refreshed only when it is older than the touch interval,
// so repeated resolves within that interval do not write.
func (s *SessionService) Resolve(ctx context.Context, cookie string) (*models.User, error) {
	token, err := auth.GetSessionTokenFromToken(cookie, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Sessions(s.db)
	id := hashToken(token)

	session, err := repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, storageErr(err)
	}

	now := s.now()
	if session.Expired(now, s.idle) {
		if err := repo.Delete(ctx, id); err != nil {
			s.logger.Warn(ctx, "expired session not deleted", "error", err)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrSessionExpired)
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = repo.Delete(ctx, id)
			return nil, common.ErrorUnauthorized
		}
		return nil, storageErr(err)
	}

	if user.IsLocked || !user.Active {
		if err := repo.DeleteByUser(ctx, user.ID); err != nil {
			return nil, storageErr(err)
		}
		s.logger.Info(ctx, "sessions revoked", "user_id", user.ID, "locked", user.IsLocked, "active", user.Active)
		return nil, common.ErrorUnauthorized
	}

	if now.Sub(session.LastSeenAt) >= s.touchInterval {
		if err := repo.Touch(ctx, id, now); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, storageErr(err)
		}
	}

	return user, nil
}

// Revoke ends the session a cookie value refers to. Unknown, malformed and
// expired cookies are ignored.
func (s *SessionService) Revoke(ctx context.Context, cookie string) error {
	token, err := auth.GetSessionTokenFromToken(cookie, s.secret)
	if err != nil {
		return nil
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repomanager.Sessions(s.db).Delete(ctx, hashToken(token)); err != nil {
		return storageErr(err)
	}
	return nil
}

// RevokeUser ends every session of userID.
func (s *SessionService) RevokeUser(ctx context.Context, userID string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return storageErr(s.repomanager.Sessions(s.db).DeleteByUser(ctx, userID))
}
