package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

// RedisRepository keeps each session in a hash at session:<id> that expires
// after the idle timeout or at the absolute expiry, whichever comes first.
// The ids of a user's sessions are tracked in the set user_sessions:<user id>.
type RedisRepository struct {
	rdb  redis.UniversalClient
	idle time.Duration
	now  func() time.Time
}

func NewRedisRepository(rdb redis.UniversalClient, idle time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, idle: idle, now: time.Now}
}

func sessionKey(id string) string     { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }

func (r *RedisRepository) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(r.now())
	if r.idle > 0 && r.idle < ttl {
		ttl = r.idle
	}
	return ttl
}

func (r *RedisRepository) Create(ctx context.Context, s *models.Session) error {
	ttl := r.ttl(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, sessionKey(s.ID),
			"user_id", s.UserID,
			"created_at", s.CreatedAt.UnixNano(),
			"last_seen_at", s.LastSeenAt.UnixNano(),
			"expires_at", s.ExpiresAt.UnixNano(),
		)
		p.Expire(ctx, sessionKey(s.ID), ttl)
		p.SAdd(ctx, userSessionsKey(s.UserID), s.ID)
		p.ExpireAt(ctx, userSessionsKey(s.UserID), s.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

func (r *RedisRepository) Find(ctx context.Context, id string) (*models.Session, error) {
	var v struct {
		UserID     string `redis:"user_id"`
		CreatedAt  int64  `redis:"created_at"`
		LastSeenAt int64  `redis:"last_seen_at"`
		ExpiresAt  int64  `redis:"expires_at"`
	}

	cmd := r.rdb.HGetAll(ctx, sessionKey(id))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return nil, common.ErrorNotFound
	}
	if err := cmd.Scan(&v); err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	return &models.Session{
		ID:         id,
		UserID:     v.UserID,
		CreatedAt:  time.Unix(0, v.CreatedAt).UTC(),
		LastSeenAt: time.Unix(0, v.LastSeenAt).UTC(),
		ExpiresAt:  time.Unix(0, v.ExpiresAt).UTC(),
	}, nil
}

// touchScript refreshes a session hash only while it still exists, so a key
// that expired after the caller read it is not recreated without user_id.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "last_seen_at", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// Touch refreshes last_seen_at and pushes the idle expiry forward, never past
// the absolute expiry.
func (r *RedisRepository) Touch(ctx context.Context, id string, lastSeen time.Time) error {
	expires, err := r.rdb.HGet(ctx, sessionKey(id), "expires_at").Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("redis error: %w", err)
	}

	ttl := r.ttl(time.Unix(0, expires))
	if ttl <= 0 {
		return r.Delete(ctx, id)
	}

	touched, err := touchScript.Run(ctx, r.rdb, []string{sessionKey(id)}, lastSeen.UnixNano(), ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if touched == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	userID, err := r.rdb.HGet(ctx, sessionKey(id), "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis error: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(id))
		if userID != "" {
			p.SRem(ctx, userSessionsKey(userID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := r.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}
