package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/httpserver"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// Storage holds the database handles shared by the server and the admin
// command.
type Storage struct {
	DB      *sql.DB
	Redis   *redis.Client
	Manager *repomanager.PostgresRepositoryManager
}

// OpenStorage connects to PostgreSQL through the pgx stdlib driver, and to
// Redis when it is the session backend, then applies pending migrations.
func OpenStorage(ctx context.Context, c *config.Config) (*Storage, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Storage{DB: db}

	pingCtx, cancel := context.WithTimeout(ctx, c.DBTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var opts []repomanager.Option
	if c.SessionBackend == config.SessionBackendRedis {
		s.Redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		if err := s.Redis.Ping(pingCtx).Err(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		opts = append(opts, repomanager.WithRedisSessions(s.Redis, c.SessionIdleTimeout))
	}

	s.Manager = repomanager.NewPostgresRepositoryManager(opts...)
	if err := s.Manager.RunMigrations(ctx, db); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	return s, nil
}

// ReadinessChecks probes every open handle.
func (s *Storage) ReadinessChecks() []httpserver.ReadinessCheck {
	checks := []httpserver.ReadinessCheck{{Name: "postgres", Check: s.DB.PingContext}}
	if s.Redis != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}})
	}
	return checks
}

func (s *Storage) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
