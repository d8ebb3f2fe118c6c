// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/migrations"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/companies"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/employees"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/expenses"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/summaries"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/users"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook. Sessions may live in Redis instead.
type PostgresRepositoryManager struct {
	redisSessions *sessions.RedisRepository
}

// Option configures a PostgresRepositoryManager.
type Option func(*PostgresRepositoryManager)

// WithRedisSessions stores sessions in Redis instead of the sessions table.
func WithRedisSessions(rdb redis.UniversalClient, idle time.Duration) Option {
	return func(m *PostgresRepositoryManager) {
		m.redisSessions = sessions.NewRedisRepository(rdb, idle)
	}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Companies(db dbx.DBTX) companies.Repository {
	return companies.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Employees(db dbx.DBTX) employees.Repository {
	return employees.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Expenses(db dbx.DBTX) expenses.Repository {
	return expenses.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Summaries(db dbx.DBTX) summaries.Repository {
	return summaries.NewPostgresRepository(db)
}

// Sessions returns the Redis store when configured; db is then ignored.
func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	if m.redisSessions != nil {
		return m.redisSessions
	}
	return sessions.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(opts ...Option) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{}
	for _, o := range opts {
		o(m)
	}
	return m
}
