package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/companies"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/employees"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/expenses"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/summaries"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle, either the pool
// or a transaction, so that services decide the transaction boundaries.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Companies(db dbx.DBTX) companies.Repository
	Employees(db dbx.DBTX) employees.Repository
	Expenses(db dbx.DBTX) expenses.Repository
	Summaries(db dbx.DBTX) summaries.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
