package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/authz"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// ExpenseService manages income and expense transactions.
type ExpenseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	timeout     time.Duration
	now         func() time.Time
}

func NewExpenseService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ExpenseService {
	return &ExpenseService{db: db, repomanager: m, config: cfg, timeout: cfg.DBTimeout, now: time.Now}
}

func validateExpense(e *models.Expense) error {
	if e == nil {
		return invalid("expense", "is required")
	}

	e.TransactionType = strings.ToLower(strings.TrimSpace(e.TransactionType))
	if e.TransactionType != models.TransactionIncome && e.TransactionType != models.TransactionExpense {
		return invalid("transaction_type", "must be income or expense")
	}

	e.Description = strings.TrimSpace(e.Description)
	if e.CompanyID != nil && strings.TrimSpace(*e.CompanyID) == "" {
		e.CompanyID = nil
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"gross_value", e.GrossValue},
		{"vat_rate", e.VATRate},
		{"vat_value", e.VATValue},
		{"net_value", e.NetValue},
	} {
		if err := notNegative(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// checkExpenseCompany requires user to own companyID. A company_id that
// names no company is a bad request, not a missing resource.
func checkExpenseCompany(ctx context.Context, guard *authz.Guard, user *models.User, companyID string) error {
	_, err := guard.Company(ctx, user, companyID)
	if errors.Is(err, common.ErrorNotFound) {
		return invalid("company_id", "does not refer to a company")
	}
	return err
}

// List returns the expenses created by user, or every expense for an Admin.
func (s *ExpenseService) List(ctx context.Context, user *models.User) ([]*models.Expense, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	repo := s.repomanager.Expenses(s.db)

	var (
		list []*models.Expense
		err  error
	)
	if user.IsAdmin() {
		list, err = repo.ListAll(ctx)
	} else {
		list, err = repo.ListByCreator(ctx, user.ID)
	}
	return list, storageErr(err)
}

func (s *ExpenseService) Get(ctx context.Context, user *models.User, id string) (*models.Expense, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	e, err := guardFor(s.repomanager, s.db).Expense(ctx, user, id)
	return e, storageErr(err)
}

// Create records e as created by user. A company, when given, must be owned
// by user.
func (s *ExpenseService) Create(ctx context.Context, user *models.User, e *models.Expense) (*models.Expense, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}
	if err := validateExpense(e); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var created *models.Expense
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if e.CompanyID != nil {
			if err := checkExpenseCompany(ctx, guardFor(s.repomanager, tx), user, *e.CompanyID); err != nil {
				return err
			}
		}

		e.ID = ""
		e.CreatorID = user.ID
		e.ReceiptKey = nil

		var err error
		created, err = s.repomanager.Expenses(tx).Create(ctx, e)
		if err != nil {
			return fmt.Errorf("error creating expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return created, nil
}

// Update replaces the editable fields of expense id. Moving it to another
// company requires owning that company.
func (s *ExpenseService) Update(ctx context.Context, user *models.User, id string, in *models.Expense) (*models.Expense, error) {
	if err := validateExpense(in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var updated *models.Expense
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		guard := guardFor(s.repomanager, tx)

		e, err := guard.Expense(ctx, user, id)
		if err != nil {
			return err
		}

		if in.CompanyID != nil && (e.CompanyID == nil || *e.CompanyID != *in.CompanyID) {
			if err := checkExpenseCompany(ctx, guard, user, *in.CompanyID); err != nil {
				return err
			}
		}

		e.CompanyID = in.CompanyID
		e.TransactionType = in.TransactionType
		e.Description = in.Description
		e.GrossValue = in.GrossValue
		e.VATRate = in.VATRate
		e.VATValue = in.VATValue
		e.NetValue = in.NetValue

		if err := s.repomanager.Expenses(tx).Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, user *models.User, id string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return storageErr(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := guardFor(s.repomanager, tx).Expense(ctx, user, id); err != nil {
			return err
		}
		return s.repomanager.Expenses(tx).Delete(ctx, id)
	}))
}
