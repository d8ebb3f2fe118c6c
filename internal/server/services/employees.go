package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// EmployeeService manages payroll records of companies the acting user owns.
type EmployeeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
}

func NewEmployeeService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *EmployeeService {
	return &EmployeeService{db: db, repomanager: m, timeout: cfg.DBTimeout}
}

func validateEmployee(e *models.Employee) error {
	if e == nil {
		return invalid("employee", "is required")
	}
	e.Name = strings.TrimSpace(e.Name)
	if err := required("name", e.Name); err != nil {
		return err
	}

	for _, f := range []struct {
		name  string
		value float64
	}{
		{"gross_salary", e.GrossSalary},
		{"social_security_rate", e.SocialSecurityRate},
		{"employer_social_security_rate", e.EmployerSocialSecurityRate},
		{"income_tax_rate", e.IncomeTaxRate},
		{"extra_payment", e.ExtraPayment},
	} {
		if err := notNegative(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func (s *EmployeeService) ListByCompany(ctx context.Context, user *models.User, companyID string) ([]*models.Employee, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := guardFor(s.repomanager, s.db).Company(ctx, user, companyID); err != nil {
		return nil, storageErr(err)
	}

	list, err := s.repomanager.Employees(s.db).ListByCompany(ctx, companyID)
	return list, storageErr(err)
}

func (s *EmployeeService) Get(ctx context.Context, user *models.User, id string) (*models.Employee, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	e, err := guardFor(s.repomanager, s.db).Employee(ctx, user, id)
	return e, storageErr(err)
}

// Create adds e to company companyID.
func (s *EmployeeService) Create(ctx context.Context, user *models.User, companyID string, e *models.Employee) (*models.Employee, error) {
	if err := validateEmployee(e); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var created *models.Employee
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := guardFor(s.repomanager, tx).Company(ctx, user, companyID); err != nil {
			return err
		}

		e.ID = ""
		e.CompanyID = companyID

		var err error
		created, err = s.repomanager.Employees(tx).Create(ctx, e)
		if err != nil {
			return fmt.Errorf("error creating employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return created, nil
}

// Update replaces the payroll fields of employee id. The employee stays in
// its company.
func (s *EmployeeService) Update(ctx context.Context, user *models.User, id string, in *models.Employee) (*models.Employee, error) {
	if err := validateEmployee(in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var updated *models.Employee
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := guardFor(s.repomanager, tx).Employee(ctx, user, id)
		if err != nil {
			return err
		}

		e.Name = in.Name
		e.GrossSalary = in.GrossSalary
		e.SocialSecurityRate = in.SocialSecurityRate
		e.EmployerSocialSecurityRate = in.EmployerSocialSecurityRate
		e.IncomeTaxRate = in.IncomeTaxRate
		e.ExtraPayment = in.ExtraPayment

		if err := s.repomanager.Employees(tx).Update(ctx, e); err != nil {
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

func (s *EmployeeService) Delete(ctx context.Context, user *models.User, id string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return storageErr(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := guardFor(s.repomanager, tx).Employee(ctx, user, id); err != nil {
			return err
		}
		return s.repomanager.Employees(tx).Delete(ctx, id)
	}))
}
