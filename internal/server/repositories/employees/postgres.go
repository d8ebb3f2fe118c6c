package employees

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

const employeeColumns = `id, company_id, name, gross_salary, social_security_rate,
		 employer_social_security_rate, income_tax_rate, extra_payment, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	e := &models.Employee{}
	err := row.Scan(&e.ID, &e.CompanyID, &e.Name, &e.GrossSalary, &e.SocialSecurityRate,
		&e.EmployerSocialSecurityRate, &e.IncomeTaxRate, &e.ExtraPayment, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	query :=
		`INSERT INTO employees (company_id, name, gross_salary, social_security_rate,
		 employer_social_security_rate, income_tax_rate, extra_payment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, e.CompanyID, e.Name, e.GrossSalary, e.SocialSecurityRate,
		e.EmployerSocialSecurityRate, e.IncomeTaxRate, e.ExtraPayment).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Employee, error) {
	query :=
		`SELECT ` + employeeColumns + ` FROM employees
		 WHERE id = $1
		 `

	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID string) ([]*models.Employee, error) {
	query :=
		`SELECT ` + employeeColumns + ` FROM employees
		 WHERE company_id = $1
		 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Update rewrites the payroll fields. CompanyID is not changed.
func (r *PostgresRepository) Update(ctx context.Context, e *models.Employee) error {
	query :=
		`UPDATE employees
		 SET name = $2, gross_salary = $3, social_security_rate = $4,
		     employer_social_security_rate = $5, income_tax_rate = $6, extra_payment = $7,
		     updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.GrossSalary, e.SocialSecurityRate,
		e.EmployerSocialSecurityRate, e.IncomeTaxRate, e.ExtraPayment)
	return dbx.CheckAffected(res, err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	return dbx.CheckAffected(res, err)
}
