package authz

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type CompanyGetter interface {
	GetByID(ctx context.Context, id string) (*models.Company, error)
}

type EmployeeGetter interface {
	GetByID(ctx context.Context, id string) (*models.Employee, error)
}

type ExpenseGetter interface {
	GetByID(ctx context.Context, id string) (*models.Expense, error)
}

// Guard resolves ids to records and checks them against the rules.
//
// Every method returns the loaded record with a nil error when access is
// allowed, common.ErrForbidden when it is not, common.ErrorNotFound when the
// record does not exist and common.ErrorUnauthorized for a nil user. A
// denied call returns no record.
type Guard struct {
	companies CompanyGetter
	employees EmployeeGetter
	expenses  ExpenseGetter
}

func NewGuard(companies CompanyGetter, employees EmployeeGetter, expenses ExpenseGetter) *Guard {
	return &Guard{companies: companies, employees: employees, expenses: expenses}
}

func (g *Guard) Company(ctx context.Context, user *models.User, companyID string) (*models.Company, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	company, err := g.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if !CanAccessCompany(user, company) {
		return nil, common.ErrForbidden
	}
	return company, nil
}

func (g *Guard) Employee(ctx context.Context, user *models.User, employeeID string) (*models.Employee, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	employee, err := g.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	company, err := g.companies.GetByID(ctx, employee.CompanyID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, err
	}

	if !CanAccessEmployee(user, employee, company) {
		return nil, common.ErrForbidden
	}
	return employee, nil
}

func (g *Guard) Expense(ctx context.Context, user *models.User, expenseID string) (*models.Expense, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	expense, err := g.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	// creator and admin do not need the company
	if CanAccessExpense(user, expense, nil) {
		return expense, nil
	}
	if expense.CompanyID == nil {
		return nil, common.ErrForbidden
	}

	company, err := g.companies.GetByID(ctx, *expense.CompanyID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, err
	}

	if !CanAccessExpense(user, expense, company) {
		return nil, common.ErrForbidden
	}
	return expense, nil
}
