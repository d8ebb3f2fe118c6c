// Package authz decides whether a user may act on a company, an employee or
// an expense. The rules are pure; Guard loads the ownership chain and applies
// them.
package authz

import "github.com/dmitrijs2005/cadete/internal/server/models"

// CanAccessCompany allows only the owner of the company.
func CanAccessCompany(user *models.User, company *models.Company) bool {
	if user == nil || company == nil || user.ID == "" {
		return false
	}
	return company.OwnerID == user.ID
}

// CanAccessEmployee allows whoever may access the employee's company. company
// must be the company the employee belongs to.
func CanAccessEmployee(user *models.User, employee *models.Employee, company *models.Company) bool {
	if employee == nil || company == nil || employee.CompanyID != company.ID {
		return false
	}
	return CanAccessCompany(user, company)
}

// CanAccessExpense allows the creator, any Admin, or the owner of the
// company the expense is recorded against. company is nil when the expense
// has no company.
func CanAccessExpense(user *models.User, expense *models.Expense, company *models.Company) bool {
	if user == nil || expense == nil || user.ID == "" {
		return false
	}

	if expense.CreatorID == user.ID || user.IsAdmin() {
		return true
	}

	if expense.CompanyID == nil || company == nil || *expense.CompanyID != company.ID {
		return false
	}
	return CanAccessCompany(user, company)
}
