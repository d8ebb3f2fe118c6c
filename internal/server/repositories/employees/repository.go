// Package employees persists payroll records scoped to a company.
package employees

import (
	"context"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Employee) (*models.Employee, error)
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	ListByCompany(ctx context.Context, companyID string) ([]*models.Employee, error)
	Update(ctx context.Context, e *models.Employee) error
	Delete(ctx context.Context, id string) error
}
