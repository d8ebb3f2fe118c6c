// Package companies persists companies and their owning user.
package companies

import (
	"context"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Company) (*models.Company, error)
	GetByID(ctx context.Context, id string) (*models.Company, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Company, error)
	Update(ctx context.Context, c *models.Company) error
	Delete(ctx context.Context, id string) error
}
