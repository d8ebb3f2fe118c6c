// Package expenses persists income and expense transactions.
package expenses

import (
	"context"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Expense) (*models.Expense, error)
	GetByID(ctx context.Context, id string) (*models.Expense, error)

	// ListByCreator returns the expenses created by userID, newest first.
	ListByCreator(ctx context.Context, userID string) ([]*models.Expense, error)

	// ListAll returns every expense, newest first.
	ListAll(ctx context.Context) ([]*models.Expense, error)

	Update(ctx context.Context, e *models.Expense) error
	SetReceiptKey(ctx context.Context, id string, key string) error
	Delete(ctx context.Context, id string) error
}
