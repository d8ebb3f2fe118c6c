// Package summaries persists monthly income/expense aggregates.
package summaries

import (
	"context"

	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.MonthlySummary, error)

	// Upsert inserts the summary or replaces the totals of the existing row
	// with the same (month, year).
	Upsert(ctx context.Context, s *models.MonthlySummary) (*models.MonthlySummary, error)
}
