package summaries

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.MonthlySummary, error) {
	query :=
		`SELECT id, month, year, total_income, total_expense, balance, created_at, updated_at
		 FROM monthly_summaries
		 ORDER BY year DESC, month DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.MonthlySummary, 0)
	for rows.Next() {
		s := &models.MonthlySummary{}
		err := rows.Scan(&s.ID, &s.Month, &s.Year, &s.TotalIncome, &s.TotalExpense, &s.Balance,
			&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.MonthlySummary) (*models.MonthlySummary, error) {
	query :=
		`INSERT INTO monthly_summaries (month, year, total_income, total_expense, balance)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (month, year) DO UPDATE
		 SET total_income = EXCLUDED.total_income, total_expense = EXCLUDED.total_expense,
		     balance = EXCLUDED.balance, updated_at = now()
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, s.Month, s.Year, s.TotalIncome, s.TotalExpense, s.Balance).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}
