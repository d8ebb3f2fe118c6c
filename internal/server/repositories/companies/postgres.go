package companies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Company) (*models.Company, error) {
	query :=
		`INSERT INTO companies (owner_id, name, tax_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, c.OwnerID, c.Name, c.TaxID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	query :=
		`SELECT id, owner_id, name, tax_id, created_at, updated_at FROM companies
		 WHERE id = $1
		 `

	c := &models.Company{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.TaxID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Company, error) {
	query :=
		`SELECT id, owner_id, name, tax_id, created_at, updated_at FROM companies
		 WHERE owner_id = $1
		 ORDER BY name
		 `

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Company, 0)
	for rows.Next() {
		c := &models.Company{}
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.TaxID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Update changes name and tax id. Ownership is never transferred here.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Company) error {
	query :=
		`UPDATE companies SET name = $2, tax_id = $3, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.TaxID)
	return dbx.CheckAffected(res, err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	return dbx.CheckAffected(res, err)
}
