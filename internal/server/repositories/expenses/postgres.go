package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

const expenseColumns = `id, creator_id, company_id, transaction_type, description, gross_value,
		 vat_rate, vat_value, net_value, receipt_key, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var companyID, receiptKey sql.NullString

	err := row.Scan(&e.ID, &e.CreatorID, &companyID, &e.TransactionType, &e.Description,
		&e.GrossValue, &e.VATRate, &e.VATValue, &e.NetValue, &receiptKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if companyID.Valid {
		e.CompanyID = &companyID.String
	}
	if receiptKey.Valid {
		e.ReceiptKey = &receiptKey.String
	}
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	query :=
		`INSERT INTO expenses (creator_id, company_id, transaction_type, description,
		 gross_value, vat_rate, vat_value, net_value)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, e.CreatorID, nullString(e.CompanyID), e.TransactionType,
		e.Description, e.GrossValue, e.VATRate, e.VATValue, e.NetValue).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query :=
		`SELECT ` + expenseColumns + ` FROM expenses
		 WHERE id = $1
		 `

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidText(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) ListByCreator(ctx context.Context, userID string) ([]*models.Expense, error) {
	query :=
		`SELECT ` + expenseColumns + ` FROM expenses
		 WHERE creator_id = $1
		 ORDER BY created_at DESC
		 `
	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*models.Expense, error) {
	query :=
		`SELECT ` + expenseColumns + ` FROM expenses
		 ORDER BY created_at DESC
		 `
	return r.list(ctx, query)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
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

// Update rewrites the editable fields. CreatorID and ReceiptKey are not changed.
func (r *PostgresRepository) Update(ctx context.Context, e *models.Expense) error {
	query :=
		`UPDATE expenses
		 SET company_id = $2, transaction_type = $3, description = $4, gross_value = $5,
		     vat_rate = $6, vat_value = $7, net_value = $8, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, e.ID, nullString(e.CompanyID), e.TransactionType,
		e.Description, e.GrossValue, e.VATRate, e.VATValue, e.NetValue)
	return dbx.CheckAffected(res, err)
}

func (r *PostgresRepository) SetReceiptKey(ctx context.Context, id string, key string) error {
	query :=
		`UPDATE expenses SET receipt_key = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, key)
	return dbx.CheckAffected(res, err)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return dbx.CheckAffected(res, err)
}
