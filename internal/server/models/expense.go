package models

import "time"

// Transaction types accepted for an expense record.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// Expense is a transaction recorded by CreatorID, optionally scoped to a
// company. The monetary fields are not cross-checked against each other.
type Expense struct {
	ID              string    `json:"id"`
	CreatorID       string    `json:"creator_id"`
	CompanyID       *string   `json:"company_id,omitempty"`
	TransactionType string    `json:"transaction_type"`
	Description     string    `json:"description"`
	GrossValue      float64   `json:"gross_value"`
	VATRate         float64   `json:"vat_rate"`
	VATValue        float64   `json:"vat_value"`
	NetValue        float64   `json:"net_value"`
	ReceiptKey      *string   `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e *Expense) HasReceipt() bool {
	return e.ReceiptKey != nil && *e.ReceiptKey != ""
}
