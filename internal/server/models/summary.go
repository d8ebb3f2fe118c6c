package models

import "time"

// MonthlySummary is unique per (Month, Year).
type MonthlySummary struct {
	ID           string    `json:"id"`
	Month        int       `json:"month"`
	Year         int       `json:"year"`
	TotalIncome  float64   `json:"total_income"`
	TotalExpense float64   `json:"total_expense"`
	Balance      float64   `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
