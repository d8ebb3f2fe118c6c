package models

import "time"

// Employee belongs to one company. The rate fields are stored as entered and
// only consumed by payroll reporting.
type Employee struct {
	ID                         string    `json:"id"`
	CompanyID                  string    `json:"company_id"`
	Name                       string    `json:"name"`
	GrossSalary                float64   `json:"gross_salary"`
	SocialSecurityRate         float64   `json:"social_security_rate"`
	EmployerSocialSecurityRate float64   `json:"employer_social_security_rate"`
	IncomeTaxRate              float64   `json:"income_tax_rate"`
	ExtraPayment               float64   `json:"extra_payment"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}
