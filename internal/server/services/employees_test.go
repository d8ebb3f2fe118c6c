package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

func TestEmployeeService_Isolation(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newTenantRepoManager()
	s := NewEmployeeService(db, rm, testConfig())
	ctx := context.Background()

	list, err := s.ListByCompany(ctx, tenantA, "ca")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ea", list[0].ID)

	_, err = s.ListByCompany(ctx, tenantA, "cb")
	assert.ErrorIs(t, err, common.ErrForbidden)

	e, err := s.Get(ctx, tenantB, "ea")
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Nil(t, e)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Create(ctx, tenantA, "cb", &models.Employee{Name: "Intruder"})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.Len(t, rm.employees.items, 2)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = s.Update(ctx, tenantA, "eb", &models.Employee{Name: "x"})
	assert.ErrorIs(t, err, common.ErrForbidden)

	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.ErrorIs(t, s.Delete(ctx, tenantA, "eb"), common.ErrForbidden)
	assert.Contains(t, rm.employees.items, "eb")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeService_CRUD(t *testing.T) {
	db, mock := newSQLMockDB(t)
	rm := newTenantRepoManager()
	s := NewEmployeeService(db, rm, testConfig())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	created, err := s.Create(ctx, tenantA, "ca", &models.Employee{CompanyID: "cb", Name: "Carla", GrossSalary: 1800, IncomeTaxRate: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "ca", created.CompanyID, "company comes from the path")

	mock.ExpectBegin()
	mock.ExpectCommit()
	updated, err := s.Update(ctx, tenantA, "ea", &models.Employee{CompanyID: "cb", Name: "Ana Maria", GrossSalary: 1600, ExtraPayment: 200})
	require.NoError(t, err)
	assert.Equal(t, "ca", updated.CompanyID, "employees do not move between companies")
	assert.Equal(t, 1600.0, rm.employees.items["ea"].GrossSalary)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, s.Delete(ctx, tenantA, "ea"))
	assert.NotContains(t, rm.employees.items, "ea")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeService_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	s := NewEmployeeService(db, newTenantRepoManager(), testConfig())

	tests := []struct {
		name string
		in   *models.Employee
		want string
	}{
		{"nil", nil, "employee"},
		{"no name", &models.Employee{Name: " "}, "name"},
		{"negative salary", &models.Employee{Name: "x", GrossSalary: -1}, "gross_salary"},
		{"negative rate", &models.Employee{Name: "x", IncomeTaxRate: -0.1}, "income_tax_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tenantA, "ca", tt.in)
			require.ErrorIs(t, err, common.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
