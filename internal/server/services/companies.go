package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// CompanyService manages the companies owned by the acting user.
type CompanyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
}

func NewCompanyService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *CompanyService {
	return &CompanyService{db: db, repomanager: m, timeout: cfg.DBTimeout}
}

func validateCompany(c *models.Company) error {
	if c == nil {
		return invalid("company", "is required")
	}
	c.Name = strings.TrimSpace(c.Name)
	c.TaxID = strings.TrimSpace(c.TaxID)
	return required("name", c.Name)
}

func (s *CompanyService) List(ctx context.Context, user *models.User) ([]*models.Company, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repomanager.Companies(s.db).ListByOwner(ctx, user.ID)
	return list, storageErr(err)
}

func (s *CompanyService) Get(ctx context.Context, user *models.User, id string) (*models.Company, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	c, err := guardFor(s.repomanager, s.db).Company(ctx, user, id)
	return c, storageErr(err)
}

// Create stores c owned by user. Any OwnerID set by the caller is ignored.
func (s *CompanyService) Create(ctx context.Context, user *models.User, c *models.Company) (*models.Company, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}
	if err := validateCompany(c); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	c.ID = ""
	c.OwnerID = user.ID

	created, err := s.repomanager.Companies(s.db).Create(ctx, c)
	if err != nil {
		return nil, storageErr(fmt.Errorf("error creating company: %w", err))
	}
	return created, nil
}

// Update replaces the editable fields of company id with those of in.
func (s *CompanyService) Update(ctx context.Context, user *models.User, id string, in *models.Company) (*models.Company, error) {
	if err := validateCompany(in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var updated *models.Company
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := guardFor(s.repomanager, tx).Company(ctx, user, id)
		if err != nil {
			return err
		}

		c.Name = in.Name
		c.TaxID = in.TaxID
		if err := s.repomanager.Companies(tx).Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return updated, nil
}

// Delete removes company id together with its employees. Expenses recorded
// against it stay with their creators.
func (s *CompanyService) Delete(ctx context.Context, user *models.User, id string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	return storageErr(dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := guardFor(s.repomanager, tx).Company(ctx, user, id); err != nil {
			return err
		}
		return s.repomanager.Companies(tx).Delete(ctx, id)
	}))
}
