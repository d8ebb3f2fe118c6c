package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

// DashboardService exposes the monthly income/expense summaries.
type DashboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
}

func NewDashboardService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *DashboardService {
	return &DashboardService{db: db, repomanager: m, timeout: cfg.DBTimeout}
}

// Summaries lists every monthly summary. Any authenticated user may read them.
func (s *DashboardService) Summaries(ctx context.Context, user *models.User) ([]*models.MonthlySummary, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repomanager.Summaries(s.db).List(ctx)
	return list, storageErr(err)
}

// UpsertSummary stores the totals of one month. Admin only. Balance is
// recomputed from the totals.
func (s *DashboardService) UpsertSummary(ctx context.Context, user *models.User, sum *models.MonthlySummary) (*models.MonthlySummary, error) {
	if user == nil {
		return nil, common.ErrorUnauthorized
	}
	if !user.IsAdmin() {
		return nil, common.ErrForbidden
	}
	if sum == nil {
		return nil, invalid("summary", "is required")
	}
	if sum.Month < 1 || sum.Month > 12 {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if sum.Year < 1900 || sum.Year > 9999 {
		return nil, invalid("year", "is out of range")
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	sum.Balance = sum.TotalIncome - sum.TotalExpense

	out, err := s.repomanager.Summaries(s.db).Upsert(ctx, sum)
	return out, storageErr(err)
}
