// Package services contains server-side business logic. Every operation takes
// the acting user explicitly, bounds its storage work by the configured DB
// timeout and checks ownership through authz.Guard before it touches data.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/authz"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/repomanager"
)

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// storageErr reports a missed deadline as common.ErrTransient and leaves
// every other error untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", common.ErrTransient, err)
	}
	return err
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", common.ErrValidation, field, reason)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

func notNegative(field string, v float64) error {
	if v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

func guardFor(m repomanager.RepositoryManager, db dbx.DBTX) *authz.Guard {
	return authz.NewGuard(m.Companies(db), m.Employees(db), m.Expenses(db))
}
