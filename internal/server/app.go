// Package server wires storage, services and the HTTP server of cadete
// together and runs them until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/auth"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/httpserver"
	"github.com/dmitrijs2005/cadete/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	closeLog func() error
	storage  *Storage
	http     *httpserver.Server
}

// NewLogger builds the logger selected by the Log* settings.
func NewLogger(c *config.Config) (logging.Logger, func() error, error) {
	return logging.New(logging.Options{
		Backend: c.LogBackend,
		Level:   c.LogLevel,
		Format:  c.LogFormat,
		File:    c.LogFile,
	})
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, closeLog, err := NewLogger(c)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	st, err := OpenStorage(ctx, c)
	if err != nil {
		_ = closeLog()
		return nil, err
	}

	db, rm := st.DB, st.Manager
	srv := httpserver.New(c, logger, httpserver.Services{
		Auth:      services.NewAuthService(db, rm, auth.NewArgon2Hasher(), c, logger),
		Sessions:  services.NewSessionService(db, rm, c, logger),
		Companies: services.NewCompanyService(db, rm, c),
		Employees: services.NewEmployeeService(db, rm, c),
		Expenses:  services.NewExpenseService(db, rm, c),
		Dashboard: services.NewDashboardService(db, rm, c),
	}, st.ReadinessChecks()...)

	return &App{config: c, logger: logger, closeLog: closeLog, storage: st, http: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the HTTP server stops, then releases storage handles.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
	}

	if cerr := app.storage.Close(); cerr != nil {
		app.logger.Error(ctx, "close storage", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	_ = app.closeLog()
	return err
}
