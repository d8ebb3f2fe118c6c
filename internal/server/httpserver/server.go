// Package httpserver exposes the login page and the JSON resources of cadete
// over HTTP.
package httpserver

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/text/message/catalog"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/services"
)

//go:embed templates/*.html
var templateFS embed.FS

type Authenticator interface {
	Login(ctx context.Context, userName, password string) (*services.LoginResult, error)
}

type SessionManager interface {
	Issue(ctx context.Context, user *models.User) (*services.IssuedSession, error)
	Resolve(ctx context.Context, cookie string) (*models.User, error)
	Revoke(ctx context.Context, cookie string) error
}

type CompanyManager interface {
	List(ctx context.Context, user *models.User) ([]*models.Company, error)
	Get(ctx context.Context, user *models.User, id string) (*models.Company, error)
	Create(ctx context.Context, user *models.User, c *models.Company) (*models.Company, error)
	Update(ctx context.Context, user *models.User, id string, in *models.Company) (*models.Company, error)
	Delete(ctx context.Context, user *models.User, id string) error
}

type EmployeeManager interface {
	ListByCompany(ctx context.Context, user *models.User, companyID string) ([]*models.Employee, error)
	Get(ctx context.Context, user *models.User, id string) (*models.Employee, error)
	Create(ctx context.Context, user *models.User, companyID string, e *models.Employee) (*models.Employee, error)
	Update(ctx context.Context, user *models.User, id string, in *models.Employee) (*models.Employee, error)
	Delete(ctx context.Context, user *models.User, id string) error
}

type ExpenseManager interface {
	List(ctx context.Context, user *models.User) ([]*models.Expense, error)
	Get(ctx context.Context, user *models.User, id string) (*models.Expense, error)
	Create(ctx context.Context, user *models.User, e *models.Expense) (*models.Expense, error)
	Update(ctx context.Context, user *models.User, id string, in *models.Expense) (*models.Expense, error)
	Delete(ctx context.Context, user *models.User, id string) error
	ReceiptUploadURL(ctx context.Context, user *models.User, id string) (*services.ReceiptURL, error)
	ReceiptDownloadURL(ctx context.Context, user *models.User, id string) (*services.ReceiptURL, error)
}

type DashboardReader interface {
	Summaries(ctx context.Context, user *models.User) ([]*models.MonthlySummary, error)
	UpsertSummary(ctx context.Context, user *models.User, sum *models.MonthlySummary) (*models.MonthlySummary, error)
}

// Services groups the handlers' dependencies.
type Services struct {
	Auth      Authenticator
	Sessions  SessionManager
	Companies CompanyManager
	Employees EmployeeManager
	Expenses  ExpenseManager
	Dashboard DashboardReader
}

type Server struct {
	cfg       *config.Config
	logger    logging.Logger
	auth      Authenticator
	sessions  SessionManager
	companies CompanyManager
	employees EmployeeManager
	expenses  ExpenseManager
	dashboard DashboardReader

	limiter   *loginLimiter
	catalog   catalog.Catalog
	loginTmpl *template.Template
	checks    []ReadinessCheck
	router    *mux.Router
}

func New(cfg *config.Config, l logging.Logger, svc Services, checks ...ReadinessCheck) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    l.With("module", "http_server"),
		auth:      svc.Auth,
		sessions:  svc.Sessions,
		companies: svc.Companies,
		employees: svc.Employees,
		expenses:  svc.Expenses,
		dashboard: svc.Dashboard,
		limiter:   newLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst),
		catalog:   newCatalog(),
		loginTmpl: template.Must(template.ParseFS(templateFS, "templates/login.html")),
		checks:    checks,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, issued *services.IssuedSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    issued.Cookie,
		Path:     "/",
		Expires:  issued.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SessionCookieSecure,
		SameSite: s.cfg.SameSite(),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.SessionCookieSecure,
		SameSite: s.cfg.SameSite(),
	})
}
