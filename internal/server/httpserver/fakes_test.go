package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/logging"
	"github.com/dmitrijs2005/cadete/internal/server/authz"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/lockout"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/services"
)

// fakeAuth runs the real lockout policy over plaintext passwords.
type fakeAuth struct {
	mu     sync.Mutex
	users  map[string]*models.User
	policy lockout.Policy
	err    error
}

func (f *fakeAuth) Login(_ context.Context, userName, password string) (*services.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.users[userName]
	matches := u != nil && u.PasswordHash == password
	res := f.policy.Evaluate(u, matches, time.Now())

	out := &services.LoginResult{Result: res}
	if res.Outcome == lockout.Authenticated {
		out.User = u
	}
	return out, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	byCookie map[string]*models.User
	issueErr error
	resolErr error
	revoked  []string
	n        int
}

func (f *fakeSessions) Issue(_ context.Context, u *models.User) (*services.IssuedSession, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	if !u.Active || u.IsLocked {
		return nil, common.ErrorUnauthorized
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	cookie := fmt.Sprintf("cookie-%d", f.n)
	f.byCookie[cookie] = u
	return &services.IssuedSession{
		Session: &models.Session{UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)},
		Cookie:  cookie,
	}, nil
}

func (f *fakeSessions) Resolve(_ context.Context, cookie string) (*models.User, error) {
	if f.resolErr != nil {
		return nil, f.resolErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byCookie[cookie]
	if !ok {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrSessionExpired)
	}
	return u, nil
}

func (f *fakeSessions) Revoke(_ context.Context, cookie string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byCookie, cookie)
	f.revoked = append(f.revoked, cookie)
	return nil
}

// fakeCompanies applies the real ownership rule to an in-memory table.
type fakeCompanies struct {
	items map[string]*models.Company
	n     int
}

func (f *fakeCompanies) List(_ context.Context, u *models.User) ([]*models.Company, error) {
	var out []*models.Company
	for _, c := range f.items {
		if c.OwnerID == u.ID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCompanies) Get(_ context.Context, u *models.User, id string) (*models.Company, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !authz.CanAccessCompany(u, c) {
		return nil, common.ErrForbidden
	}
	return c, nil
}

func (f *fakeCompanies) Create(_ context.Context, u *models.User, c *models.Company) (*models.Company, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	f.n++
	c.ID = fmt.Sprintf("new-%d", f.n)
	c.OwnerID = u.ID
	f.items[c.ID] = c
	return c, nil
}

func (f *fakeCompanies) Update(ctx context.Context, u *models.User, id string, in *models.Company) (*models.Company, error) {
	c, err := f.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}
	c.Name = in.Name
	return c, nil
}

func (f *fakeCompanies) Delete(ctx context.Context, u *models.User, id string) error {
	if _, err := f.Get(ctx, u, id); err != nil {
		return err
	}
	delete(f.items, id)
	return nil
}

type fakeEmployees struct {
	list       []*models.Employee
	err        error
	gotCompany string
	gotID      string
}

func (f *fakeEmployees) ListByCompany(_ context.Context, _ *models.User, companyID string) ([]*models.Employee, error) {
	f.gotCompany = companyID
	return f.list, f.err
}

func (f *fakeEmployees) Get(_ context.Context, _ *models.User, id string) (*models.Employee, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Employee{ID: id}, nil
}

func (f *fakeEmployees) Create(_ context.Context, _ *models.User, companyID string, e *models.Employee) (*models.Employee, error) {
	f.gotCompany = companyID
	if f.err != nil {
		return nil, f.err
	}
	e.ID, e.CompanyID = "e-new", companyID
	return e, nil
}

func (f *fakeEmployees) Update(_ context.Context, _ *models.User, id string, in *models.Employee) (*models.Employee, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	in.ID = id
	return in, nil
}

func (f *fakeEmployees) Delete(_ context.Context, _ *models.User, id string) error {
	f.gotID = id
	return f.err
}

type fakeExpenses struct {
	list  []*models.Expense
	url   *services.ReceiptURL
	err   error
	gotID string
	user  *models.User
}

func (f *fakeExpenses) List(_ context.Context, u *models.User) ([]*models.Expense, error) {
	f.user = u
	return f.list, f.err
}

func (f *fakeExpenses) Get(_ context.Context, _ *models.User, id string) (*models.Expense, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Expense{ID: id}, nil
}

func (f *fakeExpenses) Create(_ context.Context, u *models.User, e *models.Expense) (*models.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	e.ID, e.CreatorID = "x-new", u.ID
	return e, nil
}

func (f *fakeExpenses) Update(_ context.Context, _ *models.User, id string, in *models.Expense) (*models.Expense, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	in.ID = id
	return in, nil
}

func (f *fakeExpenses) Delete(_ context.Context, _ *models.User, id string) error {
	f.gotID = id
	return f.err
}

func (f *fakeExpenses) ReceiptUploadURL(_ context.Context, _ *models.User, id string) (*services.ReceiptURL, error) {
	f.gotID = id
	return f.url, f.err
}

func (f *fakeExpenses) ReceiptDownloadURL(_ context.Context, _ *models.User, id string) (*services.ReceiptURL, error) {
	f.gotID = id
	return f.url, f.err
}

type fakeDashboard struct {
	list     []*models.MonthlySummary
	err      error
	upserted *models.MonthlySummary
}

func (f *fakeDashboard) Summaries(context.Context, *models.User) ([]*models.MonthlySummary, error) {
	return f.list, f.err
}

func (f *fakeDashboard) UpsertSummary(_ context.Context, _ *models.User, sum *models.MonthlySummary) (*models.MonthlySummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	sum.Balance = sum.TotalIncome - sum.TotalExpense
	f.upserted = sum
	return sum, nil
}

var (
	cubix  = &models.User{ID: "u-cubix", UserName: "cubix", PasswordHash: "cubix", Role: common.RoleAdmin, Active: true}
	tenant = &models.User{ID: "u-a", UserName: "alice", PasswordHash: "alice", Role: common.RoleUser, Active: true}
	other  = &models.User{ID: "u-b", UserName: "bob", PasswordHash: "bob", Role: common.RoleUser, Active: true}
)

type testEnv struct {
	cfg       *config.Config
	auth      *fakeAuth
	sessions  *fakeSessions
	companies *fakeCompanies
	employees *fakeEmployees
	expenses  *fakeExpenses
	dashboard *fakeDashboard
	checks    []ReadinessCheck
}

func newTestEnv() *testEnv {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.SessionCookieSecure = false
	cfg.LoginRatePerMinute = 6000
	cfg.LoginRateBurst = 1000
	// csrf_test.go turns it back on
	cfg.CSRFEnabled = false

	cadete := &models.User{ID: "u-cadete", UserName: "cadete", PasswordHash: "cadete", Role: common.RoleUser, Active: true}
	idle := &models.User{ID: "u-idle", UserName: "idle", PasswordHash: "idle", Role: common.RoleUser}

	return &testEnv{
		cfg: cfg,
		auth: &fakeAuth{
			users:  map[string]*models.User{"cadete": cadete, "idle": idle, "cubix": cubix},
			policy: lockout.DefaultPolicy(),
		},
		sessions: &fakeSessions{byCookie: map[string]*models.User{}},
		companies: &fakeCompanies{items: map[string]*models.Company{
			"ca": {ID: "ca", OwnerID: tenant.ID, Name: "Alpha"},
			"cb": {ID: "cb", OwnerID: other.ID, Name: "Beta"},
		}},
		employees: &fakeEmployees{},
		expenses:  &fakeExpenses{},
		dashboard: &fakeDashboard{},
	}
}

func (e *testEnv) server() *Server {
	return New(e.cfg, logging.Nop(), Services{
		Auth:      e.auth,
		Sessions:  e.sessions,
		Companies: e.companies,
		Employees: e.employees,
		Expenses:  e.expenses,
		Dashboard: e.dashboard,
	}, e.checks...)
}

// sessionFor registers a live session for u and returns its cookie.
func (e *testEnv) sessionFor(u *models.User) *http.Cookie {
	v := "live-" + u.ID
	e.sessions.byCookie[v] = u
	return &http.Cookie{Name: common.SessionCookieName, Value: v}
}

type reqOpt func(*http.Request)

func withCookie(c *http.Cookie) reqOpt { return func(r *http.Request) { r.AddCookie(c) } }
func asJSON(r *http.Request)           { r.Header.Set("Accept", "application/json") }
func withLang(l string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Accept-Language", l) }
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, body)
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		r.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(r)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func postLogin(t *testing.T, h http.Handler, user, password string, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	form := "username=" + user + "&password=" + password
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, o := range opts {
		o(r)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}
