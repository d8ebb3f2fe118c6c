package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/config"
	"github.com/dmitrijs2005/cadete/internal/server/models"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/companies"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/employees"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/expenses"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/summaries"
	"github.com/dmitrijs2005/cadete/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.S3PresignTTL = 15 * time.Minute
	return cfg
}

// fakeHasher stores "fake$<password>" so tests stay fast.
type fakeHasher struct {
	dummyCalls  int
	verifyCalls int
}

func (h *fakeHasher) Hash(password string) (string, error) { return "fake$" + password, nil }

func (h *fakeHasher) Verify(encoded, password string) bool {
	h.verifyCalls++
	return strings.HasPrefix(encoded, "fake$") && encoded == "fake$"+password
}

func (h *fakeHasher) NeedsRehash(encoded string) bool { return !strings.HasPrefix(encoded, "fake$") }

func (h *fakeHasher) DummyVerify(string) { h.dummyCalls++ }

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byLogin map[string]*models.User
	err     error

	updates      int
	passwordSets map[string]string
	forUpdate    int

	// forUpdateErrs are returned, in order, by the next GetUserByLoginForUpdate calls.
	forUpdateErrs []error
}

func newFakeUsers(list ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byLogin: map[string]*models.User{}, passwordSets: map[string]string{}}
	for _, u := range list {
		r.byLogin[u.UserName] = u
	}
	return r
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.byLogin[u.UserName]; ok {
		return nil, common.ErrAlreadyExists
	}
	u.ID = "id-" + u.UserName
	r.byLogin[u.UserName] = u
	return u, nil
}

func (r *fakeUsersRepo) get(login string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	return r.get(login)
}

func (r *fakeUsersRepo) GetUserByLoginForUpdate(_ context.Context, login string) (*models.User, error) {
	r.forUpdate++
	if len(r.forUpdateErrs) > 0 {
		err := r.forUpdateErrs[0]
		r.forUpdateErrs = r.forUpdateErrs[1:]
		return nil, err
	}
	return r.get(login)
}

func (r *fakeUsersRepo) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byLogin {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) byID(id string) *models.User {
	for _, u := range r.byLogin {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *fakeUsersRepo) UpdateLoginState(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID(user.ID)
	if u == nil {
		return common.ErrorNotFound
	}
	r.updates++
	u.FailedLoginAttempts = user.FailedLoginAttempts
	u.IsLocked = user.IsLocked
	u.LastLogin = user.LastLogin
	return nil
}

func (r *fakeUsersRepo) SetPassword(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byID(id)
	if u == nil {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	r.passwordSets[id] = hash
	return nil
}

func (r *fakeUsersRepo) Unlock(_ context.Context, login string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byLogin[login]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsLocked = false
	u.FailedLoginAttempts = 0
	return nil
}

func (r *fakeUsersRepo) ListAll(context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*models.User, 0, len(r.byLogin))
	for _, u := range r.byLogin {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

// --- companies, employees, expenses ---

type fakeCompaniesRepo struct {
	items map[string]*models.Company
	seq   int
	err   error
}

func (r *fakeCompaniesRepo) Create(_ context.Context, c *models.Company) (*models.Company, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.seq++
	c.ID = fmt.Sprintf("c%d", r.seq)
	r.items[c.ID] = c
	return c, nil
}

func (r *fakeCompaniesRepo) GetByID(_ context.Context, id string) (*models.Company, error) {
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCompaniesRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.Company, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Company
	for _, c := range r.items {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCompaniesRepo) Update(_ context.Context, c *models.Company) error {
	if _, ok := r.items[c.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *fakeCompaniesRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeEmployeesRepo struct {
	items map[string]*models.Employee
}

func (r *fakeEmployeesRepo) Create(_ context.Context, e *models.Employee) (*models.Employee, error) {
	e.ID = "e-new"
	r.items[e.ID] = e
	return e, nil
}

func (r *fakeEmployeesRepo) GetByID(_ context.Context, id string) (*models.Employee, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEmployeesRepo) ListByCompany(_ context.Context, companyID string) ([]*models.Employee, error) {
	var out []*models.Employee
	for _, e := range r.items {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEmployeesRepo) Update(_ context.Context, e *models.Employee) error {
	if _, ok := r.items[e.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *fakeEmployeesRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeExpensesRepo struct {
	items map[string]*models.Expense
}

func (r *fakeExpensesRepo) Create(_ context.Context, e *models.Expense) (*models.Expense, error) {
	e.ID = "x-new"
	r.items[e.ID] = e
	return e, nil
}

func (r *fakeExpensesRepo) GetByID(_ context.Context, id string) (*models.Expense, error) {
	e, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeExpensesRepo) list(keep func(*models.Expense) bool) []*models.Expense {
	var out []*models.Expense
	for _, e := range r.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeExpensesRepo) ListByCreator(_ context.Context, userID string) ([]*models.Expense, error) {
	return r.list(func(e *models.Expense) bool { return e.CreatorID == userID }), nil
}

func (r *fakeExpensesRepo) ListAll(context.Context) ([]*models.Expense, error) {
	return r.list(func(*models.Expense) bool { return true }), nil
}

func (r *fakeExpensesRepo) Update(_ context.Context, e *models.Expense) error {
	if _, ok := r.items[e.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *fakeExpensesRepo) SetReceiptKey(_ context.Context, id string, key string) error {
	e, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	e.ReceiptKey = &key
	return nil
}

func (r *fakeExpensesRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}

// --- summaries, sessions ---

type fakeSummariesRepo struct {
	items []*models.MonthlySummary
	err   error
}

func (r *fakeSummariesRepo) List(context.Context) ([]*models.MonthlySummary, error) {
	return r.items, r.err
}

func (r *fakeSummariesRepo) Upsert(_ context.Context, s *models.MonthlySummary) (*models.MonthlySummary, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i, cur := range r.items {
		if cur.Month == s.Month && cur.Year == s.Year {
			s.ID = cur.ID
			r.items[i] = s
			return s, nil
		}
	}
	s.ID = "s-new"
	r.items = append(r.items, s)
	return s, nil
}

type fakeSessionsRepo struct {
	mu      sync.Mutex
	items   map[string]*models.Session
	touches int
	err     error
}

func newFakeSessions() *fakeSessionsRepo {
	return &fakeSessionsRepo{items: map[string]*models.Session{}}
}

func (r *fakeSessionsRepo) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeSessionsRepo) Find(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionsRepo) Touch(_ context.Context, id string, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.touches++
	s.LastSeenAt = lastSeen
	return nil
}

func (r *fakeSessionsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeSessionsRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.items {
		if s.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	users     *fakeUsersRepo
	companies *fakeCompaniesRepo
	employees *fakeEmployeesRepo
	expenses  *fakeExpensesRepo
	summaries *fakeSummariesRepo
	sessions  *fakeSessionsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:     newFakeUsers(),
		companies: &fakeCompaniesRepo{items: map[string]*models.Company{}},
		employees: &fakeEmployeesRepo{items: map[string]*models.Employee{}},
		expenses:  &fakeExpensesRepo{items: map[string]*models.Expense{}},
		summaries: &fakeSummariesRepo{},
		sessions:  newFakeSessions(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Companies(dbx.DBTX) companies.Repository      { return m.companies }
func (m *fakeRepoManager) Employees(dbx.DBTX) employees.Repository      { return m.employees }
func (m *fakeRepoManager) Expenses(dbx.DBTX) expenses.Repository        { return m.expenses }
func (m *fakeRepoManager) Summaries(dbx.DBTX) summaries.Repository      { return m.summaries }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }

var (
	tenantA = &models.User{ID: "a", UserName: "alice", Role: "User", Active: true}
	tenantB = &models.User{ID: "b", UserName: "bob", Role: "User", Active: true}
	rootAdm = &models.User{ID: "root", UserName: "cubix", Role: "Admin", Active: true}
)

func strPtr(s string) *string { return &s }

// newTenantRepoManager seeds two tenants: alice owns ca with employee ea and
// expense xa, bob owns cb with employee eb and the company-less expense xb.
func newTenantRepoManager() *fakeRepoManager {
	rm := newFakeRepoManager()
	rm.users = newFakeUsers(tenantA, tenantB, rootAdm)
	rm.companies.items["ca"] = &models.Company{ID: "ca", OwnerID: "a", Name: "Alpha"}
	rm.companies.items["cb"] = &models.Company{ID: "cb", OwnerID: "b", Name: "Beta"}
	rm.employees.items["ea"] = &models.Employee{ID: "ea", CompanyID: "ca", Name: "Ana", GrossSalary: 1500}
	rm.employees.items["eb"] = &models.Employee{ID: "eb", CompanyID: "cb", Name: "Bruno", GrossSalary: 2000}
	rm.expenses.items["xa"] = &models.Expense{ID: "xa", CreatorID: "a", CompanyID: strPtr("ca"), TransactionType: "expense", GrossValue: 100}
	rm.expenses.items["xb"] = &models.Expense{ID: "xb", CreatorID: "b", TransactionType: "income", GrossValue: 50}
	return rm
}
