package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, s.accessLog, s.recoverer, securityHeaders)
	if s.cfg.CSRFEnabled {
		r.Use(s.csrfMiddleware()...)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "resource not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.HandleFunc("/healthz", s.liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readiness).Methods(http.MethodGet)

	r.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)

	app := r.NewRoute().Subrouter()
	app.Use(s.requireSession)

	app.HandleFunc("/", s.home).Methods(http.MethodGet)
	app.HandleFunc("/logout", s.logout).Methods(http.MethodGet)
	app.HandleFunc("/dashboard", s.listSummaries).Methods(http.MethodGet)

	app.HandleFunc("/company", s.listCompanies).Methods(http.MethodGet)
	app.HandleFunc("/company", s.createCompany).Methods(http.MethodPost)
	app.HandleFunc("/company/{id}", s.getCompany).Methods(http.MethodGet)
	app.HandleFunc("/company/{id}", s.updateCompany).Methods(http.MethodPut)
	app.HandleFunc("/company/{id}", s.deleteCompany).Methods(http.MethodDelete)

	app.HandleFunc("/company/{id}/employee", s.listEmployees).Methods(http.MethodGet)
	app.HandleFunc("/company/{id}/employee", s.createEmployee).Methods(http.MethodPost)
	app.HandleFunc("/employee/{id}", s.getEmployee).Methods(http.MethodGet)
	app.HandleFunc("/employee/{id}", s.updateEmployee).Methods(http.MethodPut)
	app.HandleFunc("/employee/{id}", s.deleteEmployee).Methods(http.MethodDelete)

	app.HandleFunc("/expenses", s.listExpenses).Methods(http.MethodGet)
	app.HandleFunc("/expenses", s.createExpense).Methods(http.MethodPost)
	app.HandleFunc("/expenses/{id}", s.getExpense).Methods(http.MethodGet)
	app.HandleFunc("/expenses/{id}", s.updateExpense).Methods(http.MethodPut)
	app.HandleFunc("/expenses/{id}", s.deleteExpense).Methods(http.MethodDelete)
	app.HandleFunc("/expenses/{id}/receipt", s.receiptUploadURL).Methods(http.MethodPost)
	app.HandleFunc("/expenses/{id}/receipt", s.receiptDownloadURL).Methods(http.MethodGet)

	admin := app.NewRoute().Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/dashboard/summaries/{year:[0-9]+}/{month:[0-9]+}", s.upsertSummary).Methods(http.MethodPut)

	return r
}
