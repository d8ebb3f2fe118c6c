package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}
	return nil
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// companies

func (s *Server) listCompanies(w http.ResponseWriter, r *http.Request) {
	out, err := s.companies.List(r.Context(), UserFromContext(r.Context()))
	s.respond(w, r, http.StatusOK, nonNil(out), err)
}

func (s *Server) getCompany(w http.ResponseWriter, r *http.Request) {
	out, err := s.companies.Get(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) createCompany(w http.ResponseWriter, r *http.Request) {
	var in models.Company
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.companies.Create(r.Context(), UserFromContext(r.Context()), &in)
	s.respond(w, r, http.StatusCreated, out, err)
}

func (s *Server) updateCompany(w http.ResponseWriter, r *http.Request) {
	var in models.Company
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.companies.Update(r.Context(), UserFromContext(r.Context()), pathID(r), &in)
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) deleteCompany(w http.ResponseWriter, r *http.Request) {
	err := s.companies.Delete(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

// employees

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	out, err := s.employees.ListByCompany(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, nonNil(out), err)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	out, err := s.employees.Get(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.Employee
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.employees.Create(r.Context(), UserFromContext(r.Context()), pathID(r), &in)
	s.respond(w, r, http.StatusCreated, out, err)
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.Employee
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.employees.Update(r.Context(), UserFromContext(r.Context()), pathID(r), &in)
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	err := s.employees.Delete(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

// expenses

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	out, err := s.expenses.List(r.Context(), UserFromContext(r.Context()))
	s.respond(w, r, http.StatusOK, nonNil(out), err)
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	out, err := s.expenses.Get(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) createExpense(w http.ResponseWriter, r *http.Request) {
	var in models.Expense
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.expenses.Create(r.Context(), UserFromContext(r.Context()), &in)
	s.respond(w, r, http.StatusCreated, out, err)
}

func (s *Server) updateExpense(w http.ResponseWriter, r *http.Request) {
	var in models.Expense
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.expenses.Update(r.Context(), UserFromContext(r.Context()), pathID(r), &in)
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	err := s.expenses.Delete(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) receiptUploadURL(w http.ResponseWriter, r *http.Request) {
	out, err := s.expenses.ReceiptUploadURL(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, out, err)
}

func (s *Server) receiptDownloadURL(w http.ResponseWriter, r *http.Request) {
	out, err := s.expenses.ReceiptDownloadURL(r.Context(), UserFromContext(r.Context()), pathID(r))
	s.respond(w, r, http.StatusOK, out, err)
}

// dashboard

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	out, err := s.dashboard.Summaries(r.Context(), UserFromContext(r.Context()))
	s.respond(w, r, http.StatusOK, nonNil(out), err)
}

func (s *Server) upsertSummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, errY := strconv.Atoi(vars["year"])
	month, errM := strconv.Atoi(vars["month"])
	if errY != nil || errM != nil {
		s.writeError(w, r, fmt.Errorf("%w: year and month must be numbers", common.ErrValidation))
		return
	}

	var in models.MonthlySummary
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.Year, in.Month = year, month

	out, err := s.dashboard.UpsertSummary(r.Context(), UserFromContext(r.Context()), &in)
	s.respond(w, r, http.StatusOK, out, err)
}
