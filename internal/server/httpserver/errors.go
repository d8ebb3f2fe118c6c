package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/cadete/internal/common"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Extra     any    `json:"extra,omitempty"`
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, extra any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    detail,
		RequestID: RequestIDFromContext(r.Context()),
		Extra:     extra,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrTransient), errors.Is(err, common.ErrStorageNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a problem. Only validation errors expose their
// message; everything else gets a fixed detail so no stored data or driver
// text reaches the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	var detail string
	switch status {
	case http.StatusBadRequest:
		detail = err.Error()
	case http.StatusUnauthorized:
		detail = "authentication required"
	case http.StatusForbidden:
		detail = "you do not have access to this resource"
	case http.StatusNotFound:
		detail = "resource not found"
	case http.StatusConflict:
		detail = "resource already exists"
	case http.StatusServiceUnavailable:
		detail = "service temporarily unavailable, try again later"
	default:
		detail = "internal error"
		s.logger.Error(r.Context(), "request failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
	}

	writeProblem(w, r, status, detail, nil)
}
