package httpserver

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

const (
	csrfFieldName  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// csrfMiddleware guards every unsafe request with a double-submit token. The
// token travels in the csrf_token form field or the X-CSRF-Token header and is
// echoed on each response in X-CSRF-Token.
func (s *Server) csrfMiddleware() []mux.MiddlewareFunc {
	key := sha256.Sum256([]byte("csrf:" + s.cfg.SecretKey))

	protect := csrf.Protect(key[:],
		csrf.Secure(s.cfg.SessionCookieSecure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(csrfSameSite(s.cfg.SameSite())),
		csrf.FieldName(csrfFieldName),
		csrf.RequestHeader(csrfHeaderName),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailed)),
	)

	return []mux.MiddlewareFunc{s.markPlaintext, protect, exposeCSRFToken}
}

// markPlaintext lets development servers without TLS pass the origin checks.
// With secure cookies configured every request is assumed to have arrived
// over HTTPS, possibly through a terminating proxy.
func (s *Server) markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !s.cfg.SessionCookieSecure {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func exposeCSRFToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := csrf.Token(r); token != "" {
			w.Header().Set(csrfHeaderName, token)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn(r.Context(), "csrf check failed",
		"request_id", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"reason", csrf.FailureReason(r),
		"remote", clientIP(r),
	)

	if r.URL.Path == "/login" && !wantsJSON(r) {
		p, _ := s.printer(r)
		s.renderLogin(w, r, http.StatusForbidden, p.Sprintf(msgFormExpired), r.PostForm.Get("username"))
		return
	}
	writeProblem(w, r, http.StatusForbidden, "missing or invalid CSRF token", nil)
}

func csrfSameSite(mode http.SameSite) csrf.SameSiteMode {
	switch mode {
	case http.SameSiteStrictMode:
		return csrf.SameSiteStrictMode
	case http.SameSiteNoneMode:
		return csrf.SameSiteNoneMode
	default:
		return csrf.SameSiteLaxMode
	}
}
