package httpserver

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/csrf"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/server/lockout"
)

const maxFormBytes = 16 << 10

type loginView struct {
	Lang          string
	Title         string
	UsernameLabel string
	PasswordLabel string
	Submit        string
	Message       string
	UserName      string
	CSRFField     template.HTML
}

// loginFailure is everything needed to answer a rejected login, either as
// the re-rendered form or as problem+json.
type loginFailure struct {
	status    int
	key       string
	args      []any
	outcome   string
	attempts  int
	threshold int
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, http.StatusOK, "", "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, message, userName string) {
	p, tag := s.printer(r)
	view := loginView{
		Lang:          tag.String(),
		Title:         p.Sprintf(msgTitle),
		UsernameLabel: p.Sprintf(msgUsername),
		PasswordLabel: p.Sprintf(msgPassword),
		Submit:        p.Sprintf(msgSubmit),
		Message:       message,
		UserName:      userName,
		CSRFField:     csrf.TemplateField(r),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", tag.String())
	w.WriteHeader(status)
	if err := s.loginTmpl.Execute(w, view); err != nil {
		s.logger.Error(r.Context(), "render login", "error", err)
	}
}

func (s *Server) loginFailed(w http.ResponseWriter, r *http.Request, f loginFailure, userName string) {
	p, _ := s.printer(r)
	msg := p.Sprintf(f.key, f.args...)

	if wantsJSON(r) {
		extra := map[string]any{}
		if f.outcome != "" {
			extra["outcome"] = f.outcome
		}
		if f.threshold > 0 {
			extra["attempts"] = f.attempts
			extra["threshold"] = f.threshold
		}
		if len(extra) == 0 {
			extra = nil
		}
		writeProblem(w, r, f.status, msg, extra)
		return
	}
	s.renderLogin(w, r, f.status, msg, userName)
}

// failureFor maps a rejected login outcome to its response.
func (s *Server) failureFor(res lockout.Result) loginFailure {
	f := loginFailure{outcome: res.Outcome.String()}

	switch res.Outcome {
	case lockout.UserNotFound:
		f.status, f.key = http.StatusUnauthorized, msgUserNotFound
	case lockout.InvalidPassword:
		f.status, f.key = http.StatusUnauthorized, msgInvalidPassword
		f.args = []any{res.Attempts, res.Threshold}
		f.attempts, f.threshold = res.Attempts, res.Threshold
	case lockout.AccountLocked:
		f.status, f.key = http.StatusLocked, msgAccountLocked
	case lockout.AccountNowLocked:
		f.status, f.key = http.StatusLocked, msgAccountNowLocked
	default:
		f.status, f.key = http.StatusInternalServerError, msgInternal
	}

	if s.cfg.HideUserEnumeration && f.status == http.StatusUnauthorized {
		f = loginFailure{status: http.StatusUnauthorized, key: msgInvalidCredentials, outcome: "invalid_credentials"}
	}
	return f
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if ok, wait := s.limiter.allow(clientIP(r)); !ok {
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		s.loginFailed(w, r, loginFailure{status: http.StatusTooManyRequests, key: msgTooManyRequests}, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.loginFailed(w, r, loginFailure{status: http.StatusBadRequest, key: msgMissingFields}, "")
		return
	}

	userName := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if userName == "" || password == "" {
		s.loginFailed(w, r, loginFailure{status: http.StatusBadRequest, key: msgMissingFields}, userName)
		return
	}

	res, err := s.auth.Login(ctx, userName, password)
	if err != nil {
		s.loginFailed(w, r, s.unavailable(err), userName)
		return
	}

	if res.Outcome != lockout.Authenticated {
		s.loginFailed(w, r, s.failureFor(res.Result), userName)
		return
	}

	issued, err := s.sessions.Issue(ctx, res.User)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.loginFailed(w, r, loginFailure{status: http.StatusUnauthorized, key: msgInactive, outcome: "inactive"}, userName)
			return
		}
		s.loginFailed(w, r, s.unavailable(err), userName)
		return
	}

	s.setSessionCookie(w, issued)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"outcome": lockout.Authenticated.String()})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// unavailable maps a failure to evaluate the attempt at all.
func (s *Server) unavailable(err error) loginFailure {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return loginFailure{status: http.StatusBadRequest, key: msgMissingFields}
	case http.StatusServiceUnavailable:
		return loginFailure{status: http.StatusServiceUnavailable, key: msgUnavailable}
	default:
		return loginFailure{status: http.StatusInternalServerError, key: msgInternal}
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		if err := s.sessions.Revoke(r.Context(), c.Value); err != nil {
			s.logger.Warn(r.Context(), "revoke session", "error", err)
		}
	}
	s.clearSessionCookie(w)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
