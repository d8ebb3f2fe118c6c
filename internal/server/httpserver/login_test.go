package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/cadete/internal/common"
)

func TestLogin_CadeteLocksAfterThreeWrongPasswords(t *testing.T) {
	env := newTestEnv()
	h := env.server().Handler()

	steps := []struct {
		password string
		status   int
		message  string
	}{
		{"x", http.StatusUnauthorized, "Senha incorreta! Tentativa 1/3"},
		{"x", http.StatusUnauthorized, "Senha incorreta! Tentativa 2/3"},
		{"x", http.StatusLocked, "Muitas tentativas falhas! Usuário bloqueado."},
		{"cadete", http.StatusLocked, "Usuário bloqueado! Entre em contato com o suporte."},
	}

	for i, st := range steps {
		rec := postLogin(t, h, "cadete", st.password)
		assert.Equal(t, st.status, rec.Code, "step %d", i+1)
		assert.Contains(t, rec.Body.String(), st.message, "step %d", i+1)
		assert.Empty(t, rec.Result().Cookies(), "step %d", i+1)
	}

	u := env.auth.users["cadete"]
	assert.True(t, u.IsLocked)
	assert.Equal(t, 3, u.FailedLoginAttempts)
}

func TestLogin_UnknownUser(t *testing.T) {
	h := newTestEnv().server().Handler()

	rec := postLogin(t, h, "ghost", "x")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuário não encontrado!")
	assert.Contains(t, rec.Body.String(), `value="ghost"`)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestLogin_SuccessIssuesSessionAndRedirects(t *testing.T) {
	env := newTestEnv()
	h := env.server().Handler()

	rec := postLogin(t, h, "cadete", "x")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postLogin(t, h, "cadete", "cadete")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, 0, env.auth.users["cadete"].FailedLoginAttempts)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, common.SessionCookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	rec = do(t, h, http.MethodGet, "/dashboard", nil, withCookie(c), asJSON)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestLogin_JSONClientGetsProblem(t *testing.T) {
	h := newTestEnv().server().Handler()

	rec := postLogin(t, h, "cadete", "x", asJSON)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p struct {
		Status int            `json:"status"`
		Detail string         `json:"detail"`
		Extra  map[string]any `json:"extra"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, http.StatusUnauthorized, p.Status)
	assert.Equal(t, "Senha incorreta! Tentativa 1/3", p.Detail)
	assert.Equal(t, "invalid_password", p.Extra["outcome"])
	assert.EqualValues(t, 1, p.Extra["attempts"])
	assert.EqualValues(t, 3, p.Extra["threshold"])

	rec = postLogin(t, h, "cadete", "cadete", asJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome":"authenticated"}`, rec.Body.String())
}

func TestLogin_English(t *testing.T) {
	h := newTestEnv().server().Handler()

	rec := postLogin(t, h, "cadete", "x", withLang("en-US,en;q=0.9"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Wrong password! Attempt 1/3")
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	rec = postLogin(t, h, "ghost", "x", withLang("de"))
	assert.Contains(t, rec.Body.String(), "Usuário não encontrado!")
}

func TestLogin_HideUserEnumeration(t *testing.T) {
	env := newTestEnv()
	env.cfg.HideUserEnumeration = true
	h := env.server().Handler()

	ghost := postLogin(t, h, "ghost", "x", asJSON)
	wrong := postLogin(t, h, "cadete", "x", asJSON)

	assert.Equal(t, http.StatusUnauthorized, ghost.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Contains(t, ghost.Body.String(), "Usuário ou senha incorretos!")
	assert.Contains(t, wrong.Body.String(), "Usuário ou senha incorretos!")
	assert.NotContains(t, wrong.Body.String(), "attempts")

	// the attempt still counts
	assert.Equal(t, 1, env.auth.users["cadete"].FailedLoginAttempts)
}

func TestLogin_MissingFields(t *testing.T) {
	h := newTestEnv().server().Handler()

	for _, tc := range [][2]string{{"", "x"}, {"cadete", ""}, {"   ", "x"}} {
		rec := postLogin(t, h, tc[0], tc[1])
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc)
		assert.Contains(t, rec.Body.String(), "Preencha usuário e senha.")
	}
}

func TestLogin_StorageFailure(t *testing.T) {
	env := newTestEnv()
	env.auth.err = fmt.Errorf("%w: deadline", common.ErrTransient)
	h := env.server().Handler()

	rec := postLogin(t, h, "cadete", "cadete")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Serviço indisponível")
	assert.Empty(t, rec.Result().Cookies())

	env.auth.err = fmt.Errorf("db error: boom")
	rec = postLogin(t, h, "cadete", "cadete", asJSON)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestLogin_InactiveUserGetsNoSession(t *testing.T) {
	env := newTestEnv()
	h := env.server().Handler()

	rec := postLogin(t, h, "idle", "idle")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Usuário inativo!")
	assert.Empty(t, rec.Result().Cookies())
	assert.Empty(t, env.sessions.byCookie)
}

func TestLogin_SessionStoreFailure(t *testing.T) {
	env := newTestEnv()
	env.sessions.issueErr = fmt.Errorf("error creating session: %w", common.ErrTransient)
	h := env.server().Handler()

	rec := postLogin(t, h, "cadete", "cadete")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv()
	env.cfg.LoginRatePerMinute = 1
	env.cfg.LoginRateBurst = 2
	h := env.server().Handler()

	for i := 0; i < 2; i++ {
		rec := postLogin(t, h, "ghost", "x")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := postLogin(t, h, "cadete", "cadete")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Muitas tentativas.")
	assert.Equal(t, 0, env.auth.users["cadete"].FailedLoginAttempts)
}

func TestLoginPage(t *testing.T) {
	h := newTestEnv().server().Handler()

	rec := do(t, h, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="pt-BR">`)
	assert.Contains(t, body, `name="password"`)
	assert.False(t, strings.Contains(body, `class="error"`))
}

func TestLogout(t *testing.T) {
	env := newTestEnv()
	h := env.server().Handler()
	c := env.sessionFor(tenant)

	rec := do(t, h, http.MethodGet, "/logout", nil, withCookie(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, []string{c.Value}, env.sessions.revoked)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	rec = do(t, h, http.MethodGet, "/dashboard", nil, withCookie(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestHomeRedirectsToDashboard(t *testing.T) {
	env := newTestEnv()
	rec := do(t, env.server().Handler(), http.MethodGet, "/", nil, withCookie(env.sessionFor(tenant)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}
