package httpserver

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys of the login page.
const (
	msgTitle              = "login.title"
	msgUsername           = "login.username"
	msgPassword           = "login.password"
	msgSubmit             = "login.submit"
	msgUserNotFound       = "login.user_not_found"
	msgAccountLocked      = "login.account_locked"
	msgInvalidPassword    = "login.invalid_password"
	msgAccountNowLocked   = "login.account_now_locked"
	msgInvalidCredentials = "login.invalid_credentials"
	msgMissingFields      = "login.missing_fields"
	msgTooManyRequests    = "login.too_many_requests"
	msgUnavailable        = "login.unavailable"
	msgInactive           = "login.inactive"
	msgInternal           = "login.internal"
	msgFormExpired        = "login.form_expired"
)

var (
	langPT = language.BrazilianPortuguese
	langEN = language.English

	// The first tag is the default.
	langMatcher = language.NewMatcher([]language.Tag{langPT, langEN})
)

var translations = map[string][2]string{ // pt, en
	msgTitle:              {"Entrar", "Sign in"},
	msgUsername:           {"Usuário", "Username"},
	msgPassword:           {"Senha", "Password"},
	msgSubmit:             {"Entrar", "Sign in"},
	msgUserNotFound:       {"Usuário não encontrado!", "User not found!"},
	msgAccountLocked:      {"Usuário bloqueado! Entre em contato com o suporte.", "User locked! Please contact support."},
	msgInvalidPassword:    {"Senha incorreta! Tentativa %d/%d", "Wrong password! Attempt %d/%d"},
	msgAccountNowLocked:   {"Muitas tentativas falhas! Usuário bloqueado.", "Too many failed attempts! User locked."},
	msgInvalidCredentials: {"Usuário ou senha incorretos!", "Wrong username or password!"},
	msgMissingFields:      {"Preencha usuário e senha.", "Please enter username and password."},
	msgTooManyRequests:    {"Muitas tentativas. Tente novamente em instantes.", "Too many attempts. Please try again shortly."},
	msgUnavailable:        {"Serviço indisponível. Tente novamente mais tarde.", "Service unavailable. Please try again later."},
	msgInactive:           {"Usuário inativo! Entre em contato com o suporte.", "User inactive! Please contact support."},
	msgInternal:           {"Erro interno. Tente novamente.", "Internal error. Please try again."},
	msgFormExpired:        {"O formulário expirou. Recarregue a página e tente novamente.", "The form has expired. Reload the page and try again."},
}

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(langPT))
	for key, t := range translations {
		if err := b.SetString(langPT, key, t[0]); err != nil {
			panic(err)
		}
		if err := b.SetString(langEN, key, t[1]); err != nil {
			panic(err)
		}
	}
	return b
}

// requestLanguage picks Portuguese or English from Accept-Language.
func requestLanguage(r *http.Request) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return langPT
	}
	if idx == 1 {
		return langEN
	}
	return langPT
}

func (s *Server) printer(r *http.Request) (*message.Printer, language.Tag) {
	tag := requestLanguage(r)
	return message.NewPrinter(tag, message.Catalog(s.catalog)), tag
}
