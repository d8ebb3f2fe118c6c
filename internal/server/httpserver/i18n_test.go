package httpserver

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestRequestLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", langPT},
		{"pt-BR,pt;q=0.9", langPT},
		{"pt-PT", langPT},
		{"en-GB", langEN},
		{"fr, en;q=0.5", langEN},
		{"de", langPT},
		{"not a header;;", langPT},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/login", nil)
		r.Header.Set("Accept-Language", tt.header)
		assert.Equal(t, tt.want, requestLanguage(r), tt.header)
	}
}

func TestCatalogCoversEveryKey(t *testing.T) {
	cat := newCatalog()
	for key, want := range translations {
		pt := message.NewPrinter(langPT, message.Catalog(cat))
		en := message.NewPrinter(langEN, message.Catalog(cat))
		if key == msgInvalidPassword {
			assert.Equal(t, "Senha incorreta! Tentativa 2/3", pt.Sprintf(key, 2, 3))
			assert.Equal(t, "Wrong password! Attempt 2/3", en.Sprintf(key, 2, 3))
			continue
		}
		assert.Equal(t, want[0], pt.Sprintf(key), key)
		assert.Equal(t, want[1], en.Sprintf(key), key)
	}
}
