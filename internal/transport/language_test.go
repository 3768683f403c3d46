package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLanguage(t *testing.T) {
	valid := map[string]string{"en": "en", "hi": "hi", "hi-IN": "hi", "ur": "ur", "TA": "ta"}
	for in, want := range valid {
		got, ok := ParseLanguage(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	for _, in := range []string{"", "fr", "xx-invalid-tag-!", "../"} {
		_, ok := ParseLanguage(in)
		require.False(t, ok, in)
	}
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	require.Len(t, langs, len(supportedCodes))
	require.Equal(t, "en", langs[0].Code)
	require.Equal(t, "Hindi", langs[1].Name)
	for _, l := range langs {
		require.NotEmpty(t, l.Native, l.Code)
	}
}

func TestLanguageMiddleware(t *testing.T) {
	var got string
	handler := LanguageMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LanguageFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "en", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: languageCookie, Value: "bn"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "bn", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: languageCookie, Value: "klingon"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "en", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ta-IN,ta;q=0.9,en;q=0.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "ta", got)
}
