package transport

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const (
	languageCookie    = "lang"
	languageCookieAge = 365 * 24 * time.Hour
	defaultLanguage   = "en"
)

// Language is one entry of the language picker.
type Language struct {
	Code   string
	Name   string
	Native string
}

var supportedCodes = []string{"en", "hi", "bn", "ta", "te", "ml", "gu", "mr", "kn", "pa", "ur"}

var (
	supportedTags   []language.Tag
	languages       []Language
	languageMatcher language.Matcher
)

func init() {
	english := display.English.Tags()
	for _, code := range supportedCodes {
		tag := language.MustParse(code)
		supportedTags = append(supportedTags, tag)
		languages = append(languages, Language{
			Code:   code,
			Name:   english.Name(tag),
			Native: display.Self.Name(tag),
		})
	}
	languageMatcher = language.NewMatcher(supportedTags)
}

// Languages returns the selectable languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// ParseLanguage validates a BCP 47 code against the supported list and
// returns its canonical base code ("hi-IN" -> "hi").
func ParseLanguage(code string) (string, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	for _, supported := range supportedCodes {
		if base.String() == supported {
			return supported, true
		}
	}
	return "", false
}

type languageKey struct{}

// LanguageFromContext returns the request language, defaulting to English.
func LanguageFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(languageKey{}).(string); ok {
		return lang
	}
	return defaultLanguage
}

// LanguageMiddleware resolves the display language from the lang cookie,
// then Accept-Language, then the default.
func LanguageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := defaultLanguage
		if c, err := r.Cookie(languageCookie); err == nil {
			if code, ok := ParseLanguage(c.Value); ok {
				lang = code
			}
		} else if accept := r.Header.Get("Accept-Language"); accept != "" {
			if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
				_, idx, conf := languageMatcher.Match(tags...)
				if conf != language.No {
					lang = supportedCodes[idx]
				}
			}
		}
		ctx := context.WithValue(r.Context(), languageKey{}, lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setLanguageCookie(w http.ResponseWriter, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     languageCookie,
		Value:    code,
		Path:     "/",
		MaxAge:   int(languageCookieAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}
