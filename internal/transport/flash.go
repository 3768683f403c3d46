package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "flash"

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the page after a redirect.
type Flash struct {
	Level   string
	Message string
}

type flashKey struct{}

// FlashFromContext returns the flash message from context, if present.
func FlashFromContext(ctx context.Context) (Flash, bool) {
	f, ok := ctx.Value(flashKey{}).(Flash)
	return f, ok
}

// FlashMiddleware moves a pending flash cookie into the request context and
// expires it so it is shown once.
func FlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(flashCookie)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})

		f, ok := decodeFlash(c.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), flashKey{}, f)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setFlash(w http.ResponseWriter, level, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(level + ":" + message),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func decodeFlash(raw string) (Flash, bool) {
	value, err := url.QueryUnescape(raw)
	if err != nil {
		return Flash{}, false
	}
	level, message, ok := strings.Cut(value, ":")
	if !ok || message == "" {
		return Flash{}, false
	}
	if level != FlashSuccess {
		level = FlashError
	}
	return Flash{Level: level, Message: message}, true
}

// redirectWithFlash sets a flash message and answers 303 See Other.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, level, message string) {
	setFlash(w, level, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
