package transport

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// KeyMatcher checks a shared diagnostic secret. The configured secret may be
// stored in plain text or as a bcrypt hash.
type KeyMatcher struct {
	secret []byte
	hashed bool
}

// NewKeyMatcher creates a matcher for secret. An empty secret matches nothing.
func NewKeyMatcher(secret string) KeyMatcher {
	secret = strings.TrimSpace(secret)
	return KeyMatcher{
		secret: []byte(secret),
		hashed: isBcryptHash(secret),
	}
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// Enabled reports whether a secret is configured.
func (m KeyMatcher) Enabled() bool {
	return len(m.secret) > 0
}

// Match reports whether key is the configured secret.
func (m KeyMatcher) Match(key string) bool {
	if !m.Enabled() || key == "" {
		return false
	}
	if m.hashed {
		return bcrypt.CompareHashAndPassword(m.secret, []byte(key)) == nil
	}
	return subtle.ConstantTimeCompare(m.secret, []byte(key)) == 1
}

// maxDiagnosticBody caps the diagnostic form, which only carries a key and a number.
const maxDiagnosticBody = 64 << 10

// DiagnosticAuth rejects requests whose "key" form value (or X-Diagnostics-Key
// header) does not match. Bodies over maxDiagnosticBody get 413.
func DiagnosticAuth(matcher KeyMatcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxDiagnosticBody)
			if err := r.ParseForm(); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeJSONError(w, http.StatusRequestEntityTooLarge, "request too large")
					return
				}
				writeJSONError(w, http.StatusBadRequest, "malformed form")
				return
			}

			key := r.Header.Get("X-Diagnostics-Key")
			if key == "" {
				key = r.FormValue("key")
			}
			if !matcher.Match(strings.TrimSpace(key)) {
				writeJSONError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
