package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/zhouzirui/chatroom/pkg/utils"
)

const (
	CSRFCookieName = "csrftoken"
	CSRFHeaderName = "X-CSRFToken"
)

// EnsureCSRFCookie hands out a csrftoken cookie to clients that have none.
// The cookie is readable from page scripts, which echo it back in the
// X-CSRFToken header.
func EnsureCSRFCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if csrfCookie(r) == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    strings.ReplaceAll(uuid.NewString(), "-", ""),
				Path:     "/",
				MaxAge:   365 * 24 * 60 * 60,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCSRF rejects unsafe requests whose X-CSRFToken header does not
// match the csrftoken cookie.
func RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		cookie := csrfCookie(r)
		header := strings.TrimSpace(r.Header.Get(CSRFHeaderName))
		if cookie == "" || header == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			utils.RespondError(w, http.StatusForbidden, "csrf token missing or incorrect")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func csrfCookie(r *http.Request) string {
	c, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	value, err := url.PathUnescape(c.Value)
	if err != nil {
		return c.Value
	}
	return strings.TrimSpace(value)
}
