package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl returns a middleware that sets a public Cache-Control header on GET responses.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return CacheDirective(fmt.Sprintf("public, max-age=%d", maxAge))
}

// NoStore marks responses as uncacheable. Review payloads are always fetched live.
func NoStore() func(http.Handler) http.Handler {
	return CacheDirective("no-store")
}

// CacheDirective sets the given Cache-Control value on GET and POST responses.
func CacheDirective(directive string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodPost {
				w.Header().Set("Cache-Control", directive)
			}
			next.ServeHTTP(w, r)
		})
	}
}
