package middleware

import (
	"crypto/subtle"
	"net/http"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey returns middleware that gates the admin surface behind a shared
// header key. An empty configured key disables the surface entirely rather
// than leaving it open.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				http.Error(w, `{"error":"admin api disabled"}`, http.StatusForbidden)
				return
			}
			got := r.Header.Get(adminKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
