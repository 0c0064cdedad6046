package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AdminTokenHeader carries the operator token for the stats endpoint.
const AdminTokenHeader = "X-Admin-Token"

// AdminToken gates a route behind a static operator token. An empty token
// disables the route with 503 so "not configured" is distinct from "wrong token".
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeJSONError(w, http.StatusServiceUnavailable, "admin endpoint is not configured")
				return
			}
			got := r.Header.Get(AdminTokenHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
