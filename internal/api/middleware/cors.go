// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strings"
)

const corsMethods = "GET, HEAD, OPTIONS"

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers
// for a strict list of allowed origins. The endpoints are read-only, so
// credentials are never allowed.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	allowAll := allowed["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			// Disallowed origins get no Allow-Origin header; the browser blocks them.
			if origin != "" && (allowAll || allowed[origin]) {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "Content-Length, Date, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")

			if vary := h.Get("Vary"); vary == "" {
				h.Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")
			} else if !strings.Contains(vary, "Origin") {
				h.Set("Vary", vary+", Origin")
			}

			if r.Method == http.MethodOptions {
				h.Set("Allow", corsMethods)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
