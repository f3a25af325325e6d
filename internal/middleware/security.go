// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects standard headers on every response:
//
//   • Strict-Transport-Security  (only when HSTS is enabled)
//   • Content-Security-Policy    self-only default
//   • X-Frame-Options            click-jacking defence
//   • X-Content-Type-Options     MIME-sniffing defence
//   • Referrer-Policy            drops path/query from Referer
//   • Permissions-Policy         disables powerful features
//
// Notes
// -----
// • Headers are set before next runs; a handler that needs a different
//   value simply overwrites it.  Setting them afterwards would be a no-op
//   once the handler has written the status line.
// • HSTS is tied to http.force_https so development hosts served over
//   plain HTTP do not get pinned by the browser.

package middleware

import "net/http"

// Security returns the header middleware.
func Security(hsts bool) func(http.Handler) http.Handler {
	headers := map[string]string{
		"Content-Security-Policy": "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
			"base-uri 'self'; frame-ancestors 'none'",
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}
	if hsts {
		headers["Strict-Transport-Security"] = "max-age=63072000; includeSubDomains; preload"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				if h.Get(k) == "" {
					h.Set(k, v)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
