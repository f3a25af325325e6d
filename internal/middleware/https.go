// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"

	"github.com/yanizio/adeptbill/internal/tenant"
)

// HostChecker reports whether a host belongs to a known site.
// *tenant.Resolver satisfies it.
type HostChecker interface {
	Lookup(ctx context.Context, host string) bool
}

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not
// “localhost”, and sites confirms the host exists, the wrapper issues a 308
// Permanent Redirect to the HTTPS version of the same URL.  Otherwise it
// calls the next handler unchanged, so unknown hosts still reach the
// resolver and get its 404.
func ForceHTTPS(sites HostChecker, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := tenant.StripPort(r.Host)
		if isHTTPS(r) || host == "localhost" || host == "" {
			h.ServeHTTP(w, r)
			return
		}

		if sites.Lookup(r.Context(), r.Host) {
			target := "https://" + host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
