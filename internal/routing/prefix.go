// internal/routing/prefix.go
//
// Path-prefix stripping for sites served below a shared domain.
//
// Context
// -------
// In path-prefix mode a site is reached at https://shared.example.com/<slug>/…
// The resolver records “/<slug>” as the RequestContext path prefix; this
// middleware removes it so component routes stay prefix-agnostic.  Links
// rendered back to the browser re-add it via RequestContext.URL.
//
// Workflow
// --------
//   1. tenant.Resolver.Middleware installs the RequestContext.
//   2. StripPrefix trims r.URL.Path (and RawPath) when a prefix is set,
//      plus chi's RoutePath, which mounted routers route on.
//   3. A request for exactly “/<slug>” is redirected to “/<slug>/”.
//
// Notes
// -----
// • Requests without a RequestContext pass through untouched.

package routing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/tenant"
)

// StripPrefix removes the tenant path prefix before routing.
func StripPrefix(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := tenant.FromContext(r.Context())
		if rc == nil || rc.PathPrefix == "" {
			next.ServeHTTP(w, r)
			return
		}

		prefix := rc.PathPrefix
		if r.URL.Path == prefix {
			target := prefix + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		if !strings.HasPrefix(r.URL.Path, prefix+"/") {
			next.ServeHTTP(w, r)
			return
		}

		r2 := r.Clone(r.Context())
		r2.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
		if r.URL.RawPath != "" {
			r2.URL.RawPath = strings.TrimPrefix(r.URL.RawPath, prefix)
		}
		if rctx := chi.RouteContext(r.Context()); rctx != nil && strings.HasPrefix(rctx.RoutePath, prefix+"/") {
			rctx.RoutePath = strings.TrimPrefix(rctx.RoutePath, prefix)
		}
		zap.L().Debug("path prefix stripped",
			zap.String("from", r.URL.Path),
			zap.String("to", r2.URL.Path))
		next.ServeHTTP(w, r2)
	})
}
