// internal/tenant/resolver.go
//
// Site Resolver.
//
// Context
// -------
// Every request passes through Resolver.Middleware before any component
// sees it.  The middleware:
//
//   1. Resolves host (and, in path-prefix mode, the first path segment) to
//      exactly one Tenant through the Cache.
//   2. Installs a RequestContext into the request's context.Context.
//   3. Resets the RequestContext when the handler returns, panics
//      included.
//
// Failures are handed to an ErrorHandler so the HTTP layer can render a
// content-negotiated page: ErrNotFound as 404, ErrAmbiguous and database
// failures as 500.

package tenant

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/metrics"
	"github.com/yanizio/adeptbill/internal/requestinfo"
)

// ErrorHandler renders a resolution failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Options tunes a Resolver.
type Options struct {
	PathPrefix     bool   // fall back to /<slug>/… when no domain matches
	LocalhostAlias string // domain served for Host: localhost
	DefaultScheme  string // scheme used when the request carries none
}

// Resolver maps requests to tenants.
type Resolver struct {
	cache *Cache
	opts  Options
}

// NewResolver returns a Resolver backed by cache.
func NewResolver(cache *Cache, opts Options) *Resolver {
	if opts.DefaultScheme == "" {
		opts.DefaultScheme = "https"
	}
	return &Resolver{cache: cache, opts: opts}
}

// Resolve returns the tenant serving host and path plus the URL path
// prefix that selected it ("" for domain matches).
func (res *Resolver) Resolve(ctx context.Context, host, path string) (*Tenant, string, error) {
	lookup := resolveLookupHost(StripPort(host), res.opts.LocalhostAlias)

	t, err := res.cache.Get(ctx, lookup)
	if err == nil {
		return t, "", nil
	}
	if !errors.Is(err, ErrNotFound) || !res.opts.PathPrefix {
		return nil, "", res.count(err)
	}

	slug := firstSegment(path)
	if slug == "" {
		return nil, "", res.count(err)
	}
	t, err = res.cache.Get(ctx, slugKeyPrefix+slug)
	if err != nil {
		return nil, "", res.count(err)
	}
	return t, "/" + slug, nil
}

// Lookup reports whether host is served by a known tenant.
func (res *Resolver) Lookup(ctx context.Context, host string) bool {
	lookup := resolveLookupHost(StripPort(host), res.opts.LocalhostAlias)
	_, err := res.cache.Get(ctx, lookup)
	return err == nil
}

func (res *Resolver) count(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.TenantResolveErrorsTotal.WithLabelValues("not_found").Inc()
	case errors.Is(err, ErrAmbiguous):
		metrics.TenantResolveErrorsTotal.WithLabelValues("ambiguous").Inc()
	default:
		metrics.TenantResolveErrorsTotal.WithLabelValues("backend").Inc()
	}
	return err
}

// Middleware installs the RequestContext for the wrapped handler.
func (res *Resolver) Middleware(onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := acquire()
			defer release(rc)

			rc.Host = StripPort(r.Host)
			rc.Scheme = res.scheme(r)
			rc.Info = requestinfo.FromContext(r.Context())
			ctx := WithRequestContext(r.Context(), rc)
			r = r.WithContext(ctx)

			t, prefix, err := res.Resolve(ctx, r.Host, r.URL.Path)
			if err != nil {
				logResolveError(r, err)
				onError(w, r, err)
				return
			}
			rc.Tenant = t
			rc.PathPrefix = prefix

			next.ServeHTTP(w, r)
		})
	}
}

func (res *Resolver) scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		return p
	}
	return res.opts.DefaultScheme
}

func logResolveError(r *http.Request, err error) {
	fields := []zap.Field{zap.String("host", r.Host), zap.String("path", r.URL.Path), zap.Error(err)}
	switch {
	case errors.Is(err, ErrNotFound):
		zap.L().Debug("tenant not found", fields...)
	case errors.Is(err, ErrAmbiguous):
		zap.L().Error("duplicate site domain", fields...)
	default:
		zap.L().Error("tenant resolution failed", fields...)
	}
}
