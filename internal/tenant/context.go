// context.go defines the per-request RequestContext.  The resolver
// middleware creates one per request, threads it through the request's
// context.Context, and resets it when the request completes so nothing
// leaks into the next request served from the same pool slot.
package tenant

import (
	"context"
	"sync"

	"github.com/yanizio/adeptbill/internal/requestinfo"
)

// RequestContext carries the tenant-scoped state of one request.
type RequestContext struct {
	Tenant     *Tenant                  // nil when no site was resolved
	PathPrefix string                   // "/acme" in path-prefix mode, else ""
	Scheme     string                   // "https" or "http"
	Host       string                   // request host without port
	Info       *requestinfo.RequestInfo // UA, geo, timestamp; may be nil
}

// URL builds an absolute URL for a tenant-relative path.
func (rc *RequestContext) URL(path string) string {
	return rc.Scheme + "://" + rc.Host + rc.PathPrefix + path
}

// Reset clears every field.
func (rc *RequestContext) Reset() { *rc = RequestContext{} }

var rcPool = sync.Pool{New: func() any { return new(RequestContext) }}

func acquire() *RequestContext { return rcPool.Get().(*RequestContext) }

func release(rc *RequestContext) {
	rc.Reset()
	rcPool.Put(rc)
}

type ctxKey struct{}

// WithRequestContext returns a copy of ctx carrying rc.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext returns the RequestContext installed by the resolver, or nil
// when the middleware has not run.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

// Current returns the resolved tenant, or nil.
func Current(ctx context.Context) *Tenant {
	if rc := FromContext(ctx); rc != nil {
		return rc.Tenant
	}
	return nil
}
