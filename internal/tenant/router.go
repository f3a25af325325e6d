// internal/tenant/router.go
//
// Cached per-tenant router.
//
// The router is built once per tenant (lazy) and cached on the Tenant.  It
// mounts only components enabled in the tenant's `app_acl` table; when the
// table is empty or not yet migrated every component is mounted.

package tenant

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/component"
)

// Mounter carries what every tenant router is built from.
type Mounter struct {
	Apps     *component.Registry
	NotFound http.HandlerFunc
}

// Router builds (once) and returns the http.Handler for this tenant.
func (t *Tenant) Router() http.Handler {
	t.routerOnce.Do(func() {
		r := chi.NewRouter()
		if t.mount == nil {
			t.router = r
			return
		}

		enabled := t.fetchEnabledApps(context.Background())
		if len(enabled) == 0 {
			zap.L().Debug("app_acl empty, mounting all components",
				zap.String("site", t.Slug()))
			enabled = t.mount.Apps.Names()
		}

		for _, c := range t.mount.Apps.All() {
			if _, ok := enabled[c.Name()]; ok {
				c.Routes(r)
			}
		}
		if t.mount.NotFound != nil {
			r.NotFound(t.mount.NotFound)
		}
		t.router = r
	})
	return t.router
}

// Dispatch forwards the request to the router of the tenant installed by
// the resolver middleware.
func Dispatch(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())
	if rc == nil || rc.Tenant == nil {
		zap.L().Error("dispatch without resolved tenant", zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	rc.Tenant.Router().ServeHTTP(w, r)
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

// fetchEnabledApps returns a set[name] for components enabled in app_acl.
func (t *Tenant) fetchEnabledApps(ctx context.Context) map[string]struct{} {
	if t.DB == nil {
		return nil
	}

	var names []string
	err := t.DB.SelectContext(ctx, &names,
		`SELECT app FROM app_acl WHERE enabled = 1`)
	if err != nil {
		if isUnknownTable(err) {
			return nil // ACL table not yet migrated, treat as "all enabled".
		}
		zap.L().Error("app_acl query failed", zap.Error(err))
		return nil
	}

	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// isUnknownTable recognises MariaDB (error 1146) and Postgres (42P01)
// "table does not exist" errors without importing driver-specific types.
func isUnknownTable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1146") || strings.Contains(msg, "42P01")
}
