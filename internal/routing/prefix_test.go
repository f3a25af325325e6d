// internal/routing/prefix_test.go
//
// Unit-tests for StripPrefix.
//
//   • Prefix present                → path trimmed, handler sees "/pricing"
//   • Bare prefix                   → 301 to "/<slug>/"
//   • No RequestContext / no prefix → path untouched
//   • Mounted chi chain             → tenant router sees the trimmed route

package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adeptbill/internal/component"
	"github.com/yanizio/adeptbill/internal/tenant"
)

func withPrefix(r *http.Request, prefix string) *http.Request {
	rc := &tenant.RequestContext{PathPrefix: prefix}
	return r.WithContext(tenant.WithRequestContext(r.Context(), rc))
}

func TestStripPrefix_Trims(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Path
	})

	req := withPrefix(httptest.NewRequest(http.MethodGet, "/beta/pricing", nil), "/beta")
	StripPrefix(next).ServeHTTP(httptest.NewRecorder(), req)

	if got != "/pricing" {
		t.Fatalf("path = %q, want /pricing", got)
	}
}

func TestStripPrefix_BarePrefixRedirects(t *testing.T) {
	req := withPrefix(httptest.NewRequest(http.MethodGet, "/beta?x=1", nil), "/beta")
	rr := httptest.NewRecorder()
	StripPrefix(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusMovedPermanently {
		t.Fatalf("status = %d, want 301", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/beta/?x=1" {
		t.Fatalf("location = %q", loc)
	}
}

func TestStripPrefix_NoContext(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/keep" {
			t.Fatalf("path mutated: %q", r.URL.Path)
		}
	})
	StripPrefix(next).ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/keep", nil))
}

type plansApp struct{}

func (plansApp) Name() string         { return "billing" }
func (plansApp) Migrations() []string { return nil }
func (plansApp) Routes(r chi.Router) {
	r.Get("/billing/{provider}/plans", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(chi.URLParam(r, "provider")))
	})
}

func TestStripPrefix_MountedTenantChain(t *testing.T) {
	ten := tenant.New(tenant.Record{Slug: "beta"}, nil,
		&tenant.Mounter{Apps: component.NewRegistry(plansApp{})})

	site := chi.NewRouter()
	site.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := &tenant.RequestContext{Tenant: ten, PathPrefix: "/beta"}
			next.ServeHTTP(w, r.WithContext(tenant.WithRequestContext(r.Context(), rc)))
		})
	})
	site.Use(StripPrefix)
	site.HandleFunc("/*", tenant.Dispatch)

	root := chi.NewRouter()
	root.Mount("/", site)

	rr := httptest.NewRecorder()
	root.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/beta/billing/acme/plans", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rr.Code)
	}
	if rr.Body.String() != "acme" {
		t.Fatalf("provider = %q, want acme", rr.Body.String())
	}
}
