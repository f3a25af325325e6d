// components/pages/pages.go
//
// Pages component: the tenant home page and a request-inspection endpoint.
//
// Context
// -------
// Home renders "home" through the template engine, so a tenant with its own
// html/home.html overrides the shipped default.  The component also declares
// the site-wide CSS and JS bundles every page links to.
//
// Routes
// ------
//   GET /               home page
//   GET /debug/request  JSON dump of tenant and request info
package pages

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adeptbill/internal/assets"
	"github.com/yanizio/adeptbill/internal/component"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/requestinfo"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// compile-time assertions
var (
	_ component.Component = (*Component)(nil)
	_ assets.Declarer     = (*Component)(nil)
)

// Component has no per-tenant state.
type Component struct {
	engine *templates.Engine
}

func New(engine *templates.Engine) *Component { return &Component{engine: engine} }

func (c *Component) Name() string         { return "pages" }
func (c *Component) Migrations() []string { return nil }

// Assets declares the site bundles.  Paths are relative to the static root.
func (c *Component) Assets() ([]assets.Bundle, error) {
	return []assets.Bundle{
		{
			Name:    "site-css",
			Files:   []string{"pages/css/base.css", "pages/css/layout.css"},
			Filters: []string{assets.FilterCSSMin},
			Output:  "css/site.min.css",
		},
		{
			Name:    "site-js",
			Files:   []string{"pages/js/site.js"},
			Filters: []string{assets.FilterJSMin},
			Output:  "js/site.min.js",
		},
	}, nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/", c.home)
	r.Get("/debug/request", c.debugRequest)
}

type homePage struct {
	RC *tenant.RequestContext
}

func (c *Component) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := c.engine.Render(r.Context(), w, "home", homePage{RC: tenant.FromContext(r.Context())})
	if err != nil {
		httperr.Handle(w, r, err)
	}
}

// debugRequest writes a JSON blob with selected context fields.
func (c *Component) debugRequest(w http.ResponseWriter, r *http.Request) {
	rc := tenant.FromContext(r.Context())
	out := map[string]any{
		"path": r.URL.Path,
		"ua":   r.UserAgent(),
	}
	if rc != nil {
		out["scheme"] = rc.Scheme
		out["host"] = rc.Host
		out["path_prefix"] = rc.PathPrefix
		if rc.Tenant != nil {
			out["site"] = rc.Tenant.Slug()
		}
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		out["request"] = ri
	}
	httperr.JSON(w, http.StatusOK, out)
}
