// internal/templates/composer.go
//
// Template search-path composition.
//
// Context
// -------
// Every site may carry a `template_dir` override.  Lookups walk, in order:
//
//   1. <template_dir>/<kind>   e.g. /sites/acme/templates/html
//   2. <template_dir>          e.g. /sites/acme/templates
//   3. the configured default directories
//
// Without a tenant (management commands, resolver error pages) only the
// defaults are searched.
//
// Notes
// -----
// • PathsForRequest never fails.  A request that reaches it without a
//   RequestContext points at misordered middleware; we log a warning and
//   degrade to the defaults so unrelated pages keep rendering.

package templates

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/tenant"
)

// Composer builds ordered directory lists for template lookup.
type Composer struct {
	defaults []string
}

// NewComposer copies defaults so later caller mutation cannot leak in.
func NewComposer(defaults []string) *Composer {
	d := make([]string, len(defaults))
	copy(d, defaults)
	return &Composer{defaults: d}
}

// Defaults returns a copy of the shared directories.
func (c *Composer) Defaults() []string {
	out := make([]string, len(c.defaults))
	copy(out, c.defaults)
	return out
}

// PathsFor returns the search path for t and the given engine kind.
func (c *Composer) PathsFor(t *tenant.Tenant, kind string) []string {
	if t == nil || t.TemplateDir() == "" {
		return c.Defaults()
	}

	dir := filepath.Clean(t.TemplateDir())
	out := make([]string, 0, len(c.defaults)+2)
	if kind != "" {
		out = append(out, filepath.Join(dir, kind))
	}
	out = append(out, dir)
	return append(out, c.defaults...)
}

// PathsForRequest reads the tenant from ctx.
func (c *Composer) PathsForRequest(ctx context.Context, kind string) []string {
	rc := tenant.FromContext(ctx)
	if rc == nil {
		zap.L().Warn("template lookup without request context, using defaults",
			zap.String("kind", kind))
		return c.Defaults()
	}
	return c.PathsFor(rc.Tenant, kind)
}
