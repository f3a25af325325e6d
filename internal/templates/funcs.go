//
//  internal/templates/funcs.go
//
//  Template functions that expose RequestContext fields with short,
//  ergonomic names.  Parsed sets are shared across requests, so every
//  helper takes the RequestContext as its argument instead of closing
//  over it:
//
//      {{ country .RC }}   {{ link .RC "/pricing" }}
//

package templates

import (
	"html/template"

	"github.com/yanizio/adeptbill/internal/requestinfo"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// FuncMap returns the base function map.  NewEngine merges Options.Funcs
// (asset helpers) on top.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": dict,

		// Site helpers
		"siteTitle": func(rc *tenant.RequestContext) string {
			if rc == nil || rc.Tenant == nil {
				return ""
			}
			return rc.Tenant.Meta.Title
		},
		"link": func(rc *tenant.RequestContext, path string) string {
			if rc == nil {
				return path
			}
			return rc.PathPrefix + path
		},
		"absURL": func(rc *tenant.RequestContext, path string) string {
			if rc == nil {
				return path
			}
			return rc.URL(path)
		},

		// Geo helpers
		"clientIP": func(rc *tenant.RequestContext) string {
			if i := info(rc); i != nil && i.Geo.IP != nil {
				return i.Geo.IP.String()
			}
			return ""
		},
		"country": func(rc *tenant.RequestContext) string {
			if i := info(rc); i != nil {
				return i.Geo.CountryISO
			}
			return ""
		},

		// UA helpers
		"browser": func(rc *tenant.RequestContext) string {
			if i := info(rc); i != nil {
				return i.UA.Browser
			}
			return ""
		},
		"device": func(rc *tenant.RequestContext) string {
			if i := info(rc); i != nil {
				return i.UA.Device
			}
			return ""
		},
		"isBot": func(rc *tenant.RequestContext) bool {
			i := info(rc)
			return i != nil && i.UA.IsBot
		},
	}
}

func info(rc *tenant.RequestContext) *requestinfo.RequestInfo {
	if rc == nil {
		return nil
	}
	return rc.Info
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
