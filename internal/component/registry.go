// internal/component/registry.go
//
// Component registry (cycle-free, statically enumerated).
//
// Each concrete component lives under components/<name>.  cmd/web lists
// them explicitly when it builds the registry, so the set of mounted apps
// and asset declarations is fixed at compile time:
//
//	apps := component.NewRegistry(billing.New(), pages.New())
//
// The tenant router hands every enabled component the same chi.Router so
// routes from several components share one tree.  A
// component that also implements assets.Declarer contributes bundles to
// the asset registry during startup.

package component

import (
	"fmt"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() registers BOTH page and API endpoints on the tenant router, e.g:
//
//	r.Get("/pricing", getPricing)
//	r.Route("/api/billing", func(api chi.Router) { ... })
type Component interface {
	Name() string
	Routes(r chi.Router)
	Migrations() []string
}

// Registry is an ordered, immutable set of components.
type Registry struct {
	order  []Component
	byName map[string]Component
}

// NewRegistry builds a registry in declaration order.  Duplicate names are
// a programming error and panic.
func NewRegistry(list ...Component) *Registry {
	r := &Registry{byName: make(map[string]Component, len(list))}
	for _, c := range list {
		if _, dup := r.byName[c.Name()]; dup {
			panic(fmt.Sprintf("component: duplicate name %q", c.Name()))
		}
		r.byName[c.Name()] = c
		r.order = append(r.order, c)
	}
	return r
}

// All returns every component in declaration order.
func (r *Registry) All() []Component {
	out := make([]Component, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the component called name, or nil.
func (r *Registry) Lookup(name string) Component { return r.byName[name] }

// Names returns the set of registered component names.
func (r *Registry) Names() map[string]struct{} {
	set := make(map[string]struct{}, len(r.order))
	for _, c := range r.order {
		set[c.Name()] = struct{}{}
	}
	return set
}
