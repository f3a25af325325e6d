// Package assets owns the static asset bundles of the application.
//
// A Bundle names an ordered list of source files, an ordered filter chain,
// and the artifact path it is built to.  Components declare their bundles
// through the Declarer interface; cmd/web and cmd/adeptctl hand the
// statically enumerated component list to Registry.Autoload once at start.
package assets

import (
	"errors"
	"fmt"
	"path"
	"slices"
)

// Filter names understood by Build.
const (
	FilterCSSMin = "cssmin"
	FilterJSMin  = "jsmin"
	FilterNone   = "identity"
)

var (
	// ErrBundleConflict is returned when a name is re-registered with a
	// different definition.
	ErrBundleConflict = errors.New("assets: conflicting bundle definition")

	// ErrNoAssets is returned by a Declarer that has nothing to declare.
	// Autoload skips it.
	ErrNoAssets = errors.New("assets: no asset declarations")

	ErrUnknownBundle = errors.New("assets: unknown bundle")
	ErrBadBundle     = errors.New("assets: invalid bundle")
)

// Bundle is immutable once registered.
type Bundle struct {
	Name    string   `json:"name"`
	Files   []string `json:"files"`   // relative to the registry root
	Filters []string `json:"filters"` // applied in order
	Output  string   `json:"output"`  // relative to the output dir and URL prefix
}

// Declarer is implemented by components that ship static assets.
type Declarer interface {
	Name() string
	Assets() ([]Bundle, error)
}

func (b Bundle) validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("%w: empty name", ErrBadBundle)
	case len(b.Files) == 0:
		return fmt.Errorf("%w: %s has no files", ErrBadBundle, b.Name)
	case b.Output == "" || path.IsAbs(b.Output):
		return fmt.Errorf("%w: %s needs a relative output path", ErrBadBundle, b.Name)
	}
	for _, f := range b.Filters {
		switch f {
		case FilterCSSMin, FilterJSMin, FilterNone:
		default:
			return fmt.Errorf("%w: %s uses unknown filter %q", ErrBadBundle, b.Name, f)
		}
	}
	return nil
}

func (b Bundle) equal(o Bundle) bool {
	return b.Name == o.Name &&
		b.Output == o.Output &&
		slices.Equal(b.Files, o.Files) &&
		slices.Equal(b.Filters, o.Filters)
}

func (b Bundle) clone() Bundle {
	b.Files = slices.Clone(b.Files)
	b.Filters = slices.Clone(b.Filters)
	return b
}
