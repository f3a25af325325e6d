// internal/assets/registry.go
//
// Process-wide bundle registry.
//
// Context
// -------
// The registry is created once in main and shared by reference.  It is
// written only during start-up (Register, Autoload) and read afterwards by
// templates (`{{ bundle "site-css" }}`) and the build commands.  One mutex
// guards the map and the loaded flag, so concurrent first requests cannot
// run discovery twice.
//
// Notes
// -----
// • Register is idempotent: an identical definition is a no-op.
// • Autoload runs at most once per registry; a failed run may be retried.

package assets

import (
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/metrics"
)

// Registry holds every declared bundle.
type Registry struct {
	root      string
	urlPrefix string

	mu      sync.RWMutex
	bundles map[string]Bundle
	order   []string
	loaded  bool
}

// NewRegistry returns an empty registry.  root anchors relative source
// paths; urlPrefix is prepended to bundle outputs when building URLs.
func NewRegistry(root, urlPrefix string) *Registry {
	if urlPrefix == "" {
		urlPrefix = "/static/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Registry{
		root:      root,
		urlPrefix: urlPrefix,
		bundles:   make(map[string]Bundle),
	}
}

// Root returns the directory source files are resolved against.
func (r *Registry) Root() string { return r.root }

// Register adds b.
func (r *Registry) Register(b Bundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(b)
}

func (r *Registry) register(b Bundle) error {
	if err := b.validate(); err != nil {
		return err
	}
	if prev, ok := r.bundles[b.Name]; ok {
		if prev.equal(b) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrBundleConflict, b.Name)
	}
	r.bundles[b.Name] = b.clone()
	r.order = append(r.order, b.Name)
	metrics.BundlesRegistered.Set(float64(len(r.bundles)))
	return nil
}

// Autoload registers the bundles of every declarer.  Subsequent calls are
// no-ops once a run has succeeded.
func (r *Registry) Autoload(decls []Declarer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}
	for _, d := range decls {
		bundles, err := d.Assets()
		if errors.Is(err, ErrNoAssets) {
			zap.L().Debug("no asset declarations", zap.String("component", d.Name()))
			continue
		}
		if err != nil {
			return fmt.Errorf("assets: load %s: %w", d.Name(), err)
		}
		for _, b := range bundles {
			if err := r.register(b); err != nil {
				return fmt.Errorf("assets: %s: %w", d.Name(), err)
			}
		}
	}
	r.loaded = true
	zap.L().Info("asset bundles loaded", zap.Int("bundles", len(r.bundles)))
	return nil
}

// Loaded reports whether Autoload has completed.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Lookup returns the bundle registered under name.
func (r *Registry) Lookup(name string) (Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[name]
	if !ok {
		return Bundle{}, false
	}
	return b.clone(), true
}

// All returns the bundles in registration order.
func (r *Registry) All() []Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Bundle, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.bundles[n].clone())
	}
	return out
}

// SourceDirs returns the sorted, de-duplicated absolute directories that
// hold bundle sources.
func (r *Registry) SourceDirs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, b := range r.bundles {
		for _, f := range b.Files {
			abs, err := filepath.Abs(filepath.Join(r.root, filepath.Dir(f)))
			if err != nil {
				return nil, err
			}
			set[abs] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// URL returns the public URL of a bundle's artifact, or "" when unknown.
func (r *Registry) URL(name string) string {
	b, ok := r.Lookup(name)
	if !ok {
		zap.L().Warn("unknown asset bundle", zap.String("bundle", name))
		return ""
	}
	return r.urlPrefix + filepath.ToSlash(b.Output)
}

// FuncMap exposes the registry to templates:
//
//	<link rel="stylesheet" href="{{ bundle "site-css" }}">
//	<img src="{{ asset "img/logo.svg" }}">
func (r *Registry) FuncMap() template.FuncMap {
	return template.FuncMap{
		"bundle": r.URL,
		"asset": func(p string) string {
			return r.urlPrefix + strings.TrimPrefix(p, "/")
		},
	}
}
