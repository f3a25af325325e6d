// internal/templates/engine.go
//
// Template engine: lookup across the composed search path, func-map
// injection, and an expiring LRU of parsed template sets.
//
// Context
// -------
// Components call Render with a logical name ("home" or "home.html").  The
// engine asks the Composer for the request's search path, picks the first
// directory containing the file, and parses that file together with its
// siblings and the partials of the whole search path (see fs.go).  Parsed
// sets are cached per (search path, name) so two tenants sharing defaults also share the parsed defaults.
//
// Workflow
// --------
//   Render → Lookup → cache hit?  yes → execute
//                                 no  → find → parse → cache → execute
//
// Notes
// -----
// • Missing templates surface as ErrTemplateNotFound; httperr maps it to 404.
// • execName picks "<name>.html" when the file has no {{ define }} root,
//   else "<name>".

package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/metrics"
)

// ErrTemplateNotFound is returned when no search directory holds the name.
var ErrTemplateNotFound = errors.New("templates: template not found")

// KindHTML is the engine kind used for web pages.
const KindHTML = "html"

// Options tunes NewEngine.  Zero values fall back to the package defaults.
type Options struct {
	Kind      string
	CacheSize int
	CacheTTL  time.Duration
	Funcs     template.FuncMap
}

// Engine renders templates for the current tenant.
type Engine struct {
	composer *Composer
	kind     string
	funcs    template.FuncMap
	sets     *expirable.LRU[string, *template.Template]
}

// NewEngine wires a Composer to a parsed-set cache.
func NewEngine(c *Composer, opts Options) *Engine {
	if opts.Kind == "" {
		opts.Kind = KindHTML
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}

	fm := FuncMap()
	for k, v := range opts.Funcs {
		fm[k] = v
	}
	return &Engine{
		composer: c,
		kind:     opts.Kind,
		funcs:    fm,
		sets:     expirable.NewLRU[string, *template.Template](opts.CacheSize, nil, opts.CacheTTL),
	}
}

// Composer exposes the path composer the engine searches with.
func (e *Engine) Composer() *Composer { return e.composer }

// Lookup returns the parsed set holding name for the request in ctx.
func (e *Engine) Lookup(ctx context.Context, name string) (*template.Template, error) {
	return e.lookup(e.composer.PathsForRequest(ctx, e.kind), name)
}

// LookupIn is Lookup with an explicit search path.
func (e *Engine) LookupIn(paths []string, name string) (*template.Template, error) {
	return e.lookup(paths, name)
}

func (e *Engine) lookup(paths []string, name string) (*template.Template, error) {
	file := fileName(name)
	key := strings.Join(paths, "|") + "::" + file

	if t, ok := e.sets.Get(key); ok {
		metrics.TemplateCacheTotal.WithLabelValues("hit").Inc()
		return t, nil
	}
	metrics.TemplateCacheTotal.WithLabelValues("miss").Inc()

	var dir string
	for _, p := range paths {
		if exists(filepath.Join(p, file)) {
			dir = p
			break
		}
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, file)
	}

	files, err := collectSet(dir, paths)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", dir, err)
	}
	t, err := template.New(file).Funcs(e.funcs).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", dir, err)
	}

	zap.L().Debug("template set parsed",
		zap.String("dir", dir),
		zap.String("name", file),
		zap.Int("files", len(files)))
	e.sets.Add(key, t)
	return t, nil
}

// Render executes name into w.
func (e *Engine) Render(ctx context.Context, w io.Writer, name string, data any) error {
	t, err := e.Lookup(ctx, name)
	if err != nil {
		return err
	}
	// Buffer so a failing template never emits a half-written page.
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, execName(t, name), data); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderString executes name and returns the HTML (e-mails, fragments).
func (e *Engine) RenderString(ctx context.Context, name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.Render(ctx, &buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Purge drops every parsed set.
func (e *Engine) Purge() { e.sets.Purge() }

//
// helpers
//

func fileName(name string) string {
	if isHTML(name) {
		return name
	}
	return name + ".html"
}

// execName picks the template to execute.
//
// Priority:
//  1. "<name>" when a {{ define "<name>" }} root exists.
//  2. Otherwise the file template "<name>.html".
func execName(t *template.Template, name string) string {
	base := strings.TrimSuffix(name, ".html")
	if t.Lookup(base) != nil {
		return base
	}
	return fileName(name)
}
