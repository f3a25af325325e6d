// internal/assets/build.go
//
// Bundle builder: concatenate sources, run the filter chain, write the
// artifact.
//
// Workflow
// --------
//   1. Read every source (relative to Registry.Root) in declaration order.
//   2. Join them with a newline.
//   3. Apply filters in order (cssmin, jsmin, identity).
//   4. Write <outDir>/<Output> through a temp file + rename.

package assets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	mimeCSS = "text/css"
	mimeJS  = "application/javascript"
)

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(mimeCSS, css.Minify)
	m.AddFunc(mimeJS, js.Minify)
	return m
}

// Build writes the artifact for the named bundle under outDir and returns
// its path.
func (r *Registry) Build(name, outDir string) (string, error) {
	b, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBundle, name)
	}
	return r.build(newMinifier(), b, outDir)
}

// BuildAll builds every registered bundle concurrently.
func (r *Registry) BuildAll(ctx context.Context, outDir string) ([]string, error) {
	bundles := r.All()
	out := make([]string, len(bundles))
	m := newMinifier()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, b := range bundles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := r.build(m, b, outDir)
			out[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) build(m *minify.M, b Bundle, outDir string) (string, error) {
	var buf bytes.Buffer
	for i, f := range b.Files {
		data, err := os.ReadFile(filepath.Join(r.root, f))
		if err != nil {
			return "", fmt.Errorf("assets: %s: %w", b.Name, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}

	data := buf.Bytes()
	for _, f := range b.Filters {
		var err error
		switch f {
		case FilterCSSMin:
			data, err = m.Bytes(mimeCSS, data)
		case FilterJSMin:
			data, err = m.Bytes(mimeJS, data)
		}
		if err != nil {
			return "", fmt.Errorf("assets: %s: %s: %w", b.Name, f, err)
		}
	}

	dst := filepath.Join(outDir, filepath.FromSlash(b.Output))
	if err := writeAtomic(dst, data); err != nil {
		return "", fmt.Errorf("assets: %s: %w", b.Name, err)
	}
	zap.L().Info("bundle built",
		zap.String("bundle", b.Name),
		zap.String("output", dst),
		zap.Int("bytes", len(data)))
	return dst, nil
}

func writeAtomic(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bundle-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
