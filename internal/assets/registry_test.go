package assets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type declarer struct {
	name    string
	bundles []Bundle
	err     error
	calls   int
}

func (d *declarer) Name() string { return d.name }
func (d *declarer) Assets() ([]Bundle, error) {
	d.calls++
	return d.bundles, d.err
}

var siteCSS = Bundle{
	Name:    "site-css",
	Files:   []string{"pages/css/base.css", "pages/css/layout.css"},
	Filters: []string{FilterCSSMin},
	Output:  "css/site.min.css",
}

func TestRegister_Idempotent(t *testing.T) {
	r := NewRegistry(t.TempDir(), "/static")

	require.NoError(t, r.Register(siteCSS))
	require.NoError(t, r.Register(siteCSS))
	assert.Len(t, r.All(), 1)

	conflict := siteCSS
	conflict.Output = "css/other.css"
	assert.ErrorIs(t, r.Register(conflict), ErrBundleConflict)

	assert.ErrorIs(t, r.Register(Bundle{Name: "x", Output: "x.js"}), ErrBadBundle)
	assert.ErrorIs(t, r.Register(Bundle{Name: "x", Files: []string{"a.js"}, Filters: []string{"uglify"}, Output: "x.js"}), ErrBadBundle)
}

func TestAutoload_ExactlyOnce(t *testing.T) {
	r := NewRegistry(t.TempDir(), "")
	pages := &declarer{name: "pages", bundles: []Bundle{siteCSS}}
	empty := &declarer{name: "billing", err: ErrNoAssets}

	require.NoError(t, r.Autoload([]Declarer{pages, empty}))
	require.NoError(t, r.Autoload([]Declarer{pages, empty}))

	assert.True(t, r.Loaded())
	assert.Equal(t, 1, pages.calls, "discovery runs once")
	assert.Len(t, r.All(), 1)
	assert.Equal(t, "/static/css/site.min.css", r.URL("site-css"))
	assert.Empty(t, r.URL("nope"))
}

func TestAutoload_BrokenDeclarerIsFatal(t *testing.T) {
	r := NewRegistry(t.TempDir(), "")
	broken := &declarer{name: "broken", err: errors.New("bad manifest")}

	err := r.Autoload([]Declarer{broken})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.False(t, r.Loaded())
}

func TestBuildAndExport(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages", "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "css", "base.css"),
		[]byte("body {\n  color : red ;\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "css", "layout.css"),
		[]byte("main {\n  margin : 0px ;\n}\n"), 0o644))

	r := NewRegistry(root, "")
	require.NoError(t, r.Register(siteCSS))

	out := t.TempDir()
	paths, err := r.BuildAll(context.Background(), out)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(filepath.Join(out, "css", "site.min.css"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "body{color:red}")
	assert.NotContains(t, string(data), "\n  ")
	info, err := os.Stat(filepath.Join(out, "css", "site.min.css"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "bundles are world-readable")

	_, err = r.Build("missing", out)
	assert.ErrorIs(t, err, ErrUnknownBundle)

	manifest := filepath.Join(out, "webpack_dirs.json")
	dirs, err := r.WriteSourceDirs(manifest)
	require.NoError(t, err)

	raw, err := os.ReadFile(manifest)
	require.NoError(t, err)
	var got []string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, dirs, got)
	assert.Equal(t, []string{filepath.Join(root, "pages", "css")}, got)
	info, err = os.Stat(manifest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
