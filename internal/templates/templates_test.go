package templates

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adeptbill/internal/tenant"
)

func TestPathsFor_TenantOverrideFirst(t *testing.T) {
	c := NewComposer([]string{"/srv/templates", "/srv/shared"})
	acme := tenant.New(tenant.Record{Slug: "acme", TemplateDir: "/sites/acme/templates"}, nil, nil)

	assert.Equal(t, []string{
		"/sites/acme/templates/jinja2",
		"/sites/acme/templates",
		"/srv/templates",
		"/srv/shared",
	}, c.PathsFor(acme, "jinja2"))
}

func TestPathsFor_DefaultsOnly(t *testing.T) {
	c := NewComposer([]string{"/srv/templates"})
	bare := tenant.New(tenant.Record{Slug: "bare"}, nil, nil)

	assert.Equal(t, []string{"/srv/templates"}, c.PathsFor(nil, KindHTML))
	assert.Equal(t, []string{"/srv/templates"}, c.PathsFor(bare, KindHTML))
}

func TestPathsForRequest_MissingContextDegrades(t *testing.T) {
	c := NewComposer([]string{"/srv/templates"})
	assert.Equal(t, []string{"/srv/templates"}, c.PathsForRequest(context.Background(), KindHTML))

	acme := tenant.New(tenant.Record{TemplateDir: "/sites/acme/templates"}, nil, nil)
	ctx := tenant.WithRequestContext(context.Background(), &tenant.RequestContext{Tenant: acme})
	assert.Equal(t, "/sites/acme/templates/html", c.PathsForRequest(ctx, KindHTML)[0])
}

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, "defaults", "home.html"), `{{ template "footer" . }}Hello {{ .Name }}`)
	write(t, filepath.Join(root, "defaults", "partials", "footer.html"), `{{ define "footer" }}[f]{{ end }}`)
	write(t, filepath.Join(root, "acme", "html", "home.html"), `Acme {{ .Name }}`)

	return NewEngine(NewComposer([]string{filepath.Join(root, "defaults")}), Options{}), root
}

func TestEngine_RenderOverrideAndDefault(t *testing.T) {
	e, root := newEngine(t)
	data := map[string]string{"Name": "Ana"}

	var buf bytes.Buffer
	require.NoError(t, e.Render(tenant.WithRequestContext(context.Background(), &tenant.RequestContext{}), &buf, "home", data))
	assert.Equal(t, "[f]Hello Ana", buf.String())

	acme := tenant.New(tenant.Record{TemplateDir: filepath.Join(root, "acme")}, nil, nil)
	ctx := tenant.WithRequestContext(context.Background(), &tenant.RequestContext{Tenant: acme})
	html, err := e.RenderString(ctx, "home.html", data)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ana", string(html))
}

func TestEngine_OverrideUsesDefaultPartials(t *testing.T) {
	e, root := newEngine(t)
	write(t, filepath.Join(root, "beta", "html", "home.html"), `Beta{{ template "footer" . }}`)
	write(t, filepath.Join(root, "gamma", "html", "home.html"), `Gamma{{ template "footer" . }}`)
	write(t, filepath.Join(root, "gamma", "partials", "footer.html"), `{{ define "footer" }}[g]{{ end }}`)

	for slug, want := range map[string]string{"beta": "Beta[f]", "gamma": "Gamma[g]"} {
		ten := tenant.New(tenant.Record{TemplateDir: filepath.Join(root, slug)}, nil, nil)
		ctx := tenant.WithRequestContext(context.Background(), &tenant.RequestContext{Tenant: ten})
		out, err := e.RenderString(ctx, "home", nil)
		require.NoError(t, err, slug)
		assert.Equal(t, want, string(out), slug)
	}
}

func TestEngine_LookupCachesAndReportsMissing(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	first, err := e.Lookup(ctx, "home")
	require.NoError(t, err)
	second, err := e.Lookup(ctx, "home.html")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = e.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	e.Purge()
	third, err := e.Lookup(ctx, "home")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestExecName_DefineRoot(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "login.html"), `{{ define "login" }}in{{ end }}`)
	e := NewEngine(NewComposer([]string{root}), Options{})

	out, err := e.RenderString(context.Background(), "login", nil)
	require.NoError(t, err)
	assert.Equal(t, "in", string(out))
}
