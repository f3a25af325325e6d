package tenant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteColumns = []string{
	"id", "slug", "domain", "db_name", "template_dir", "title",
	"suspended_at", "deleted_at", "created_at", "updated_at",
}

const (
	byDomainRE = `FROM\s+site\s+WHERE\s+domain = \?`
	bySlugRE   = `FROM\s+site\s+WHERE\s+slug = \?`
)

func siteRow(rows *sqlmock.Rows, id int, slug, domain string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, slug, domain, slug+"_db", "/sites/"+slug+"/templates", slug,
		nil, nil, now, now)
}

// stubDBs hands out one shared tenant pool for every alias.
type stubDBs struct {
	db      *sqlx.DB
	aliases []string
}

func (s *stubDBs) Get(_ context.Context, alias string) (*sqlx.DB, error) {
	s.aliases = append(s.aliases, alias)
	return s.db, nil
}

func newResolver(t *testing.T, opts Options) (*Resolver, sqlmock.Sqlmock, *stubDBs) {
	t.Helper()
	global, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { global.Close() })

	tenantDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { tenantDB.Close() })

	dbs := &stubDBs{db: sqlx.NewDb(tenantDB, "sqlmock")}
	loader := &Loader{Global: sqlx.NewDb(global, "sqlmock"), DBs: dbs}
	cache := NewCache(loader.Load, 0, 0)
	t.Cleanup(cache.Close)
	return NewResolver(cache, opts), mock, dbs
}

func TestResolve_ByDomain(t *testing.T) {
	res, mock, dbs := newResolver(t, Options{})
	mock.ExpectQuery(byDomainRE).WithArgs("acme.example.com").
		WillReturnRows(siteRow(sqlmock.NewRows(siteColumns), 1, "acme", "acme.example.com"))

	ten, prefix, err := res.Resolve(context.Background(), "ACME.example.com:8443", "/pricing")
	require.NoError(t, err)
	assert.Equal(t, "acme", ten.Slug())
	assert.Empty(t, prefix)
	assert.Equal(t, []string{"acme_db"}, dbs.aliases)

	// Second call is served from cache; no new query expected.
	again, _, err := res.Resolve(context.Background(), "acme.example.com", "/")
	require.NoError(t, err)
	assert.Same(t, ten, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_AmbiguousDomain(t *testing.T) {
	res, mock, _ := newResolver(t, Options{})
	rows := sqlmock.NewRows(siteColumns)
	siteRow(rows, 1, "acme", "dup.example.com")
	siteRow(rows, 2, "acme-old", "dup.example.com")
	mock.ExpectQuery(byDomainRE).WithArgs("dup.example.com").WillReturnRows(rows)

	_, _, err := res.Resolve(context.Background(), "dup.example.com", "/")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestResolve_NotFoundAndBackendError(t *testing.T) {
	res, mock, _ := newResolver(t, Options{})
	mock.ExpectQuery(byDomainRE).WithArgs("ghost.example.com").
		WillReturnRows(sqlmock.NewRows(siteColumns))
	mock.ExpectQuery(byDomainRE).WithArgs("down.example.com").
		WillReturnError(errors.New("dial tcp: connection refused"))

	_, _, err := res.Resolve(context.Background(), "ghost.example.com", "/")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = res.Resolve(context.Background(), "down.example.com", "/")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolve_PathPrefixFallback(t *testing.T) {
	res, mock, _ := newResolver(t, Options{PathPrefix: true})
	mock.ExpectQuery(byDomainRE).WithArgs("shared.example.com").
		WillReturnRows(sqlmock.NewRows(siteColumns))
	mock.ExpectQuery(bySlugRE).WithArgs("beta").
		WillReturnRows(siteRow(sqlmock.NewRows(siteColumns), 7, "beta", "beta.example.com"))

	ten, prefix, err := res.Resolve(context.Background(), "shared.example.com", "/beta/pricing")
	require.NoError(t, err)
	assert.Equal(t, "beta", ten.Slug())
	assert.Equal(t, "/beta", prefix)
}

func TestResolve_LocalhostAlias(t *testing.T) {
	res, mock, _ := newResolver(t, Options{LocalhostAlias: "acme.example.com"})
	mock.ExpectQuery(byDomainRE).WithArgs("acme.example.com").
		WillReturnRows(siteRow(sqlmock.NewRows(siteColumns), 1, "acme", "acme.example.com"))

	ten, _, err := res.Resolve(context.Background(), "localhost:8080", "/")
	require.NoError(t, err)
	assert.Equal(t, "acme", ten.Slug())
}

func TestMiddleware_InstallsAndClearsContext(t *testing.T) {
	res, mock, _ := newResolver(t, Options{})
	mock.ExpectQuery(byDomainRE).WithArgs("acme.example.com").
		WillReturnRows(siteRow(sqlmock.NewRows(siteColumns), 1, "acme", "acme.example.com"))

	var seen *RequestContext
	var slug string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		slug = seen.Tenant.Slug()
		assert.Equal(t, "https", seen.Scheme)
		assert.Equal(t, "https://acme.example.com/x", seen.URL("/x"))
	})
	failed := func(w http.ResponseWriter, r *http.Request, err error) {
		t.Fatalf("unexpected resolve error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	res.Middleware(failed)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "acme", slug)
	require.NotNil(t, seen)
	assert.Nil(t, seen.Tenant, "tenant must not outlive the request")
	assert.Empty(t, seen.Host)
}

func TestMiddleware_ClearsContextOnPanic(t *testing.T) {
	res, mock, _ := newResolver(t, Options{})
	mock.ExpectQuery(byDomainRE).WithArgs("acme.example.com").
		WillReturnRows(siteRow(sqlmock.NewRows(siteColumns), 1, "acme", "acme.example.com"))

	var seen *RequestContext
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	assert.Panics(t, func() {
		res.Middleware(nil)(next).ServeHTTP(httptest.NewRecorder(), req)
	})
	require.NotNil(t, seen)
	assert.Nil(t, seen.Tenant)
}

func TestMiddleware_ErrorHandler(t *testing.T) {
	res, mock, _ := newResolver(t, Options{})
	mock.ExpectQuery(byDomainRE).WithArgs("ghost.example.com").
		WillReturnRows(sqlmock.NewRows(siteColumns))

	var gotErr error
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		assert.NotNil(t, FromContext(r.Context()), "error pages still see a RequestContext")
		w.WriteHeader(http.StatusNotFound)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run for unknown hosts")
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://ghost.example.com/", nil)
	res.Middleware(onError)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.ErrorIs(t, gotErr, ErrNotFound)
}
