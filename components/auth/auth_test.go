package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/adeptbill/internal/form"
	"github.com/yanizio/adeptbill/internal/session"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
)

const secret = "0123456789abcdef0123456789abcdef"

const userQuery = "SELECT id, password FROM `user` WHERE email = \\? AND is_active = TRUE"

type harness struct {
	h    http.Handler
	mock sqlmock.Sqlmock
	db   *sqlx.DB
	csrf *form.CSRF
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.html"),
		[]byte(`csrf={{ .CSRF }}{{ range $k, $v := .Errors }} {{ $k }}={{ $v }}{{ end }}`), 0o644))

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	csrf := form.NewCSRF(secret)
	engine := templates.NewEngine(templates.NewComposer([]string{dir}), templates.Options{})
	r := chi.NewRouter()
	New(engine, session.NewManager(secret, "sid"), csrf).Routes(r)
	return &harness{h: r, mock: mock, db: sqlx.NewDb(raw, "sqlmock"), csrf: csrf}
}

func (h *harness) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rc := &tenant.RequestContext{
		Tenant:     tenant.New(tenant.Record{Slug: "acme"}, h.db, nil),
		Scheme:     "https",
		PathPrefix: "/acme",
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, req.WithContext(tenant.WithRequestContext(req.Context(), rc)))
	return rr
}

func (h *harness) token(t *testing.T) string {
	t.Helper()
	tok, err := h.csrf.Token()
	require.NoError(t, err)
	return tok
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret!"), bcrypt.MinCost)
	require.NoError(t, err)

	h.mock.ExpectQuery(userQuery).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).AddRow(42, string(hash)))
	h.mock.ExpectExec(`REPLACE INTO session`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rr := h.post(t, "/login", url.Values{
		form.FieldName: {h.token(t)},
		"email":        {" ana@example.com "},
		"password":     {"s3cret!"},
		"next":         {"/billing/acme/coupons"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, "/acme/billing/acme/coupons", rr.Header().Get("Location"))
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, "sid", rr.Result().Cookies()[0].Name)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	h.mock.ExpectQuery(userQuery).WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password"}).AddRow(42, string(hash)))

	rr := h.post(t, "/login", url.Values{
		form.FieldName: {h.token(t)},
		"email":        {"ana@example.com"},
		"password":     {"wrong"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "password=Incorrect email or password.")
	assert.Empty(t, rr.Result().Cookies())
}

func TestLogin_ValidationAndCSRF(t *testing.T) {
	h := newHarness(t)

	rr := h.post(t, "/login", url.Values{
		form.FieldName: {h.token(t)},
		"email":        {"not-an-email"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "email=Enter a valid email address.")
	assert.Contains(t, rr.Body.String(), "password=This field is required.")

	rr = h.post(t, "/login", url.Values{"email": {"ana@example.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.NoError(t, h.mock.ExpectationsWereMet(), "no query without a valid token")
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	rr := h.post(t, "/logout", url.Values{form.FieldName: {h.token(t)}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/acme/", rr.Header().Get("Location"))
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                  "/",
		"/billing?x=1":      "/billing?x=1",
		"//evil.example":    "/",
		"https://evil.test": "/",
		`/\evil.example`:    "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), in)
	}
}
