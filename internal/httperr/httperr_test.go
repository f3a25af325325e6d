package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adeptbill/internal/coupon"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("wrap: %w", tenant.ErrNotFound)))
	assert.Equal(t, http.StatusNotFound, StatusOf(coupon.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(tenant.ErrAmbiguous))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("dial tcp: refused")))
	assert.Equal(t, http.StatusBadRequest, StatusOf(&coupon.ValidationError{Fields: map[string]string{"code": "x"}}))
}

func TestWrite_JSONWithFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/coupons", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()

	Handle(rr, req, &coupon.ValidationError{Fields: map[string]string{"code": "A coupon with this code already exists."}})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var body Body
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Bad Request", body.Detail)
	assert.Equal(t, "A coupon with this code already exists.", body.Fields["code"])
}

func TestWrite_HTMLFallsBackToText(t *testing.T) {
	SetEngine(nil)
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	rr := httptest.NewRecorder()

	NotFound(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "Not Found\n", rr.Body.String())
}

func TestWrite_HTMLUsesTenantTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "403.html"),
		[]byte(`<h1>{{ .Status }} {{ .Detail }}</h1>`), 0o644))
	SetEngine(templates.NewEngine(templates.NewComposer([]string{dir}), templates.Options{}))
	t.Cleanup(func() { SetEngine(nil) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rr := httptest.NewRecorder()
	Write(rr, req, http.StatusForbidden, nil)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "<h1>403 Forbidden</h1>", rr.Body.String())

	// No 500.html in the chain: plain text, no internals leaked.
	rr = httptest.NewRecorder()
	Write(rr, req, http.StatusInternalServerError, errors.New("password=hunter2"))
	assert.Equal(t, "Internal Server Error\n", rr.Body.String())
}
