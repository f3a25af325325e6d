package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kvBody = `{
  "data": {
    "data": {"dsn": "acme:pw@tcp(db:3306)/acme", "port": 3306},
    "metadata": {"created_time": "2025-06-01T00:00:00Z", "deletion_time": "", "destroyed": false, "version": 1}
  }
}`

func newTestClient(t *testing.T) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/v1/secret/data/adept/acme" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	t.Cleanup(srv.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	api, err := vault.NewClient(cfg)
	require.NoError(t, err)
	api.SetToken("test")

	return &Client{api: api, cache: make(map[string]cached)}, &hits
}

func TestResolve_CachesValue(t *testing.T) {
	c, hits := newTestClient(t)
	ctx := context.Background()

	got, err := c.Resolve(ctx, "vault:secret/adept/acme#dsn")
	require.NoError(t, err)
	assert.Equal(t, "acme:pw@tcp(db:3306)/acme", got)

	_, err = c.Resolve(ctx, "vault:secret/adept/acme#dsn")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestGetKV_Errors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.GetKV(ctx, "secret/adept/acme", "missing", 0)
	assert.Error(t, err)

	_, err = c.GetKV(ctx, "secret/adept/acme", "port", 0)
	assert.Error(t, err, "non-string values are rejected")

	_, err = c.GetKV(ctx, "", "dsn", time.Minute)
	assert.Error(t, err)

	_, err = c.Resolve(ctx, "vault:secret/adept/acme")
	assert.Error(t, err)
}

func TestSplitMount(t *testing.T) {
	m, rel := splitMount("secret/adept/acme")
	assert.Equal(t, "secret", m)
	assert.Equal(t, "adept/acme", rel)
}
