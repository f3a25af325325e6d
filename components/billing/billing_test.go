package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/adeptbill/internal/auth"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/tenant"
)

var (
	providerCols = []string{"id", "slug", "full_name", "created_at"}
	planCols     = []string{"id", "slug", "provider_id", "title", "description", "period_amount", "currency", "is_active", "created_at"}
	couponCols   = []string{"id", "code", "provider_id", "plan_id", "discount_type", "amount", "description", "nb_attempts", "starts_at", "ends_at", "created_at", "nb_uses"}
	past         = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

type harness struct {
	mock sqlmock.Sqlmock
	h    http.Handler
	rc   *tenant.RequestContext
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := chi.NewRouter()
	New(nil).Routes(r)
	rc := &tenant.RequestContext{Tenant: tenant.New(tenant.Record{Slug: "acme"}, sqlx.NewDb(db, "sqlmock"), nil)}
	return &harness{mock: mock, h: r, rc: rc}
}

func (h *harness) do(method, path, body string, uid int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Accept", "application/json")
	ctx := tenant.WithRequestContext(req.Context(), h.rc)
	if uid != 0 {
		ctx = auth.WithUser(ctx, uid)
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, req.WithContext(ctx))
	return rr
}

func (h *harness) expectProvider() {
	h.mock.ExpectQuery(`FROM provider WHERE slug = \?`).WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(providerCols).AddRow(7, "acme", "Acme", past))
}

func (h *harness) expectAllowed(uid int64) {
	h.mock.ExpectQuery(`FROM user_role`).WithArgs(uid).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("billing-manager"))
	h.mock.ExpectQuery(`FROM role_acl`).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
}

func TestQuote_DIS100(t *testing.T) {
	h := newHarness(t)
	h.expectProvider()
	h.mock.ExpectQuery(`FROM plan WHERE provider_id = \? AND slug = \?`).WithArgs(uint64(7), "basic").
		WillReturnRows(sqlmock.NewRows(planCols).AddRow(1, "basic", 7, "Basic", "", 2999, "usd", true, past))
	h.mock.ExpectQuery(`FROM coupon c`).WithArgs(uint64(7), "DIS100").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow(9, "DIS100", 7, nil, "percentage", 10000, "", nil, past, nil, past, 0))

	rr := h.do(http.MethodGet, "/billing/acme/plans/basic/quote?coupon=DIS100", "", 0)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var q Quote
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	assert.True(t, q.Valid)
	assert.Equal(t, int64(2999), q.Price)
	assert.Equal(t, int64(0), q.Discounted)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestDeleteCoupon_WithUsesDeactivates(t *testing.T) {
	h := newHarness(t)
	h.expectAllowed(5)
	h.expectProvider()
	h.mock.ExpectQuery(`FROM coupon c`).WithArgs(uint64(7), "DIS100").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow(9, "DIS100", 7, nil, "percentage", 10000, "", nil, past, nil, past, 3))
	h.mock.ExpectBegin()
	h.mock.ExpectQuery(`SELECT id FROM coupon WHERE id = \? FOR UPDATE`).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	h.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coupon_use`).WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	h.mock.ExpectExec(`UPDATE coupon SET ends_at = \?`).WithArgs(sqlmock.AnyArg(), uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	h.mock.ExpectCommit()

	rr := h.do(http.MethodDelete, "/billing/acme/coupons/DIS100", "", 5)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"outcome":"deactivated"`)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestUpdateCoupon_EndedWithUsesStaysEnded(t *testing.T) {
	h := newHarness(t)
	h.expectAllowed(5)
	h.expectProvider()
	h.mock.ExpectQuery(`FROM coupon c`).WithArgs(uint64(7), "DIS100").
		WillReturnRows(sqlmock.NewRows(couponCols).
			AddRow(9, "DIS100", 7, nil, "percentage", 10000, "", nil, past, past.Add(time.Hour), past, 2))

	rr := h.do(http.MethodPut, "/billing/acme/coupons/DIS100",
		`{"discount_type":"percentage","amount":10000,"ends_at":null}`, 5)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	var body httperr.Body
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Fields["ends_at"], "cannot be reactivated")
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestCreateCoupon_DuplicateCode(t *testing.T) {
	h := newHarness(t)
	h.expectAllowed(5)
	h.expectProvider()
	h.mock.ExpectExec(`INSERT INTO coupon`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	rr := h.do(http.MethodPost, "/billing/acme/coupons",
		`{"code":"DIS100","discount_type":"percentage","amount":10000}`, 5)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body httperr.Body
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "A coupon with this code already exists.", body.Fields["code"])
}

func TestCreateCoupon_Anonymous(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodPost, "/billing/acme/coupons", `{}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
