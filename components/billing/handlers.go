package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/auth"
	"github.com/yanizio/adeptbill/internal/billing"
	"github.com/yanizio/adeptbill/internal/coupon"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/requestinfo"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// maxBody caps JSON request bodies.
const maxBody = 64 << 10

var errNoTenant = errors.New("billing: no tenant in request")

// stores binds the billing and coupon stores to the current tenant.
func stores(r *http.Request) (*billing.Store, *coupon.Store, error) {
	t := tenant.Current(r.Context())
	if t == nil || t.GetDB() == nil {
		return nil, nil, errNoTenant
	}
	return billing.NewStore(t.GetDB()), coupon.NewStore(t.GetDB()), nil
}

// loadProvider binds the stores and loads the {provider} URL parameter.
// On failure it writes the error response itself and returns ok=false.
func loadProvider(w http.ResponseWriter, r *http.Request) (*billing.Provider, *billing.Store, *coupon.Store, bool) {
	bs, cs, err := stores(r)
	if err != nil {
		httperr.Handle(w, r, err)
		return nil, nil, nil, false
	}
	p, err := bs.ProviderBySlug(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		httperr.Handle(w, r, err)
		return nil, nil, nil, false
	}
	return p, bs, cs, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &coupon.ValidationError{Fields: map[string]string{"body": "Malformed JSON: " + err.Error()}}
	}
	return nil
}

//
// plans
//

func (c *Component) listPlans(w http.ResponseWriter, r *http.Request) {
	p, bs, _, ok := loadProvider(w, r)
	if !ok {
		return
	}
	plans, err := bs.PlansByProvider(r.Context(), p.ID, true)
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, plans)
}

type pricingPage struct {
	RC       *tenant.RequestContext
	Provider *billing.Provider
	Plans    []billing.Plan
}

func (c *Component) pricing(w http.ResponseWriter, r *http.Request) {
	p, bs, _, ok := loadProvider(w, r)
	if !ok {
		return
	}
	plans, err := bs.PlansByProvider(r.Context(), p.ID, true)
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = c.engine.Render(r.Context(), w, "pricing", pricingPage{
		RC:       tenant.FromContext(r.Context()),
		Provider: p,
		Plans:    plans,
	})
	if err != nil {
		httperr.Handle(w, r, err)
	}
}

// Quote is the body of the quote endpoint.
type Quote struct {
	Plan       string `json:"plan"`
	Currency   string `json:"currency"`
	Price      int64  `json:"price"`
	Discounted int64  `json:"discounted"`
	Coupon     string `json:"coupon,omitempty"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

func (c *Component) quote(w http.ResponseWriter, r *http.Request) {
	prov, bs, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	plan, err := bs.PlanBySlug(r.Context(), prov.ID, chi.URLParam(r, "plan"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}

	q := Quote{
		Plan:       plan.Slug,
		Currency:   plan.Currency,
		Price:      plan.PeriodAmount,
		Discounted: plan.PeriodAmount,
	}
	code := r.URL.Query().Get("coupon")
	if code == "" {
		httperr.JSON(w, http.StatusOK, q)
		return
	}

	q.Coupon = code
	cp, err := cs.Get(r.Context(), prov.ID, code)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		q.Reason = err.Error()
	case err != nil:
		httperr.Handle(w, r, err)
		return
	default:
		if err := coupon.Check(cp, plan, time.Now()); err != nil {
			q.Reason = err.Error()
		} else {
			q.Valid = true
			q.Discounted = coupon.DiscountedPrice(plan, cp)
		}
	}
	httperr.JSON(w, http.StatusOK, q)
}

type redeemInput struct {
	Code string `json:"code"`
}

func (c *Component) redeem(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserID(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, nil)
		return
	}
	prov, bs, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	plan, err := bs.PlanBySlug(r.Context(), prov.ID, chi.URLParam(r, "plan"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}

	var in redeemInput
	if err := decode(w, r, &in); err != nil {
		httperr.Handle(w, r, err)
		return
	}

	use := coupon.Use{SubscriberID: uint64(uid)}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		if info.Geo.IP != nil {
			use.ClientIP = info.Geo.IP.String()
		}
		use.Country = info.Geo.CountryISO
	}

	cp, price, err := cs.Redeem(r.Context(), in.Code, plan, use)
	switch {
	case errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrNotStarted),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrWrongProvider),
		errors.Is(err, coupon.ErrWrongPlan),
		errors.Is(err, coupon.ErrExhausted):
		httperr.Handle(w, r, &coupon.ValidationError{Fields: map[string]string{"code": err.Error()}})
		return
	case err != nil:
		httperr.Handle(w, r, err)
		return
	}

	zap.L().Info("coupon redeemed",
		zap.String("site", tenant.Current(r.Context()).Slug()),
		zap.String("code", cp.Code),
		zap.Int64("subscriber", uid))
	httperr.JSON(w, http.StatusOK, Quote{
		Plan:       plan.Slug,
		Currency:   plan.Currency,
		Price:      plan.PeriodAmount,
		Discounted: price,
		Coupon:     cp.Code,
		Valid:      true,
	})
}

//
// coupons
//

func (c *Component) listCoupons(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	all := r.URL.Query().Get("all") == "1"
	list, err := cs.List(r.Context(), p.ID, all, time.Now())
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, list)
}

func (c *Component) createCoupon(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	var in coupon.Coupon
	if err := decode(w, r, &in); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	in.ID, in.ProviderID, in.Uses = 0, p.ID, 0

	if err := cs.Create(r.Context(), &in); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, in)
}

func (c *Component) getCoupon(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	cp, err := cs.Get(r.Context(), p.ID, chi.URLParam(r, "code"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, cp)
}

func (c *Component) updateCoupon(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	cp, err := cs.Get(r.Context(), p.ID, chi.URLParam(r, "code"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}

	now := time.Now()
	id, code, uses := cp.ID, cp.Code, cp.Uses
	ended := uses > 0 && cp.Expired(now)
	if err := decode(w, r, cp); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	cp.ID, cp.Code, cp.ProviderID, cp.Uses = id, code, p.ID, uses

	// A redeemed coupon that has ended (deleted or expired) stays ended.
	if ended && !cp.Expired(now) {
		httperr.Handle(w, r, &coupon.ValidationError{Fields: map[string]string{
			"ends_at": "A coupon that has ended after being redeemed cannot be reactivated.",
		}})
		return
	}

	if err := cs.Update(r.Context(), cp); err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, cp)
}

func (c *Component) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	cp, err := cs.Get(r.Context(), p.ID, chi.URLParam(r, "code"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	outcome, err := cs.Delete(r.Context(), cp)
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	if outcome == coupon.Deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"outcome": outcome.String(), "coupon": cp})
}

func (c *Component) listUses(w http.ResponseWriter, r *http.Request) {
	p, _, cs, ok := loadProvider(w, r)
	if !ok {
		return
	}
	cp, err := cs.Get(r.Context(), p.ID, chi.URLParam(r, "code"))
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	uses, err := cs.Uses(r.Context(), cp.ID)
	if err != nil {
		httperr.Handle(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, uses)
}
