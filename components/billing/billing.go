// components/billing/billing.go
//
// Billing component: plans, price quotes, and coupon management.
//
// Routes (relative to the tenant root, after prefix stripping)
// ------------------------------------------------------------
//   GET    /billing/{provider}/pricing                       HTML plan table
//   GET    /billing/{provider}/plans                         active plans
//   GET    /billing/{provider}/plans/{plan}/quote?coupon=X   price with coupon
//   POST   /billing/{provider}/plans/{plan}/redeem           apply a coupon
//   GET    /billing/{provider}/coupons[?all=1]               coupon.read
//   POST   /billing/{provider}/coupons                       coupon.write
//   GET    /billing/{provider}/coupons/{code}                coupon.read
//   PUT    /billing/{provider}/coupons/{code}                coupon.write
//   DELETE /billing/{provider}/coupons/{code}                coupon.write
//   GET    /billing/{provider}/coupons/{code}/uses           coupon.read
//
// Notes
// -----
// • Stores are bound per request to the current tenant's pool.
// • DELETE answers 204 when the row was removed and 200 with
//   {"outcome":"deactivated"} when the coupon had been redeemed.

package billing

import (
	"github.com/go-chi/chi/v5"

	"github.com/yanizio/adeptbill/internal/assets"
	"github.com/yanizio/adeptbill/internal/component"
	"github.com/yanizio/adeptbill/internal/rules"
	"github.com/yanizio/adeptbill/internal/templates"
)

// Compile-time assertions.
var (
	_ component.Component = (*Component)(nil)
	_ assets.Declarer     = (*Component)(nil)
)

// Permission actions checked against role_acl.
const (
	ActionRead   = "coupon.read"
	ActionWrite  = "coupon.write"
	ActionRedeem = "coupon.redeem"
)

// Component serves the billing pages and API.
type Component struct {
	engine *templates.Engine
}

// New returns the component.  engine renders the pricing page.
func New(engine *templates.Engine) *Component { return &Component{engine: engine} }

func (c *Component) Name() string { return "billing" }

// Assets reports that billing ships no bundles of its own; the pricing page
// uses the site bundles declared by pages.
func (c *Component) Assets() ([]assets.Bundle, error) { return nil, assets.ErrNoAssets }

// Routes registers the billing endpoints.
func (c *Component) Routes(r chi.Router) {
	r.Route("/billing/{provider}", func(r chi.Router) {
		r.Get("/pricing", c.pricing)
		r.Get("/plans", c.listPlans)
		r.Get("/plans/{plan}/quote", c.quote)
		r.With(rules.RequirePermission(c.Name(), ActionRedeem)).
			Post("/plans/{plan}/redeem", c.redeem)

		r.Route("/coupons", func(r chi.Router) {
			read := rules.RequirePermission(c.Name(), ActionRead)
			write := rules.RequirePermission(c.Name(), ActionWrite)

			r.With(read).Get("/", c.listCoupons)
			r.With(write).Post("/", c.createCoupon)
			r.With(read).Get("/{code}", c.getCoupon)
			r.With(write).Put("/{code}", c.updateCoupon)
			r.With(write).Delete("/{code}", c.deleteCoupon)
			r.With(read).Get("/{code}/uses", c.listUses)
		})
	})
}

// Migrations returns the DDL for the billing tables.
func (c *Component) Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS provider (
    id          INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    slug        VARCHAR(50)  NOT NULL UNIQUE,
    full_name   VARCHAR(100) NOT NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS plan (
    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    slug           VARCHAR(50)  NOT NULL,
    provider_id    INT UNSIGNED NOT NULL,
    title          VARCHAR(100) NOT NULL,
    description    TEXT         NOT NULL,
    period_amount  BIGINT       NOT NULL DEFAULT 0,
    currency       CHAR(3)      NOT NULL DEFAULT 'usd',
    is_active      BOOLEAN      NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY (provider_id, slug),
    FOREIGN KEY (provider_id) REFERENCES provider(id)
)`,
		`CREATE TABLE IF NOT EXISTS coupon (
    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    code           VARCHAR(50)  NOT NULL,
    provider_id    INT UNSIGNED NOT NULL,
    plan_id        INT UNSIGNED NULL,
    discount_type  VARCHAR(16)  NOT NULL,
    amount         BIGINT       NOT NULL DEFAULT 0,
    description    TEXT         NOT NULL,
    nb_attempts    INT          NULL,
    starts_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ends_at        TIMESTAMP    NULL,
    created_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY (provider_id, code),
    FOREIGN KEY (provider_id) REFERENCES provider(id),
    FOREIGN KEY (plan_id) REFERENCES plan(id)
)`,
		`CREATE TABLE IF NOT EXISTS coupon_use (
    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
    coupon_id      INT UNSIGNED NOT NULL,
    subscriber_id  INT UNSIGNED NOT NULL,
    plan_id        INT UNSIGNED NOT NULL,
    used_at        TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    client_ip      VARCHAR(45)  NOT NULL DEFAULT '',
    country        CHAR(2)      NOT NULL DEFAULT '',
    KEY (coupon_id),
    FOREIGN KEY (coupon_id) REFERENCES coupon(id)
)`,
	}
}
