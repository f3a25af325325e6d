// internal/coupon/model.go
//
// Coupon and coupon-use row models.
//
// Context
// -------
// Coupons belong to a provider and may be scoped to one of its plans.  A
// coupon is valid inside [starts_at, ends_at); a NULL ends_at never expires.
// Every redemption is recorded in `coupon_use` so deletion can tell whether
// the coupon still matters for historical reporting.
//
// Schema reference
//
//	CREATE TABLE coupon (
//	    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    code           VARCHAR(50)  NOT NULL,
//	    provider_id    INT UNSIGNED NOT NULL REFERENCES provider(id),
//	    plan_id        INT UNSIGNED NULL REFERENCES plan(id),
//	    discount_type  VARCHAR(16)  NOT NULL,
//	    amount         BIGINT       NOT NULL DEFAULT 0,
//	    description    TEXT         NOT NULL,
//	    nb_attempts    INT          NULL,
//	    starts_at      TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    ends_at        TIMESTAMP    NULL,
//	    created_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    UNIQUE KEY (provider_id, code)
//	);
//
//	CREATE TABLE coupon_use (
//	    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    coupon_id      INT UNSIGNED NOT NULL REFERENCES coupon(id),
//	    subscriber_id  INT UNSIGNED NOT NULL,
//	    plan_id        INT UNSIGNED NOT NULL REFERENCES plan(id),
//	    used_at        TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    client_ip      VARCHAR(45)  NOT NULL DEFAULT '',
//	    country        CHAR(2)      NOT NULL DEFAULT ''
//	);
//
// Notes
// -----
//   - Amounts are minor units.  For percentage coupons 10000 is 100.00%.
//   - NbAttempts is the redemption limit; NULL means unlimited.

package coupon

import "time"

// DiscountType selects how Amount is applied.
type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Currency   DiscountType = "currency"
)

// PercentScale is the Amount of a 100% percentage coupon.
const PercentScale = 10000

// Coupon mirrors one row in `coupon`.  Uses is not a column; the store
// fills it from `coupon_use`.
type Coupon struct {
	ID           uint64       `db:"id"            json:"id"`
	Code         string       `db:"code"          json:"code"          validate:"required,max=50,coupon_code"`
	ProviderID   uint64       `db:"provider_id"   json:"provider_id"   validate:"required"`
	PlanID       *uint64      `db:"plan_id"       json:"plan_id,omitempty"`
	DiscountType DiscountType `db:"discount_type" json:"discount_type" validate:"required,oneof=percentage currency"`
	Amount       int64        `db:"amount"        json:"amount"        validate:"gte=0"`
	Description  string       `db:"description"   json:"description"   validate:"max=2048"`
	NbAttempts   *int         `db:"nb_attempts"   json:"nb_attempts,omitempty" validate:"omitempty,gte=0"`
	StartsAt     time.Time    `db:"starts_at"     json:"starts_at"`
	EndsAt       *time.Time   `db:"ends_at"       json:"ends_at,omitempty"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	Uses         int          `db:"nb_uses"       json:"nb_uses"`
}

// Use mirrors one row in `coupon_use`.
type Use struct {
	ID           uint64    `db:"id"            json:"id"`
	CouponID     uint64    `db:"coupon_id"     json:"coupon_id"`
	SubscriberID uint64    `db:"subscriber_id" json:"subscriber_id"`
	PlanID       uint64    `db:"plan_id"       json:"plan_id"`
	UsedAt       time.Time `db:"used_at"       json:"used_at"`
	ClientIP     string    `db:"client_ip"     json:"client_ip"`
	Country      string    `db:"country"       json:"country"`
}

// Expired reports whether the coupon has ended at instant at.
func (c *Coupon) Expired(at time.Time) bool {
	return c.EndsAt != nil && !at.Before(*c.EndsAt)
}
