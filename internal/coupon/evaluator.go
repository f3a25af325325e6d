// internal/coupon/evaluator.go
//
// Validity and pricing rules.
//
// A coupon applies to a plan at instant `at` when:
//
//   1. starts_at <= at < ends_at   (NULL ends_at never expires)
//   2. the coupon's provider owns the plan
//   3. the coupon is unscoped, or scoped to exactly this plan
//   4. the redemption limit, if any, is not exhausted
//
// Check returns the first failing rule as a sentinel error; IsValid is the
// boolean form used by pricing pages.

package coupon

import (
	"errors"
	"time"

	"github.com/yanizio/adeptbill/internal/billing"
	"github.com/yanizio/adeptbill/internal/metrics"
)

var (
	ErrNotStarted    = errors.New("coupon: not yet valid")
	ErrExpired       = errors.New("coupon: expired")
	ErrWrongProvider = errors.New("coupon: plan belongs to another provider")
	ErrWrongPlan     = errors.New("coupon: not valid for this plan")
	ErrExhausted     = errors.New("coupon: redemption limit reached")
)

// Check explains why c does not apply to p at instant at, or returns nil.
func Check(c *Coupon, p *billing.Plan, at time.Time) error {
	err := check(c, p, at)
	outcome := "valid"
	if err != nil {
		outcome = "invalid"
	}
	metrics.CouponEvaluationsTotal.WithLabelValues(outcome).Inc()
	return err
}

func check(c *Coupon, p *billing.Plan, at time.Time) error {
	switch {
	case at.Before(c.StartsAt):
		return ErrNotStarted
	case c.Expired(at):
		return ErrExpired
	case c.ProviderID != p.ProviderID:
		return ErrWrongProvider
	case c.PlanID != nil && *c.PlanID != p.ID:
		return ErrWrongPlan
	case c.NbAttempts != nil && c.Uses >= *c.NbAttempts:
		return ErrExhausted
	}
	return nil
}

// IsValid reports whether c applies to p at instant at.
func IsValid(c *Coupon, p *billing.Plan, at time.Time) bool {
	return Check(c, p, at) == nil
}

// Discount returns the amount c takes off p's period price.
func Discount(p *billing.Plan, c *Coupon) int64 {
	if c == nil || p.PeriodAmount <= 0 {
		return 0
	}
	var off int64
	switch c.DiscountType {
	case Percentage:
		pct := min(c.Amount, PercentScale)
		// Round half up in minor units.  Split on the scale so the product
		// never exceeds the price.
		q, r := p.PeriodAmount/PercentScale, p.PeriodAmount%PercentScale
		off = q*pct + (r*pct+PercentScale/2)/PercentScale
	case Currency:
		off = c.Amount
	}
	return min(max(off, 0), p.PeriodAmount)
}

// DiscountedPrice returns p's period price after c, never below zero.  It
// does not check validity; callers run IsValid first.
func DiscountedPrice(p *billing.Plan, c *Coupon) int64 {
	return p.PeriodAmount - Discount(p, c)
}
