// internal/coupon/store.go
//
// Coupon persistence on the tenant database.
//
// Context
// -------
// Deletion follows one business rule: a coupon that was never redeemed is
// removed; a coupon with at least one `coupon_use` row is deactivated by
// setting ends_at to the deletion instant so historical reports keep it.
// Both branches run in one transaction that first locks the coupon row and
// then counts the uses.
//
// Notes
// -----
// • A duplicate (provider_id, code) is reported as a field error on `code`,
//   never as the raw MySQL 1062.
// • Redeem and Delete lock the coupon row (FOR UPDATE), so concurrent
//   redemptions cannot overshoot nb_attempts and a use cannot land between
//   Delete's count and its DELETE.

package coupon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/billing"
)

// ErrNotFound is returned when no coupon matches.
var ErrNotFound = errors.New("coupon: not found")

// DeleteOutcome tells the caller which branch Delete took.
type DeleteOutcome int

const (
	Deleted     DeleteOutcome = iota // row removed
	Deactivated                      // ends_at set, row kept
)

func (o DeleteOutcome) String() string {
	if o == Deactivated {
		return "deactivated"
	}
	return "deleted"
}

const selectCoupon = `SELECT c.id, c.code, c.provider_id, c.plan_id, c.discount_type,
       c.amount, c.description, c.nb_attempts, c.starts_at, c.ends_at, c.created_at,
       (SELECT COUNT(*) FROM coupon_use u WHERE u.coupon_id = c.id) AS nb_uses
  FROM coupon c`

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store wraps the tenant pool.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and inserts c, filling ID and defaults.
func (s *Store) Create(ctx context.Context, c *Coupon) error {
	if c.StartsAt.IsZero() {
		c.StartsAt = s.now()
	}
	if err := Validate(c); err != nil {
		return err
	}

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO coupon (code, provider_id, plan_id, discount_type, amount,
		                     description, nb_attempts, starts_at, ends_at)
		 VALUES (:code, :provider_id, :plan_id, :discount_type, :amount,
		         :description, :nb_attempts, :starts_at, :ends_at)`, c)
	if isDuplicate(err) {
		return fieldError("code", "A coupon with this code already exists.")
	}
	if err != nil {
		return fmt.Errorf("coupon: create %s: %w", c.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	zap.L().Info("coupon created", zap.String("code", c.Code), zap.Uint64("provider", c.ProviderID))
	return nil
}

// Get returns the provider's coupon identified by code.
func (s *Store) Get(ctx context.Context, providerID uint64, code string) (*Coupon, error) {
	return get(ctx, s.db, selectCoupon+` WHERE c.provider_id = ? AND c.code = ?`, providerID, code)
}

// List returns the provider's coupons ordered by code.  Unless
// includeExpired is set, coupons ended at instant at are skipped.
func (s *Store) List(ctx context.Context, providerID uint64, includeExpired bool, at time.Time) ([]Coupon, error) {
	q := selectCoupon + ` WHERE c.provider_id = ?`
	args := []any{providerID}
	if !includeExpired {
		q += ` AND (c.ends_at IS NULL OR c.ends_at > ?)`
		args = append(args, at)
	}
	q += ` ORDER BY c.code`

	var out []Coupon
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("coupon: list provider %d: %w", providerID, err)
	}
	return out, nil
}

// Update writes every mutable column of c.  Code and provider are the
// lookup key and never change; callers load the coupon with Get first.
func (s *Store) Update(ctx context.Context, c *Coupon) error {
	if err := Validate(c); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx,
		`UPDATE coupon
		    SET plan_id = :plan_id, discount_type = :discount_type, amount = :amount,
		        description = :description, nb_attempts = :nb_attempts,
		        starts_at = :starts_at, ends_at = :ends_at
		  WHERE id = :id AND provider_id = :provider_id`, c)
	if err != nil {
		return fmt.Errorf("coupon: update %s: %w", c.Code, err)
	}
	return nil
}

// Delete removes c, or deactivates it when it has been redeemed.
func (s *Store) Delete(ctx context.Context, c *Coupon) (DeleteOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Deleted, err
	}
	defer tx.Rollback()

	// Same row lock Redeem takes, so no use can land between the count
	// and the delete.
	var locked uint64
	err = tx.GetContext(ctx, &locked, `SELECT id FROM coupon WHERE id = ? FOR UPDATE`, c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return Deleted, ErrNotFound
	}
	if err != nil {
		return Deleted, fmt.Errorf("coupon: lock %s: %w", c.Code, err)
	}

	var uses int
	if err := tx.GetContext(ctx, &uses,
		`SELECT COUNT(*) FROM coupon_use WHERE coupon_id = ?`, c.ID); err != nil {
		return Deleted, fmt.Errorf("coupon: count uses %s: %w", c.Code, err)
	}

	outcome := Deleted
	if uses == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM coupon WHERE id = ?`, c.ID); err != nil {
			return Deleted, fmt.Errorf("coupon: delete %s: %w", c.Code, err)
		}
	} else {
		outcome = Deactivated
		now := s.now()
		if c.EndsAt == nil || c.EndsAt.After(now) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE coupon SET ends_at = ? WHERE id = ?`, now, c.ID); err != nil {
				return Deactivated, fmt.Errorf("coupon: deactivate %s: %w", c.Code, err)
			}
			c.EndsAt = &now
		}
	}
	if err := tx.Commit(); err != nil {
		return outcome, err
	}

	c.Uses = uses
	zap.L().Info("coupon removed",
		zap.String("code", c.Code),
		zap.Stringer("outcome", outcome),
		zap.Int("uses", uses))
	return outcome, nil
}

// RecordUse inserts one redemption row.
func (s *Store) RecordUse(ctx context.Context, u *Use) error {
	return recordUse(ctx, s.db, u, s.now())
}

// Uses lists a coupon's redemptions, most recent first.
func (s *Store) Uses(ctx context.Context, couponID uint64) ([]Use, error) {
	var out []Use
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, coupon_id, subscriber_id, plan_id, used_at, client_ip, country
		   FROM coupon_use WHERE coupon_id = ? ORDER BY used_at DESC, id DESC`, couponID)
	if err != nil {
		return nil, fmt.Errorf("coupon: uses %d: %w", couponID, err)
	}
	return out, nil
}

// Redeem checks the coupon against p and records u in one transaction.  It
// returns the coupon and the discounted price.
func (s *Store) Redeem(ctx context.Context, code string, p *billing.Plan, u Use) (*Coupon, int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	c, err := get(ctx, tx,
		selectCoupon+` WHERE c.provider_id = ? AND c.code = ? FOR UPDATE`, p.ProviderID, code)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	if err := Check(c, p, now); err != nil {
		return c, p.PeriodAmount, err
	}

	u.CouponID, u.PlanID = c.ID, p.ID
	if err := recordUse(ctx, tx, &u, now); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	c.Uses++
	return c, DiscountedPrice(p, c), nil
}

//
// helpers
//

func get(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*Coupon, error) {
	var c Coupon
	err := sqlx.GetContext(ctx, q, &c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("coupon: get: %w", err)
	}
	return &c, nil
}

func recordUse(ctx context.Context, e sqlx.ExecerContext, u *Use, now time.Time) error {
	if u.UsedAt.IsZero() {
		u.UsedAt = now
	}
	res, err := e.ExecContext(ctx,
		`INSERT INTO coupon_use (coupon_id, subscriber_id, plan_id, used_at, client_ip, country)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.CouponID, u.SubscriberID, u.PlanID, u.UsedAt, u.ClientIP, u.Country)
	if err != nil {
		return fmt.Errorf("coupon: record use %d: %w", u.CouponID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
