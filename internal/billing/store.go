// internal/billing/store.go
//
// Read helpers for providers and plans, scoped to one tenant database.

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adeptbill/internal/routing"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("billing: not found")

const (
	providerCols = `id, slug, full_name, created_at`
	planCols     = `id, slug, provider_id, title, description, period_amount,
	                currency, is_active, created_at`
)

// Store wraps the tenant pool.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// ProviderBySlug returns the provider identified by slug.
func (s *Store) ProviderBySlug(ctx context.Context, slug string) (*Provider, error) {
	var p Provider
	err := s.db.GetContext(ctx, &p,
		`SELECT `+providerCols+` FROM provider WHERE slug = ?`, slug)
	if err != nil {
		return nil, notFound(err, "provider", slug)
	}
	return &p, nil
}

// PlanBySlug returns the plan slug owned by providerID.
func (s *Store) PlanBySlug(ctx context.Context, providerID uint64, slug string) (*Plan, error) {
	var p Plan
	err := s.db.GetContext(ctx, &p,
		`SELECT `+planCols+` FROM plan WHERE provider_id = ? AND slug = ?`, providerID, slug)
	if err != nil {
		return nil, notFound(err, "plan", slug)
	}
	return &p, nil
}

// PlanByID returns one plan.
func (s *Store) PlanByID(ctx context.Context, id uint64) (*Plan, error) {
	var p Plan
	err := s.db.GetContext(ctx, &p, `SELECT `+planCols+` FROM plan WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "plan", fmt.Sprint(id))
	}
	return &p, nil
}

// PlansByProvider lists a provider's plans ordered by amount.  activeOnly
// hides plans not yet open for subscription.
func (s *Store) PlansByProvider(ctx context.Context, providerID uint64, activeOnly bool) ([]Plan, error) {
	q := `SELECT ` + planCols + ` FROM plan WHERE provider_id = ?`
	if activeOnly {
		q += ` AND is_active = TRUE`
	}
	q += ` ORDER BY period_amount, slug`

	var plans []Plan
	if err := s.db.SelectContext(ctx, &plans, q, providerID); err != nil {
		return nil, fmt.Errorf("billing: plans for provider %d: %w", providerID, err)
	}
	return plans, nil
}

// CreatePlan inserts p.  An empty slug is derived from the title.
func (s *Store) CreatePlan(ctx context.Context, p *Plan) error {
	if p.Slug == "" {
		p.Slug = routing.MakeSlug(p.Title)
	}
	if p.Currency == "" {
		p.Currency = "usd"
	}
	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO plan (slug, provider_id, title, description, period_amount, currency, is_active)
		 VALUES (:slug, :provider_id, :title, :description, :period_amount, :currency, :is_active)`, p)
	if err != nil {
		return fmt.Errorf("billing: create plan %s: %w", p.Slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func notFound(err error, kind, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, key)
	}
	return fmt.Errorf("billing: %s %s: %w", kind, key, err)
}
