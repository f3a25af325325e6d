// internal/tenant/repository.go
//
// Site-table query helpers.
//
// Context
// -------
//   - `ByDomain` – Site Resolver, first request for a host.
//   - `BySlug`   – path-prefix fallback and management commands.
//   - `AllActive` – boot-time sanity count and `adeptctl sites`.
//
// All helpers exclude suspended or deleted rows at SQL level.  Lookups by
// domain fetch up to two rows so a duplicated domain surfaces as
// ErrAmbiguous instead of silently serving whichever row came first.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Errors other than "no rows" are returned wrapped so the caller can
//     tell a missing tenant from a broken database.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when no active site matches.
	ErrNotFound = errors.New("tenant not found")

	// ErrAmbiguous is returned when more than one active site shares a
	// domain.  This is a data integrity violation.
	ErrAmbiguous = errors.New("tenant domain is ambiguous")
)

const selectSite = `
        SELECT id, slug, domain, db_name, template_dir, title,
               suspended_at, deleted_at, created_at, updated_at
        FROM   site`

// ByDomain fetches the single active site serving domain.
func ByDomain(ctx context.Context, db *sqlx.DB, domain string) (*Record, error) {
	const q = selectSite + `
        WHERE  domain = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  2`
	return exactlyOne(ctx, db, q, domain)
}

// BySlug fetches the single active site with slug.
func BySlug(ctx context.Context, db *sqlx.DB, slug string) (*Record, error) {
	const q = selectSite + `
        WHERE  slug = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  2`
	return exactlyOne(ctx, db, q, slug)
}

// AllActive returns every site that is neither suspended nor deleted.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = selectSite + `
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL
        ORDER  BY id`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("select sites: %w", err)
	}
	return rows, nil
}

func exactlyOne(ctx context.Context, db *sqlx.DB, q string, arg any) (*Record, error) {
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q, arg); err != nil {
		return nil, fmt.Errorf("select site %q: %w", arg, err)
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguous, arg)
	}
}
