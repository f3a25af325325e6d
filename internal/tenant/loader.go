package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// slugKeyPrefix marks cache keys that were resolved by site slug instead of
// domain.
const slugKeyPrefix = "slug:"

// DBGetter hands out the pool behind a database alias.  The
// database.Registry satisfies it.
type DBGetter interface {
	Get(ctx context.Context, alias string) (*sqlx.DB, error)
}

// Loader turns a cache key into a *Tenant.  Steps:
//
//  1. Fetch the site row by domain (or slug for "slug:" keys).
//  2. Resolve the tenant pool through the alias registry.
//  3. Attach the router mounter.
type Loader struct {
	Global *sqlx.DB
	DBs    DBGetter
	Mount  *Mounter
}

// Load implements LoadFunc.
func (l *Loader) Load(ctx context.Context, key string) (*Tenant, error) {
	var (
		rec *Record
		err error
	)
	if slug, ok := strings.CutPrefix(key, slugKeyPrefix); ok {
		rec, err = BySlug(ctx, l.Global, slug)
	} else {
		rec, err = ByDomain(ctx, l.Global, key)
	}
	if err != nil {
		return nil, err
	}

	db, err := l.DBs.Get(ctx, rec.DBName)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", rec.Slug, err)
	}
	return New(*rec, db, l.Mount), nil
}

// Get satisfies the management-command contract `get(db_name)`: it returns
// the pool behind a site's alias.
func (l *Loader) Get(ctx context.Context, dbName string) (*sqlx.DB, error) {
	return l.DBs.Get(ctx, dbName)
}
