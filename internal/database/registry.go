// internal/database/registry.go
//
// Alias-based connection registry.
//
// Context
// -------
// Every tenant row names a database alias (`db_name`).  Request handlers,
// management commands, and the session store ask the registry for the pool
// behind that alias with Get(ctx, alias); the first call opens and pings the
// pool, later calls share it.  DSNs come from a Resolver, normally built by
// DSNResolver from the `database` config section.

package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/config"
)

// ErrUnknownAlias is returned when no DSN can be produced for an alias.
var ErrUnknownAlias = errors.New("unknown database alias")

// Resolver maps an alias to a DSN.
type Resolver func(ctx context.Context, alias string) (string, error)

// Opener opens a pool for a DSN.  Tests swap it for a sqlmock-backed one.
type Opener func(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error)

// Registry hands out one shared pool per alias.  Safe for concurrent use.
type Registry struct {
	resolve Resolver
	open    Opener
	opts    Options

	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

// NewRegistry builds a registry that opens pools with OpenWithOptions.
func NewRegistry(resolve Resolver, opts Options) *Registry {
	return &Registry{
		resolve: resolve,
		open:    OpenWithOptions,
		opts:    opts,
		pools:   make(map[string]*sqlx.DB),
	}
}

// WithOpener replaces the pool opener and returns r.
func (r *Registry) WithOpener(o Opener) *Registry {
	r.open = o
	return r
}

// Get returns the pool for alias, opening it on first use.
func (r *Registry) Get(ctx context.Context, alias string) (*sqlx.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.pools[alias]; ok {
		return db, nil
	}

	dsn, err := r.resolve(ctx, alias)
	if err != nil {
		return nil, err
	}
	db, err := r.open(ctx, dsn, r.opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", alias, err)
	}
	r.pools[alias] = db
	zap.L().Info("database pool opened", zap.String("alias", alias))
	return db, nil
}

// Release closes and forgets the pool for alias, if any.
func (r *Registry) Release(alias string) error {
	r.mu.Lock()
	db, ok := r.pools[alias]
	delete(r.pools, alias)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return db.Close()
}

// Close closes every pool.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for alias, db := range r.pools {
		errs = append(errs, db.Close())
		delete(r.pools, alias)
	}
	return errors.Join(errs...)
}

// DSNResolver resolves aliases from the config alias table first, then from
// the DSN template.  Any DSN that is itself a `vault:` reference goes
// through secrets.
func DSNResolver(cfg config.Database, secrets config.SecretResolver) Resolver {
	return func(ctx context.Context, alias string) (string, error) {
		dsn, ok := cfg.Aliases[alias]
		if !ok {
			if cfg.DSNTemplate == "" {
				return "", fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
			}
			dsn = fmt.Sprintf(cfg.DSNTemplate, alias)
		}
		if config.IsSecretRef(dsn) {
			if secrets == nil {
				return "", fmt.Errorf("alias %q: secret reference but no resolver", alias)
			}
			return secrets.Resolve(ctx, dsn)
		}
		return dsn, nil
	}
}
