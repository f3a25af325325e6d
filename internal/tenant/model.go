// internal/tenant/model.go
//
// `site` table row model and the live Tenant aggregate.
//
// Context
// -------
// The `Record` struct mirrors one row in the control-plane **site** table.
// A live Tenant wraps that row with the pool behind its `db_name` alias and
// a lazily built chi router.  The cache stores a pointer to Tenant inside
// `entry`, along with a `lastSeen` UnixNano timestamp used by the evictor.
//
// Schema reference
//
//	CREATE TABLE site (
//	    id            INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    slug          VARCHAR(64)   NOT NULL UNIQUE,
//	    domain        VARCHAR(256)  NOT NULL,
//	    db_name       VARCHAR(64)   NOT NULL,
//	    template_dir  VARCHAR(512)  NOT NULL DEFAULT '',
//	    title         VARCHAR(256)  NOT NULL DEFAULT '',
//	    suspended_at  TIMESTAMP NULL,
//	    deleted_at    TIMESTAMP NULL,
//	    created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// `domain` is deliberately not UNIQUE in legacy schemas; the repository
// detects duplicates and reports ErrAmbiguous.
//
// Notes
// -----
//   - Nullable timestamps are `*time.Time`; callers must nil-check.
//   - Tenants are immutable once loaded; handlers treat them as read-only.
package tenant

import (
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Record mirrors one row in the `site` table.
type Record struct {
	ID          uint64     `db:"id"`
	Slug        string     `db:"slug"`
	Domain      string     `db:"domain"`
	DBName      string     `db:"db_name"`
	TemplateDir string     `db:"template_dir"`
	Title       string     `db:"title"`
	SuspendedAt *time.Time `db:"suspended_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

//
// Cache entry
//

type entry struct {
	tenant   *Tenant
	lastSeen int64 // UnixNano
}

//
// Tenant aggregate
//

// Tenant groups the per-site runtime assets needed by request handlers.
type Tenant struct {
	Meta Record   // Row from `site`
	DB   *sqlx.DB // Pool behind Meta.DBName, shared through the registry

	mount      *Mounter
	routerOnce sync.Once
	router     http.Handler
}

// New wraps a site row and its pool.  mount may be nil for tenants that are
// only used outside HTTP (management commands).
func New(rec Record, db *sqlx.DB, mount *Mounter) *Tenant {
	return &Tenant{Meta: rec, DB: db, mount: mount}
}

func (t *Tenant) ID() uint64          { return t.Meta.ID }
func (t *Tenant) Slug() string        { return t.Meta.Slug }
func (t *Tenant) Domain() string      { return t.Meta.Domain }
func (t *Tenant) TemplateDir() string { return t.Meta.TemplateDir }
func (t *Tenant) GetDB() *sqlx.DB     { return t.DB }
