// internal/billing/model.go
//
// Provider and Plan row models.
//
// Context
// -------
// Both tables live in the tenant database.  A provider is the organization
// selling plans on a site; coupons are always owned by one provider.
//
// Schema reference
//
//	CREATE TABLE provider (
//	    id          INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    slug        VARCHAR(50)  NOT NULL UNIQUE,
//	    full_name   VARCHAR(100) NOT NULL,
//	    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
//	CREATE TABLE plan (
//	    id             INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    slug           VARCHAR(50)  NOT NULL,
//	    provider_id    INT UNSIGNED NOT NULL REFERENCES provider(id),
//	    title          VARCHAR(100) NOT NULL,
//	    description    TEXT         NOT NULL,
//	    period_amount  BIGINT       NOT NULL DEFAULT 0,
//	    currency       CHAR(3)      NOT NULL DEFAULT 'usd',
//	    is_active      BOOLEAN      NOT NULL DEFAULT FALSE,
//	    created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    UNIQUE KEY (provider_id, slug)
//	);
//
// Notes
// -----
//   - Amounts are integers in the currency's minor unit (cents).

package billing

import "time"

// Provider mirrors one row in `provider`.
type Provider struct {
	ID        uint64    `db:"id"         json:"id"`
	Slug      string    `db:"slug"       json:"slug"`
	FullName  string    `db:"full_name"  json:"full_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Plan mirrors one row in `plan`.
type Plan struct {
	ID           uint64    `db:"id"            json:"id"`
	Slug         string    `db:"slug"          json:"slug"`
	ProviderID   uint64    `db:"provider_id"   json:"provider_id"`
	Title        string    `db:"title"         json:"title"`
	Description  string    `db:"description"   json:"description"`
	PeriodAmount int64     `db:"period_amount" json:"period_amount"`
	Currency     string    `db:"currency"      json:"currency"`
	IsActive     bool      `db:"is_active"     json:"is_active"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
