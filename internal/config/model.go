// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADEPT_`-prefixed environment overrides – highest precedence.
//
// Any string value beginning with `vault:` is resolved through a
// SecretResolver *before* unmarshalling, so the model only ever holds plain
// strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr    string `koanf:"listen_addr"    validate:"required,hostname_port"`
	ForceHTTPS    bool   `koanf:"force_https"`
	DefaultScheme string `koanf:"default_scheme" validate:"omitempty,oneof=http https"`
}

//
// Database section
//

// Database holds the control-plane DSN and the alias table used to route
// tenants to their own schema.
//
// Aliases maps a tenant `db_name` to a DSN.  Entries may embed a `vault:`
// reference; tenants whose alias is missing here fall back to DSNTemplate,
// where the single `%s` is replaced by the alias.
type Database struct {
	GlobalDSN      string            `koanf:"global_dsn"      validate:"required"`
	LocalhostAlias string            `koanf:"localhost_alias"`
	DSNTemplate    string            `koanf:"dsn_template"`
	Aliases        map[string]string `koanf:"aliases"`
	MaxOpenConns   int               `koanf:"max_open_conns"  validate:"gte=0"`
	MaxIdleConns   int               `koanf:"max_idle_conns"  validate:"gte=0"`
}

//
// Tenant cache section
//

// Tenants tunes the per-process site cache.
type Tenants struct {
	IdleTTL           time.Duration `koanf:"idle_ttl"`
	MaxEntries        int           `koanf:"max_entries" validate:"gte=0"`
	PathPrefix        bool          `koanf:"path_prefix"`
	RedisAddr         string        `koanf:"redis_addr"`
	InvalidateChannel string        `koanf:"invalidate_channel"`
}

//
// Templates section
//

// Templates lists the shared directories searched after tenant overrides.
type Templates struct {
	Dirs      []string      `koanf:"dirs"       validate:"required,min=1"`
	CacheSize int           `koanf:"cache_size" validate:"gte=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

//
// Assets section
//

// Assets configures where bundle sources live and where artifacts land.
type Assets struct {
	Root      string `koanf:"root"`
	OutputDir string `koanf:"output_dir"`
	URLPrefix string `koanf:"url_prefix"`
}

//
// Session section
//

// Session holds the cookie name and the signing key for session rows.
type Session struct {
	CookieName string `koanf:"cookie_name"`
	Secret     string `koanf:"secret" validate:"required,min=16"`
}

//
// Logging and geo sections
//

type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Tenants   Tenants   `koanf:"tenants"`
	Templates Templates `koanf:"templates"`
	Assets    Assets    `koanf:"assets"`
	Session   Session   `koanf:"session"`
	Log       Log       `koanf:"log"`
	Geo       Geo       `koanf:"geo"`
	Paths     Paths     `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible default.
func (c *Config) applyDefaults() {
	if c.HTTP.DefaultScheme == "" {
		c.HTTP.DefaultScheme = "https"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 5
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 2
	}
	if c.Tenants.MaxEntries == 0 {
		c.Tenants.MaxEntries = 100
	}
	if c.Tenants.InvalidateChannel == "" {
		c.Tenants.InvalidateChannel = "adept:tenant:invalidate"
	}
	if c.Templates.CacheSize == 0 {
		c.Templates.CacheSize = 1024
	}
	if c.Templates.CacheTTL == 0 {
		c.Templates.CacheTTL = 10 * time.Minute
	}
	if c.Assets.Root == "" {
		c.Assets.Root = "static"
	}
	if c.Assets.OutputDir == "" {
		c.Assets.OutputDir = "public/static"
	}
	if c.Assets.URLPrefix == "" {
		c.Assets.URLPrefix = "/static/"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "adept_session"
	}
}
