// internal/app/app.go
//
// Process bootstrap shared by cmd/web and cmd/adeptctl.
//
// Context
// -------
// Both binaries need the same wiring: configuration (with Vault-backed
// secrets when VAULT_ADDR is set), the control-plane pool, the per-alias
// tenant pool registry, the statically enumerated component list, the
// asset registry, and the template engine.  Boot performs these steps in
// order and returns the assembled App; Close releases every pool.
//
// Workflow
// --------
//  1. vault.New (optional) → config.LoadFrom
//  2. database.OpenWithOptions(global_dsn)
//  3. database.NewRegistry(DSNResolver)
//  4. assets.NewRegistry → templates.NewEngine(funcs: bundle, asset)
//  5. component.NewRegistry(auth, billing, pages) → assets.Autoload
//  6. tenant.Loader{Global, DBs, Mount}
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/components/auth"
	"github.com/yanizio/adeptbill/components/billing"
	"github.com/yanizio/adeptbill/components/pages"
	"github.com/yanizio/adeptbill/internal/assets"
	"github.com/yanizio/adeptbill/internal/component"
	"github.com/yanizio/adeptbill/internal/config"
	"github.com/yanizio/adeptbill/internal/database"
	"github.com/yanizio/adeptbill/internal/form"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/session"
	"github.com/yanizio/adeptbill/internal/templates"
	"github.com/yanizio/adeptbill/internal/tenant"
	"github.com/yanizio/adeptbill/internal/vault"
)

// App is the assembled process state.
type App struct {
	Config     *config.Config
	Secrets    config.SecretResolver
	Global     *sqlx.DB
	DBs        *database.Registry
	Components *component.Registry
	Assets     *assets.Registry
	Engine     *templates.Engine
	Sessions   *session.Manager
	Loader     *tenant.Loader
}

// Boot wires the application below root (see config.RootDir).
func Boot(ctx context.Context, root string) (*App, error) {
	var secrets config.SecretResolver
	if vault.Enabled() {
		cli, err := vault.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		secrets = cli
	}

	cfg, err := config.LoadFrom(ctx, root, secrets)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	dbOpts := database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
	global, err := database.OpenWithOptions(ctx, cfg.Database.GlobalDSN, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("global db: %w", err)
	}

	a := &App{
		Config:  cfg,
		Secrets: secrets,
		Global:  global,
		DBs:     database.NewRegistry(database.DSNResolver(cfg.Database, secrets), dbOpts),
		Assets:  assets.NewRegistry(abs(root, cfg.Assets.Root), cfg.Assets.URLPrefix),
	}

	dirs := make([]string, 0, len(cfg.Templates.Dirs))
	for _, d := range cfg.Templates.Dirs {
		dirs = append(dirs, abs(root, d))
	}
	a.Engine = templates.NewEngine(templates.NewComposer(dirs), templates.Options{
		Kind:      templates.KindHTML,
		CacheSize: cfg.Templates.CacheSize,
		CacheTTL:  cfg.Templates.CacheTTL,
		Funcs:     a.Assets.FuncMap(),
	})
	httperr.SetEngine(a.Engine)

	a.Sessions = session.NewManager(cfg.Session.Secret, cfg.Session.CookieName)
	a.Components = component.NewRegistry(
		auth.New(a.Engine, a.Sessions, form.NewCSRF(cfg.Session.Secret)),
		billing.New(a.Engine),
		pages.New(a.Engine),
	)
	if err := a.Assets.Autoload(Declarers(a.Components)); err != nil {
		a.Close()
		return nil, err
	}

	a.Loader = &tenant.Loader{
		Global: global,
		DBs:    a.DBs,
		Mount:  &tenant.Mounter{Apps: a.Components, NotFound: httperr.NotFound},
	}

	if sites, err := tenant.AllActive(ctx, global); err == nil {
		zap.L().Info("control plane online", zap.Int("active_sites", len(sites)))
	} else {
		zap.L().Warn("count active sites", zap.Error(err))
	}
	return a, nil
}

// Declarers returns the components that ship static assets.
func Declarers(apps *component.Registry) []assets.Declarer {
	var out []assets.Declarer
	for _, c := range apps.All() {
		if d, ok := c.(assets.Declarer); ok {
			out = append(out, d)
		}
	}
	return out
}

// Close releases the tenant pools and the control-plane pool.
func (a *App) Close() {
	if err := a.DBs.Close(); err != nil {
		zap.L().Warn("close tenant pools", zap.Error(err))
	}
	if err := a.Global.Close(); err != nil {
		zap.L().Warn("close global db", zap.Error(err))
	}
}

// Path resolves p against the application root.
func (a *App) Path(p string) string { return abs(a.Config.Paths.Root, p) }

func abs(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
