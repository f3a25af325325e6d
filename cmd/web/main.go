// cmd/web/main.go
//
// Billing front: HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Boot: config (Vault-backed secrets when VAULT_ADDR is set), logger,
//     control-plane pool, tenant pool registry, components, asset
//     registry, and template engine (see internal/app).
//
//  2. Build the tenant cache over tenant.Loader, and start the Redis
//     invalidation listener when tenants.redis_addr is set.
//
//  3. Root router:
//
//     • /metrics                  – Prometheus
//     • /static/*                 – built asset bundles
//     • everything else           – tenant pipeline below
//
//  4. Tenant pipeline:
//
//     Security → requestinfo.Enrich → ForceHTTPS (optional)
//       → tenant resolution → path-prefix strip → session user
//       → per-tenant router (components enabled in app_acl)
//
//  5. server.Run until SIGINT or SIGTERM, then drain.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/app"
	"github.com/yanizio/adeptbill/internal/config"
	"github.com/yanizio/adeptbill/internal/httperr"
	"github.com/yanizio/adeptbill/internal/logger"
	"github.com/yanizio/adeptbill/internal/middleware"
	"github.com/yanizio/adeptbill/internal/requestinfo"
	"github.com/yanizio/adeptbill/internal/routing"
	"github.com/yanizio/adeptbill/internal/server"
	"github.com/yanizio/adeptbill/internal/tenant"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.RootDir()
	boot := logger.Console("info")

	a, err := app.Boot(ctx, root)
	if err != nil {
		boot.Fatalw("boot failed", "err", err)
	}
	defer a.Close()
	cfg := a.Config

	log, err := logger.New(root, logger.Options{Tee: runningInTTY(), Level: cfg.Log.Level})
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── Tenant cache and resolver ───────────────────────────────────────
	//
	cache := tenant.NewCache(a.Loader.Load, cfg.Tenants.IdleTTL, cfg.Tenants.MaxEntries)
	defer cache.Close()

	resolver := tenant.NewResolver(cache, tenant.Options{
		PathPrefix:     cfg.Tenants.PathPrefix,
		LocalhostAlias: cfg.Database.LocalhostAlias,
		DefaultScheme:  cfg.HTTP.DefaultScheme,
	})

	var workers []func(context.Context) error
	if cfg.Tenants.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Tenants.RedisAddr})
		defer rdb.Close()
		inv := tenant.NewInvalidator(rdb, cfg.Tenants.InvalidateChannel)
		workers = append(workers, func(ctx context.Context) error {
			return inv.Listen(ctx, cache, nil)
		})
	}

	//
	// ── Request info (GeoIP is optional) ────────────────────────────────
	//
	var geo *requestinfo.GeoDB
	if cfg.Geo.DBPath != "" {
		if geo, err = requestinfo.OpenGeo(cfg.Geo.DBPath); err != nil {
			log.Warnw("geoip disabled", "err", err)
			geo = nil
		} else {
			defer geo.Close()
		}
	}

	//
	// ── Routers ─────────────────────────────────────────────────────────
	//
	site := chi.NewRouter()
	site.Use(chimw.Recoverer)
	site.Use(middleware.Security(cfg.HTTP.ForceHTTPS))
	site.Use(requestinfo.Enrich(geo))
	if cfg.HTTP.ForceHTTPS {
		site.Use(func(next http.Handler) http.Handler { return middleware.ForceHTTPS(resolver, next) })
	}
	site.Use(resolver.Middleware(httperr.Handle))
	site.Use(routing.StripPrefix)
	site.Use(a.Sessions.Middleware)
	site.HandleFunc("/*", tenant.Dispatch)

	static := strings.TrimSuffix(cfg.Assets.URLPrefix, "/")

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle(static+"/*", http.StripPrefix(static+"/",
		http.FileServer(http.Dir(a.Path(cfg.Assets.OutputDir)))))
	r.Mount("/", site)

	srv := server.New(cfg.HTTP.ListenAddr, r)
	if err := server.Run(ctx, srv, workers...); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("shutdown complete")
}
