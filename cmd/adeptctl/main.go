// cmd/adeptctl/main.go
//
// Operator commands for the billing front.
//
// Context
// -------
// Every command boots the same wiring as cmd/web (internal/app) and then
// does one job against the control plane or a single tenant database.
// Tenant-scoped commands take --site <slug>; the site row is read from the
// control plane and its pool is obtained through the loader's Get(db_name).
//
// Commands
// --------
//   loadfixtures       load a YAML fixture file into a tenant database
//   decode-session     print the decoded data of one session key
//   clear-sessions     delete expired session rows of a tenant
//   export-asset-dirs  write bundle source directories to webpack_dirs.json
//   build-assets       build every declared asset bundle
//   invalidate-site    drop a site from every worker's tenant cache
//   schema             print the DDL of every component
//   sites              list active sites
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/app"
	"github.com/yanizio/adeptbill/internal/config"
	"github.com/yanizio/adeptbill/internal/logger"
	"github.com/yanizio/adeptbill/internal/tenant"
)

var (
	rootDir  string
	logLevel string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:           "adeptctl",
	Short:         "Manage billing front sites, fixtures, sessions, and assets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Console(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "application root (default: discovered from conf/global.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	rootCmd.AddCommand(
		loadFixturesCmd,
		decodeSessionCmd,
		clearSessionsCmd,
		exportAssetDirsCmd,
		buildAssetsCmd,
		invalidateSiteCmd,
		schemaCmd,
		sitesCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "adeptctl:", err)
		os.Exit(1)
	}
}

// boot wires the application for one command run.  The caller closes it.
func boot(ctx context.Context) (*app.App, error) {
	root := rootDir
	if root == "" {
		root = config.RootDir()
	}
	return app.Boot(ctx, root)
}

// siteDB returns the tenant pool behind the site with the given slug.
func siteDB(ctx context.Context, a *app.App, slug string) (*tenant.Record, *sqlx.DB, error) {
	if slug == "" {
		return nil, nil, fmt.Errorf("--site is required")
	}
	rec, err := tenant.BySlug(ctx, a.Global, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("site %q: %w", slug, err)
	}
	db, err := a.Loader.Get(ctx, rec.DBName)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Debug("site database selected", zap.String("site", rec.Slug), zap.String("db", rec.DBName))
	return rec, db, nil
}
