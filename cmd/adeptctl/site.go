package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/yanizio/adeptbill/internal/tenant"
)

var invalidateAll bool

// invalidateSiteCmd publishes a cache invalidation on the tenant channel.
var invalidateSiteCmd = &cobra.Command{
	Use:   "invalidate-site [DOMAIN|SLUG]",
	Short: "Drop a site from every worker's tenant cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident := tenant.InvalidateAllPayload
		switch {
		case invalidateAll:
		case len(args) == 1:
			ident = args[0]
		default:
			return fmt.Errorf("give a domain or slug, or --all")
		}

		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.Config.Tenants
		if cfg.RedisAddr == "" {
			return fmt.Errorf("tenants.redis_addr is not configured")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		if err := tenant.NewInvalidator(rdb, cfg.InvalidateChannel).Publish(cmd.Context(), ident); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", ident)
		return nil
	},
}

// schemaCmd prints the component DDL in declaration order.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the DDL of every component",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, c := range a.Components.All() {
			stmts := c.Migrations()
			if len(stmts) == 0 {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n", c.Name())
			for _, s := range stmts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
			}
		}
		return nil
	},
}

func init() {
	invalidateSiteCmd.Flags().BoolVar(&invalidateAll, "all", false, "empty every cache")
}

// sitesCmd lists the active sites of the control plane.
var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List active sites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		sites, err := tenant.AllActive(cmd.Context(), a.Global)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tDOMAIN\tDATABASE\tTEMPLATES")
		for _, s := range sites {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Slug, s.Domain, s.DBName, s.TemplateDir)
		}
		return w.Flush()
	},
}
