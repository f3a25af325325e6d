package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanizio/adeptbill/internal/fixtures"
)

var (
	fixtureSite   string
	emailTemplate string
	keepEmails    bool
	hashPasswords bool
)

// loadFixturesCmd loads one or more fixture files into a tenant database.
var loadFixturesCmd = &cobra.Command{
	Use:   "loadfixtures FILE...",
	Short: "Load YAML fixtures into a site database",
	Long: `Load YAML fixtures into the database of one site.

Every e-mail address found in the fixtures is replaced with an anonymized
address built from --email-template (default dev+%s@example.com), so a
production dump can be loaded on a developer machine safely.  Pass
--keep-emails to load addresses untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		_, db, err := siteDB(ctx, a, fixtureSite)
		if err != nil {
			return err
		}

		opts := fixtures.Options{EmailTemplate: emailTemplate, HashPasswords: hashPasswords}
		if keepEmails {
			opts.EmailTemplate = ""
		}

		total := 0
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			tables, err := fixtures.Parse(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			n, err := fixtures.Load(ctx, db, tables, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			total += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Installed %d object(s) from %d fixture(s)\n", total, len(args))
		return nil
	},
}

func init() {
	f := loadFixturesCmd.Flags()
	f.StringVar(&fixtureSite, "site", "", "site slug")
	f.StringVar(&emailTemplate, "email-template", fixtures.DefaultEmailTemplate, "template for anonymized e-mail addresses")
	f.BoolVar(&keepEmails, "keep-emails", false, "load e-mail addresses unchanged")
	f.BoolVar(&hashPasswords, "hash-passwords", true, "bcrypt plain-text values of password columns")
}
