package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/adeptbill/internal/session"
)

var sessionSite string

// decodeSessionCmd prints the decoded payload of one session.
var decodeSessionCmd = &cobra.Command{
	Use:   "decode-session KEY",
	Short: "Print the decoded data of a session key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		_, db, err := siteDB(ctx, a, sessionSite)
		if err != nil {
			return err
		}
		sess, err := session.NewStore(db, session.NewCodec(a.Config.Session.Secret)).Load(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

// clearSessionsCmd deletes expired rows.
var clearSessionsCmd = &cobra.Command{
	Use:   "clear-sessions",
	Short: "Delete expired sessions of a site",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		_, db, err := siteDB(ctx, a, sessionSite)
		if err != nil {
			return err
		}
		n, err := session.NewStore(db, session.NewCodec(a.Config.Session.Secret)).ClearExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	decodeSessionCmd.Flags().StringVar(&sessionSite, "site", "", "site slug")
	clearSessionsCmd.Flags().StringVar(&sessionSite, "site", "", "site slug")
}
