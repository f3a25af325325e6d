package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var assetDirsOut string

// exportAssetDirsCmd feeds the front-end build with the bundle source dirs.
var exportAssetDirsCmd = &cobra.Command{
	Use:   "export-asset-dirs",
	Short: "Write asset source directories as a JSON array",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		dirs, err := a.Assets.WriteSourceDirs(a.Path(assetDirsOut))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d director(ies) to %s\n", len(dirs), assetDirsOut)
		return nil
	},
}

// buildAssetsCmd builds every registered bundle into assets.output_dir.
var buildAssetsCmd = &cobra.Command{
	Use:   "build-assets",
	Short: "Build every declared asset bundle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Assets.BuildAll(cmd.Context(), a.Path(a.Config.Assets.OutputDir))
		if err != nil {
			return err
		}
		for _, p := range out {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	exportAssetDirsCmd.Flags().StringVarP(&assetDirsOut, "output", "o", "webpack_dirs.json", "output file")
}
