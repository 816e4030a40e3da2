package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/version"
)

var versionCmd = &cobra.Command{
	Use: "version",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flag("full").Value.String() == "true" {
			fmt.Println(version.VersionInfo())
		} else {
			fmt.Println(version.Version)
		}
	},
}

func init() {
	versionCmd.Flags().Bool("full", false, "show the full build information")
	rootCmd.AddCommand(versionCmd)
}
