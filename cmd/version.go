package cmd

import (
	"fmt"

	"github.com/sonarmark/sonarmark/version"
	"github.com/spf13/cobra"
)

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show commit and build date")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), "sonarmark", version.GetFullVersion())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "sonarmark", version.GetVersion())
		}
	},
}
