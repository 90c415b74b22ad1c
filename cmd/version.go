package cmd

import (
	"fmt"

	"github.com/birmacher/tutor-relay/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the version of the tutor relay`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Tutor Relay v%s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
