package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of confluence2md",
	Long:  `Display the current version of the app.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("confluence2md v0.2.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
