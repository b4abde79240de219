package cmd

import (
	"os"

	"github.com/astrostat/fasthr/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the fasthr version",
	Run: func(cmd *cobra.Command, args []string) {
		os.Stdout.WriteString(version.Version.String() + "\n")
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
