package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped by the release build.
var Version = "0.4.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applypilot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("applypilot", Version)
	},
}
