package main

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("sentinel\n")
		cmd.Printf("  Version: %s\n", Version)
		cmd.Printf("  Commit:  %s\n", Commit)
		cmd.Printf("  Built:   %s\n", BuildDate)
		cmd.Printf("  Runtime: %s\n", runtime.Version())
	},
}
