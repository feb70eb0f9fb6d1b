package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show showtracker version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "showtracker %s (commit %s, %s %s/%s)\n",
			buildVersion(), Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

// buildVersion prefers the ldflags version and falls back to the module version.
func buildVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
