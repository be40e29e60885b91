package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/debugtry/debugtry/internal/version"
)

var versionFull bool

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "include git commit and build date")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show debugtry build information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "debugtry %s\n", version.Version)
		if versionFull {
			fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(version.GitCommit))
			fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(version.BuildDate))
		}
	},
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
