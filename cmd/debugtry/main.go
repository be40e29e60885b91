// Command debugtry rewrites Go sources so that every error propagated out
// of an annotated function prints its origin right before the return.
// Functions opt in with a //debugtry:instrument directive above their
// declaration; the nested=true option extends the rewrite into closures.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/debugtry/debugtry/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "debugtry",
	Short: "Trace error propagation through annotated Go functions",
	Long: `debugtry instruments functions carrying a //debugtry:instrument directive
so that every error they propagate prints

    Error propagated (file:line:col): <error text>

to stdout right before returning, and then propagates unchanged.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "colorize diagnostics (auto|on|off)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a .debugtry.yaml (default: discovered upwards from the working directory)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
