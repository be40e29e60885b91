package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/debugtry/debugtry/internal/directive"
	"github.com/debugtry/debugtry/internal/report"
	"github.com/debugtry/debugtry/internal/rewrite"
)

var sitesCmd = &cobra.Command{
	Use:   "sites [files or directories]",
	Short: "List propagation sites without modifying anything",
	Long: `sites prints every error propagation point the rewrite command would
instrument, one "file:line:col: function" entry per line, in source order.
No file is modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		files, err := collectFiles(args, cfg)
		if err != nil {
			return err
		}

		eng := &report.Engine{}
		rw := rewrite.New(directive.Options{Nested: cfg.Nested}, eng)

		out := cmd.OutOrStdout()
		for _, file := range files {
			src, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			res, err := rw.RewriteFile(file, src)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			for _, site := range res.Sites {
				fmt.Fprintln(out, site)
			}
		}

		if eng.HasReports() {
			eng.PrintSummary(os.Stderr, colorize(os.Stderr))
			return errors.New("some annotated functions cannot be instrumented")
		}
		return nil
	},
}
