package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/debugtry/debugtry/internal/directive"
	"github.com/debugtry/debugtry/internal/report"
	"github.com/debugtry/debugtry/internal/rewrite"
)

var (
	flagWrite  bool
	flagNested bool
)

func init() {
	rewriteCmd.Flags().BoolVarP(&flagWrite, "write", "w", false, "rewrite files in place instead of printing to stdout")
	rewriteCmd.Flags().BoolVar(&flagNested, "nested", false, "instrument closures too, as if every directive said nested=true")
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite [files or directories]",
	Short: "Instrument annotated functions",
	Long: `rewrite parses the given Go files, instruments every function carrying a
//debugtry:instrument directive and prints the result to stdout, or writes
it back in place with -w.

A file that produces diagnostics is never written back, not even in part:
its problems are printed to stderr and the command exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		defaults := directive.Options{Nested: cfg.Nested}
		if cmd.Flags().Changed("nested") {
			defaults.Nested = flagNested
		}

		files, err := collectFiles(args, cfg)
		if err != nil {
			return err
		}

		eng := &report.Engine{}
		rw := rewrite.New(defaults, eng)

		// Files are independent, so they are processed concurrently;
		// results keep input order for the stdout mode.
		results := make([]*rewrite.Result, len(files))
		var eg errgroup.Group
		eg.SetLimit(runtime.GOMAXPROCS(0))
		for i, file := range files {
			i, file := i, file
			eg.Go(func() error {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}

				res, err := rw.RewriteFile(file, src)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				results[i] = res

				if flagWrite && res.OK && res.Changed {
					return writeBack(file, res.Output)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		if !flagWrite {
			out := cmd.OutOrStdout()
			for _, res := range results {
				if res == nil || !res.OK {
					continue
				}
				if _, err := out.Write(res.Output); err != nil {
					return err
				}
			}
		}

		if eng.HasReports() {
			eng.PrintSummary(os.Stderr, colorize(os.Stderr))

			refused := 0
			for _, res := range results {
				if res != nil && !res.OK {
					refused++
				}
			}
			return fmt.Errorf("instrumentation refused for %d file(s)", refused)
		}
		return nil
	},
}

// writeBack replaces a file's content keeping its permission bits.
func writeBack(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, info.Mode().Perm())
}
