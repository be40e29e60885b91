package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/debugtry/debugtry/internal/config"
)

var (
	flagColor  string
	flagConfig string
)

// colorize resolves the --color flag against the actual output stream.
func colorize(f *os.File) bool {
	switch flagColor {
	case "on":
		return true
	case "off":
		return false
	default:
		return term.IsTerminal(int(f.Fd()))
	}
}

// loadConfig reads the explicit --config file, or discovers one upwards
// from the working directory.
func loadConfig() (config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}
	return config.Discover(wd)
}

// collectFiles expands the positional arguments into the list of Go files
// to process. Directories are walked recursively, skipping hidden and
// underscore-prefixed entries plus vendor trees; files named on the
// command line are taken as-is, exclusion patterns apply only to walks.
func collectFiles(args []string, cfg config.Config) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		root := arg
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
					return fs.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") {
				return nil
			}
			if cfg.Excluded(path) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
