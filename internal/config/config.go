// Package config loads the optional .debugtry.yaml file that adjusts tool
// defaults for a source tree.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up next to processed sources.
const FileName = ".debugtry.yaml"

// Config carries tree-wide defaults. The zero value is the documented
// default behavior.
type Config struct {
	// Nested is the default for instrument directives that do not state
	// the nested option themselves.
	Nested bool `yaml:"nested"`

	// Exclude lists glob patterns matched against file base names;
	// matching files are skipped entirely.
	Exclude []string `yaml:"exclude"`
}

// Load reads a configuration file. Unknown keys are rejected to catch
// typos early.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return parse(path, raw)
}

// Discover walks up from dir looking for a configuration file, the same
// way the Go toolchain locates go.mod. Returns the zero config when no
// file exists anywhere up the tree.
func Discover(dir string) (Config, error) {
	for {
		path := filepath.Join(dir, FileName)
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			return parse(path, raw)
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Config{}, nil
		}
		dir = parent
	}
}

func parse(path string, raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file means default settings.
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, pattern := range cfg.Exclude {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			return Config{}, fmt.Errorf("parse %s: exclude pattern %q: %w", path, pattern, err)
		}
	}

	return cfg, nil
}

// Excluded tells whether the file name matches any exclude pattern.
// Patterns are applied to the base name only.
func (c Config) Excluded(name string) bool {
	base := filepath.Base(name)
	for _, pattern := range c.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
