// Package directive locates and parses the //debugtry:instrument marker in
// function doc comments. The marker follows the usual Go directive shape:
// no space after the slashes, options as key=value fields after the verb.
//
//	//debugtry:instrument
//	//debugtry:instrument nested=true
package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/debugtry/debugtry/internal/dbgrules"
)

// Marker is the directive that switches instrumentation on for a function.
const Marker = "debugtry:instrument"

// Options is the parsed directive configuration. It is immutable once
// produced and threaded read-only through the rewrite.
type Options struct {
	// Nested extends the rewrite into closures defined inside the
	// instrumented function, at any depth.
	Nested bool
}

// ConfigError is a directive argument the parser refuses to accept. It
// carries the exact position of the offending field inside the comment.
type ConfigError struct {
	Rule dbgrules.Rule
	Pos  token.Position
	At   token.Pos
	Arg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s:%d:%d: [%s] %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Rule, e.Arg)
}

// Find scans a doc comment group for the instrument marker. The returned
// bool tells whether the marker is present at all; defaults fill options
// the directive does not state.
func Find(fset *token.FileSet, doc *ast.CommentGroup, defaults Options) (Options, bool, error) {
	if doc == nil {
		return Options{}, false, nil
	}

	for _, c := range doc.List {
		rest, ok := strings.CutPrefix(c.Text, "//"+Marker)
		if !ok {
			continue
		}
		if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
			// Another directive sharing the prefix, e.g. a future
			// debugtry:instrument-something.
			continue
		}

		opts, err := parseArgs(fset, c, len(c.Text)-len(rest), rest, defaults)
		if err != nil {
			return Options{}, true, err
		}
		return opts, true, nil
	}

	return Options{}, false, nil
}

// parseArgs interprets the option fields following the marker. base is the
// byte offset of the first field-bearing character within the comment text,
// used to attribute errors to their exact column.
func parseArgs(fset *token.FileSet, c *ast.Comment, base int, raw string, defaults Options) (Options, error) {
	opts := defaults
	seen := make(map[string]bool)

	offset := base
	rest := raw
	for rest != "" {
		trimmed := strings.TrimLeft(rest, " \t")
		offset += len(rest) - len(trimmed)
		if trimmed == "" {
			break
		}

		field := trimmed
		if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
			field = trimmed[:i]
		}
		fieldAt := c.Slash + token.Pos(offset)
		fieldPos := fset.Position(fieldAt)

		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" || value == "" {
			return Options{}, &ConfigError{
				Rule: dbgrules.MalformedOption(),
				Pos:  fieldPos,
				At:   fieldAt,
				Arg:  field,
			}
		}

		if seen[key] {
			return Options{}, &ConfigError{
				Rule: dbgrules.DuplicateOption(),
				Pos:  fieldPos,
				At:   fieldAt,
				Arg:  key,
			}
		}
		seen[key] = true

		switch key {
		case "nested":
			switch value {
			case "true":
				opts.Nested = true
			case "false":
				opts.Nested = false
			default:
				return Options{}, &ConfigError{
					Rule: dbgrules.OptionValueMustBeBool(),
					Pos:  fieldPos,
					At:   fieldAt,
					Arg:  field,
				}
			}
		default:
			return Options{}, &ConfigError{
				Rule: dbgrules.UnknownOption(),
				Pos:  fieldPos,
				At:   fieldAt,
				Arg:  key,
			}
		}

		rest = trimmed[len(field):]
		offset += len(field)
	}

	return opts, nil
}
