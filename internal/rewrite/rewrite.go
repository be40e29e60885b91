// Package rewrite implements the debugtry source transformation: a pure,
// one-shot pass over a parsed file that replaces every error result of a
// return statement inside an instrumented function with a call through the
// runtime package, so a propagated error prints its origin before moving on.
//
// The transformation never changes the control-flow contract of a return:
// the error value passes through [debugtry.Site.Propagate] untouched, and
// the success path is left exactly as authored.
package rewrite

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/debugtry/debugtry/internal/directive"
	"github.com/debugtry/debugtry/internal/report"
)

// RuntimePath is the import path of the runtime package whose calls the
// rewriter splices into instrumented functions.
const RuntimePath = "github.com/debugtry/debugtry"

// runtimeName is the package identifier RuntimePath resolves to when
// imported without an alias.
const runtimeName = "debugtry"

// Site is a propagation point the rewriter instrumented (or would
// instrument, in listing mode).
type Site struct {
	// Func is the name of the enclosing top-level function.
	Func string

	// Pos is the source position embedded into the instrumentation.
	Pos token.Position
}

func (s Site) String() string {
	return fmt.Sprintf("%s: %s", s.Pos, s.Func)
}

// Result is the outcome of rewriting a single file.
type Result struct {
	// Output is the full rewritten file, gofmt-formatted. When nothing
	// changed it is the formatted original.
	Output []byte

	// Changed tells whether any site was instrumented.
	Changed bool

	// Sites lists the instrumented propagation points in source order.
	Sites []Site

	// OK is false when the file produced diagnostics; a file with
	// diagnostics is never written back.
	OK bool
}

// Rewriter transforms files one at a time. Files are independent, so a
// single Rewriter may be used from multiple goroutines; diagnostics land
// in the shared report engine.
type Rewriter struct {
	defaults directive.Options
	eng      *report.Engine
}

// New constructs a Rewriter. defaults fill directive options that
// annotated functions do not state themselves.
func New(defaults directive.Options, eng *report.Engine) *Rewriter {
	return &Rewriter{defaults: defaults, eng: eng}
}

// RewriteFile parses src, instruments every function carrying the
// //debugtry:instrument directive and returns the rewritten source.
// A parse failure is returned as an error; everything the rewriter itself
// refuses to do is reported with a position and reflected in Result.OK.
func (r *Rewriter) RewriteFile(filename string, src []byte) (*Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	// Best-effort type information: single-file checking cannot resolve
	// everything, so check errors are ignored and the instrumentor falls
	// back to the declared result syntax where the info has gaps.
	info := &types.Info{
		Types: make(map[ast.Expr]types.TypeAndValue),
		Defs:  make(map[*ast.Ident]types.Object),
		Uses:  make(map[*ast.Ident]types.Object),
	}
	conf := types.Config{Importer: importer.Default(), Error: func(error) {}}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, info)

	alias := runtimeAlias(file)
	imported := alias != ""
	if !imported {
		// The import is not there yet; pick a name no identifier in the
		// file already uses, so inserting it cannot shadow or collide.
		alias = freshName(file, runtimeName)
	}
	ins := &instrumentor{
		fset:  fset,
		info:  info,
		alias: alias,
	}

	dirRep := r.eng.Phase(report.PhaseDirective)
	broken := 0

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}

		opts, found, err := directive.Find(fset, fn.Doc, r.defaults)
		if err != nil {
			var cfgErr *directive.ConfigError
			if errors.As(err, &cfgErr) {
				dirRep.Report(cfgErr.Rule, "", cfgErr.Pos)
				broken++
				continue
			}
			return nil, err
		}
		if !found {
			continue
		}

		ins.instrumentFunc(fn, opts)
	}

	rwRep := r.eng.Phase(report.PhaseRewrite)
	for _, issue := range ins.issues {
		rwRep.Report(issue.Rule, "", fset.Position(issue.Pos))
	}

	if ins.changed && !imported {
		if alias == runtimeName {
			astutil.AddImport(fset, file, RuntimePath)
		} else {
			astutil.AddNamedImport(fset, file, alias, RuntimePath)
		}
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, err
	}

	return &Result{
		Output:  buf.Bytes(),
		Changed: ins.changed,
		Sites:   ins.sites,
		OK:      broken == 0 && len(ins.issues) == 0,
	}, nil
}

// freshName returns base when no identifier in the file spells it, and the
// first free base2, base3, ... otherwise.
func freshName(file *ast.File, base string) string {
	used := make(map[string]bool)
	ast.Inspect(file, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			used[id.Name] = true
		}
		return true
	})

	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	return name
}

// runtimeAlias returns the local identifier RuntimePath is already
// imported under, or "" when the file does not import it.
func runtimeAlias(file *ast.File) string {
	for _, imp := range file.Imports {
		if strings.Trim(imp.Path.Value, `"`) != RuntimePath {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return runtimeName
	}
	return ""
}
