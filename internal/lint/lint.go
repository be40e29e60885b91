// Package lint ships the debugtry analyzer: a go/analysis checker that
// validates //debugtry:instrument directives without rewriting anything.
// It flags directive arguments the rewriter would reject, directives on
// functions that cannot propagate errors, and returns the rewriter would
// refuse to instrument.
package lint

import (
	"errors"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/debugtry/debugtry/internal/dbgrules"
	"github.com/debugtry/debugtry/internal/directive"
	"github.com/debugtry/debugtry/internal/rewrite"
)

const doc = `debugtrylint validates debugtry:instrument directives before the rewriter runs`

// Analyzer is the main entry point for the linter.
var Analyzer = &analysis.Analyzer{
	Name:     "debugtrylint",
	Doc:      doc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	pector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}

	pector.Preorder(nodeFilter, func(node ast.Node) {
		n := node.(*ast.FuncDecl) // No need to assert check since we only get func decls.

		checkDirective(n, pass)
	})

	return nil, nil
}

// checkDirective validates one function declaration:
//
//   - Directive arguments must parse; a broken argument is reported at its
//     exact column inside the comment.
//   - An instrument directive on a function without an error result is
//     dead weight and almost certainly a mistake.
//   - Returns the rewriter cannot instrument (multi-value tail calls, an
//     error result that is not last) are surfaced here, ahead of a rewrite
//     run refusing the whole file.
func checkDirective(fn *ast.FuncDecl, pass *analysis.Pass) {
	opts, found, err := directive.Find(pass.Fset, fn.Doc, directive.Options{})
	if err != nil {
		var cfgErr *directive.ConfigError
		if errors.As(err, &cfgErr) {
			pass.Reportf(cfgErr.At, "[%s] %s", cfgErr.Rule, cfgErr.Arg)
		}
		return
	}
	if !found || fn.Body == nil {
		return
	}

	if !hasErrorResult(pass, fn.Type) {
		pass.Reportf(fn.Pos(), "[%s] function %s", dbgrules.DirectiveNeedsErrorResult(), fn.Name.Name)
		return
	}

	_, issues := rewrite.Inspect(pass.Fset, pass.TypesInfo, fn, opts)
	for _, issue := range issues {
		pass.Reportf(issue.Pos, "[%s] in function %s", issue.Rule, fn.Name.Name)
	}
}

var errorType = types.Universe.Lookup("error").Type()

func hasErrorResult(pass *analysis.Pass, ft *ast.FuncType) bool {
	if ft.Results == nil {
		return false
	}
	for _, field := range ft.Results.List {
		t := pass.TypesInfo.TypeOf(field.Type)
		if t != nil && types.Identical(t, errorType) {
			return true
		}
	}
	return false
}
