package rewrite

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/debugtry/debugtry/internal/dbgrules"
	"github.com/debugtry/debugtry/internal/directive"
)

// Issue is a structural obstacle to instrumenting a function: a return
// the rewriter refuses to touch without changing semantics.
type Issue struct {
	Rule dbgrules.Rule
	Pos  token.Pos
}

// instrumentor holds the per-file rewrite state. One instance serves all
// instrumented functions of a single file.
type instrumentor struct {
	fset *token.FileSet
	info *types.Info

	// alias is the local name of the runtime import. Empty until a file
	// that does not import it yet needs its first instrumentation.
	alias string

	// dry suppresses all tree mutation; sites and issues are still
	// collected. Used by the analyzer.
	dry bool

	changed bool
	issues  []Issue
	sites   []Site

	// scopes is the stack of function scopes; the top one owns the
	// return statements currently being visited.
	scopes []*scopeInfo
	fnName string
}

// Inspect collects the propagation sites and structural issues that
// instrumenting fn would produce, leaving the tree untouched.
func Inspect(fset *token.FileSet, info *types.Info, fn *ast.FuncDecl, opts directive.Options) (sites []Site, issues []Issue) {
	ins := &instrumentor{fset: fset, info: info, dry: true}
	ins.instrumentFunc(fn, opts)
	return ins.sites, ins.issues
}

// instrumentFunc applies the rewrite to one annotated function. With
// opts.Nested unset, closures stay untouched down to the byte: traversal
// treats them as opaque leaves.
func (ins *instrumentor) instrumentFunc(fn *ast.FuncDecl, opts directive.Options) {
	if fn.Body == nil {
		return
	}

	ins.fnName = fn.Name.Name
	ins.scopes = []*scopeInfo{ins.newScope(fn.Type)}

	astutil.Apply(fn.Body, ins.pre(opts), ins.post)
}

func (ins *instrumentor) pre(opts directive.Options) astutil.ApplyFunc {
	return func(c *astutil.Cursor) bool {
		switch node := c.Node().(type) {
		case *ast.FuncLit:
			if !opts.Nested {
				return false
			}
			ins.scopes = append(ins.scopes, ins.newScope(node.Type))
			return true

		case *ast.ReturnStmt:
			ins.rewriteReturn(node)
			return true

		default:
			return true
		}
	}
}

func (ins *instrumentor) post(c *astutil.Cursor) bool {
	if _, ok := c.Node().(*ast.FuncLit); ok {
		ins.scopes = ins.scopes[:len(ins.scopes)-1]
	}
	return true
}

// rewriteReturn instruments the error result of a single return statement,
// when there is one to instrument.
func (ins *instrumentor) rewriteReturn(ret *ast.ReturnStmt) {
	sc := ins.scopes[len(ins.scopes)-1]
	if sc.errIdx < 0 {
		return
	}

	// Bare return propagates through named results. Expand it to the
	// explicit form so the error slot exists to be wrapped.
	results := ret.Results
	if len(results) == 0 {
		if !sc.expandable {
			// A blank-named error result always carries nil, so such a
			// return is no site. Any other blank result blocks a genuine
			// site from being expanded, which must never pass silently.
			for i, isErr := range sc.errResult {
				if isErr && i < len(sc.names) && sc.names[i] != "_" {
					ins.issues = append(ins.issues, Issue{Rule: dbgrules.BlankResultBlocksExpansion(), Pos: ret.Pos()})
					break
				}
			}
			return
		}
		results = make([]ast.Expr, 0, len(sc.names))
		for _, name := range sc.names {
			results = append(results, ast.NewIdent(name))
		}
	}

	// Multi-value tail call: return f() in a function with several
	// results leaves no expression slot for the error. Rewriting it
	// would mean restructuring the statement, so refuse loudly instead
	// of changing semantics on the quiet.
	if sc.total > 1 && len(results) == 1 {
		ins.issues = append(ins.issues, Issue{Rule: dbgrules.AmbiguousTailCall(), Pos: results[0].Pos()})
		return
	}

	var touched bool
	for i, res := range results {
		if i >= len(sc.errResult) || !sc.errResult[i] {
			continue
		}
		if i != sc.total-1 {
			ins.issues = append(ins.issues, Issue{Rule: dbgrules.ErrorMustBeLastResult(), Pos: res.Pos()})
			continue
		}
		if isNilIdent(res) || ins.isPropagateCall(res) {
			continue
		}

		pos := ins.sitePosition(res, ret)
		if !pos.IsValid() {
			ins.issues = append(ins.issues, Issue{Rule: dbgrules.MissingPosition(), Pos: ret.Pos()})
			continue
		}

		ins.sites = append(ins.sites, Site{Func: ins.fnName, Pos: pos})
		if ins.dry {
			continue
		}

		results[i] = ins.propagateExpr(pos, res)
		touched = true
	}

	if touched {
		ret.Results = results
		ins.changed = true
	}
}

// sitePosition picks the position embedded into the instrumentation: the
// error expression itself, falling back to its return statement for
// synthetic nodes (e.g. the idents of an expanded bare return).
func (ins *instrumentor) sitePosition(res ast.Expr, ret *ast.ReturnStmt) token.Position {
	if res.Pos().IsValid() {
		return ins.fset.Position(res.Pos())
	}
	if ret.Pos().IsValid() {
		return ins.fset.Position(ret.Pos())
	}
	return token.Position{}
}

// propagateExpr builds the replacement for an error expression e:
//
//	<alias>.At("<file>", <line>, <col>).Propagate(e)
//
// e stays inside the call untouched, so it is still evaluated exactly once
// and converted to the error interface at the same moment it used to be.
func (ins *instrumentor) propagateExpr(pos token.Position, e ast.Expr) ast.Expr {
	return &ast.CallExpr{
		Fun: &ast.SelectorExpr{
			X: &ast.CallExpr{
				Fun: &ast.SelectorExpr{
					X:   ast.NewIdent(ins.runtimeIdent()),
					Sel: ast.NewIdent("At"),
				},
				Args: []ast.Expr{
					&ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(pos.Filename)},
					&ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(pos.Line)},
					&ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(pos.Column)},
				},
			},
			Sel: ast.NewIdent("Propagate"),
		},
		Args: []ast.Expr{e},
	}
}

func (ins *instrumentor) runtimeIdent() string {
	if ins.alias == "" {
		ins.alias = runtimeName
	}
	return ins.alias
}

// isPropagateCall recognizes an already instrumented site, which makes a
// second run over rewritten source a no-op.
func (ins *instrumentor) isPropagateCall(e ast.Expr) bool {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Propagate" {
		return false
	}
	at, ok := sel.X.(*ast.CallExpr)
	if !ok {
		return false
	}
	atSel, ok := at.Fun.(*ast.SelectorExpr)
	if !ok || atSel.Sel.Name != "At" {
		return false
	}
	pkg, ok := atSel.X.(*ast.Ident)
	if !ok {
		return false
	}
	return ins.alias != "" && pkg.Name == ins.alias
}

func isNilIdent(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "nil"
}
