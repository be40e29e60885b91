package rewrite

import (
	"go/ast"
	"go/types"
)

// scopeInfo describes the result list of the function or closure whose
// body is currently being traversed. A propagation site only exists where
// the declared result type is the error interface itself.
type scopeInfo struct {
	// names holds the result names when every result is named, nil
	// otherwise.
	names []string

	// expandable tells whether a bare return may be expanded into the
	// explicit result list (all results named, none of them blank).
	expandable bool

	// errResult flags, per result index, whether the declared type is
	// the error interface.
	errResult []bool

	// errIdx is the index of the first error result, -1 when the scope
	// cannot propagate errors through returns at all.
	errIdx int

	total int
}

func (ins *instrumentor) newScope(ft *ast.FuncType) *scopeInfo {
	sc := &scopeInfo{errIdx: -1}
	if ft.Results == nil {
		return sc
	}

	for _, field := range ft.Results.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		isErr := ins.typeIsError(field.Type)
		for k := 0; k < n; k++ {
			if len(field.Names) > 0 {
				sc.names = append(sc.names, field.Names[k].Name)
			}
			sc.errResult = append(sc.errResult, isErr)
			if isErr && sc.errIdx < 0 {
				sc.errIdx = sc.total
			}
			sc.total++
		}
	}

	sc.expandable = len(sc.names) == sc.total
	for _, name := range sc.names {
		if name == "_" {
			// A blank result cannot appear in an explicit return.
			sc.expandable = false
		}
	}
	if len(sc.names) != sc.total {
		sc.names = nil
	}

	return sc
}

var errorType = types.Universe.Lookup("error").Type()

// typeIsError reports whether the declared type expression denotes the
// error interface. Type information is preferred (it sees aliases);
// lacking it, the literal spelling "error" is trusted. Concrete error
// implementations deliberately do not count: swapping such a result for
// the interface would change the function's signature semantics.
func (ins *instrumentor) typeIsError(expr ast.Expr) bool {
	if tv, ok := ins.info.Types[expr]; ok && tv.Type != nil {
		return types.Identical(tv.Type, errorType)
	}

	id, ok := expr.(*ast.Ident)
	return ok && id.Name == "error"
}
