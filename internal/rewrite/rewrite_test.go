package rewrite_test

import (
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debugtry/debugtry/internal/dbgrules"
	"github.com/debugtry/debugtry/internal/directive"
	"github.com/debugtry/debugtry/internal/report"
	"github.com/debugtry/debugtry/internal/rewrite"
)

func rewriteSrc(t *testing.T, src string, defaults directive.Options) (*rewrite.Result, *report.Engine) {
	t.Helper()

	eng := &report.Engine{}
	res, err := rewrite.New(defaults, eng).RewriteFile("case.go", []byte(src))
	require.NoError(t, err)
	return res, eng
}

// fnText renders a single top-level function from src through the printer,
// normalizing layout so expected and actual compare structurally.
func fnText(t *testing.T, src []byte, name string) string {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "out.go", src, parser.ParseComments)
	require.NoError(t, err)

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != name {
			continue
		}
		// The declaration is compared without its doc comment; the
		// directive line is input, not rewrite output.
		fd.Doc = nil
		var b strings.Builder
		require.NoError(t, printer.Fprint(&b, fset, fd))
		return b.String()
	}

	t.Fatalf("function %s not found in output", name)
	return ""
}

// litText renders the n-th function literal from src.
func litText(t *testing.T, src []byte, n int) string {
	t.Helper()

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "out.go", src, parser.ParseComments)
	require.NoError(t, err)

	var lits []*ast.FuncLit
	ast.Inspect(file, func(node ast.Node) bool {
		if lit, ok := node.(*ast.FuncLit); ok {
			lits = append(lits, lit)
		}
		return true
	})
	require.Greater(t, len(lits), n, "function literal #%d not found", n)

	var b strings.Builder
	require.NoError(t, printer.Fprint(&b, fset, lits[n]))
	return b.String()
}

func siteStrings(sites []rewrite.Site) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.String())
	}
	return out
}

const srcReadSize = `package demo

import "os"

//debugtry:instrument
func ReadSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
`

func TestRewriteBasic(t *testing.T) {
	t.Parallel()

	res, eng := rewriteSrc(t, srcReadSize, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	assert.Equal(t, []string{"case.go:9:13: ReadSize"}, siteStrings(res.Sites))

	expected := `func ReadSize(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, debugtry.At("case.go", 9, 13).Propagate(err)
	}
	return len(data), nil
}`
	assert.Equal(t, expected, fnText(t, res.Output, "ReadSize"))

	out := string(res.Output)
	assert.Contains(t, out, `"github.com/debugtry/debugtry"`, "runtime import must be added")
}

func TestRewriteSuccessPathUntouched(t *testing.T) {
	t.Parallel()

	src := `package demo

//debugtry:instrument
func ok() error {
	return nil
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.False(t, res.Changed, "a nil return is not a propagation site")
	assert.Empty(t, res.Sites)
	assert.NotContains(t, string(res.Output), "debugtry.At")
}

func TestRewriteSkipsUnannotated(t *testing.T) {
	t.Parallel()

	src := `package demo

import "errors"

func plain() error {
	return errors.New("x")
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.False(t, res.Changed)
	assert.NotContains(t, string(res.Output), "debugtry")
}

const srcNested = `package demo

import "os"

//debugtry:instrument nested=true
func fileSizes(path string) (int, error) {
	size := func(p string) (int, error) {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, err
		}
		return len(data), nil
	}

	n, err := size(path)
	if err != nil {
		return 0, err
	}
	return n, nil
}
`

func TestRewriteNested(t *testing.T) {
	t.Parallel()

	res, eng := rewriteSrc(t, srcNested, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	// Both the closure's site and the outer one, in source order.
	assert.Equal(t, []string{
		"case.go:10:14: fileSizes",
		"case.go:17:13: fileSizes",
	}, siteStrings(res.Sites))
}

func TestRewriteNonNestedLeavesClosureIntact(t *testing.T) {
	t.Parallel()

	src := strings.Replace(srcNested, " nested=true", "", 1)
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	// Only the outer scope's site.
	assert.Equal(t, []string{"case.go:17:13: fileSizes"}, siteStrings(res.Sites))

	// The closure body is exactly as authored.
	assert.Equal(t, litText(t, []byte(src), 0), litText(t, res.Output, 0))
}

func TestRewriteNestedDefaultFromConfig(t *testing.T) {
	t.Parallel()

	src := strings.Replace(srcNested, " nested=true", "", 1)
	res, _ := rewriteSrc(t, src, directive.Options{Nested: true})
	require.True(t, res.OK)
	assert.Len(t, res.Sites, 2, "config default must apply when the directive is silent")
}

func TestRewriteBareReturnNamedResults(t *testing.T) {
	t.Parallel()

	src := `package demo

//debugtry:instrument
func named(path string) (n int, err error) {
	n, err = lookup(path)
	return
}

func lookup(string) (int, error) { return 0, nil }
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	// The expanded results carry no position of their own; the return
	// statement's position is embedded instead.
	assert.Equal(t, []string{"case.go:6:2: named"}, siteStrings(res.Sites))

	expected := `func named(path string) (n int, err error) {
	n, err = lookup(path)
	return n, debugtry.At("case.go", 6, 2).Propagate(err)
}`
	assert.Equal(t, expected, fnText(t, res.Output, "named"))
}

func TestRewriteNestedDepthTwo(t *testing.T) {
	t.Parallel()

	src := `package demo

import "os"

//debugtry:instrument nested=true
func stats(path string) error {
	outer := func(p string) error {
		inner := func(q string) error {
			if _, err := os.Stat(q); err != nil {
				return err
			}
			return nil
		}
		if err := inner(p); err != nil {
			return err
		}
		return nil
	}
	if err := outer(path); err != nil {
		return err
	}
	return nil
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	// Every depth gets its site: the inner closure, the outer closure and
	// the function body, in source order.
	assert.Equal(t, []string{
		"case.go:10:12: stats",
		"case.go:15:11: stats",
		"case.go:20:10: stats",
	}, siteStrings(res.Sites))

	// Without nested both closures stay byte-identical.
	flat := strings.Replace(src, " nested=true", "", 1)
	res, eng = rewriteSrc(t, flat, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.Equal(t, []string{"case.go:20:10: stats"}, siteStrings(res.Sites))
	assert.Equal(t, litText(t, []byte(flat), 0), litText(t, res.Output, 0))
}

func TestRewriteBareReturnBlankResult(t *testing.T) {
	t.Parallel()

	src := `package demo

import "errors"

//debugtry:instrument
func partial() (_ int, err error) {
	err = errors.New("x")
	return
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	assert.False(t, res.OK, "a site that cannot be expanded must not pass silently")
	assert.False(t, res.Changed)

	reports := eng.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, dbgrules.DBG013BlankResultBlocksExpansion, reports[0].RuleCode)
	assert.Equal(t, report.PhaseRewrite, reports[0].Phase)
	assert.Equal(t, 8, reports[0].Pos.Line)
	assert.Equal(t, 2, reports[0].Pos.Column)
}

func TestRewriteBlankErrorResultStaysSilent(t *testing.T) {
	t.Parallel()

	// A blank-named error result is always nil on a bare return; there is
	// nothing to instrument and nothing to complain about.
	src := `package demo

//debugtry:instrument
func zeroed() (n int, _ error) {
	n = 1
	return
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.False(t, res.Changed)
	assert.Empty(t, res.Sites)
}

func TestRewriteRuntimeNameTaken(t *testing.T) {
	t.Parallel()

	src := `package demo

import (
	"errors"

	debugtry "example.com/telemetry/debugtry"
)

//debugtry:instrument
func collide() error {
	debugtry.Emit("before")
	return errors.New("x")
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"case.go:12:9: collide"}, siteStrings(res.Sites))

	expected := `func collide() error {
	debugtry.Emit("before")
	return debugtry2.At("case.go", 12, 9).Propagate(errors.New("x"))
}`
	assert.Equal(t, expected, fnText(t, res.Output, "collide"))
	assert.Contains(t, string(res.Output), `debugtry2 "github.com/debugtry/debugtry"`,
		"a taken identifier forces a fresh import alias")
}

func TestRewriteAmbiguousTailCall(t *testing.T) {
	t.Parallel()

	src := `package demo

//debugtry:instrument
func passthrough(path string) (int, error) {
	return parse(path)
}

func parse(string) (int, error) { return 0, nil }
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	assert.False(t, res.OK)
	assert.False(t, res.Changed)

	reports := eng.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, dbgrules.DBG010AmbiguousTailCall, reports[0].RuleCode)
	assert.Equal(t, report.PhaseRewrite, reports[0].Phase)
	assert.Equal(t, 5, reports[0].Pos.Line)
	assert.Equal(t, 9, reports[0].Pos.Column)
}

func TestRewriteErrorNotLast(t *testing.T) {
	t.Parallel()

	src := `package demo

import "errors"

//debugtry:instrument
func weird() (error, int) {
	return errors.New("x"), 0
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	assert.False(t, res.OK)
	assert.False(t, res.Changed)

	reports := eng.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, dbgrules.DBG011ErrorMustBeLastResult, reports[0].RuleCode)
	assert.Equal(t, 7, reports[0].Pos.Line)
	assert.Equal(t, 9, reports[0].Pos.Column)
}

func TestRewriteMalformedDirective(t *testing.T) {
	t.Parallel()

	src := `package demo

import "errors"

//debugtry:instrument nested=maybe
func broken() error {
	return errors.New("x")
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	assert.False(t, res.OK)
	assert.False(t, res.Changed, "a function with a broken directive is not half-instrumented")

	reports := eng.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, dbgrules.DBG002OptionValueMustBeBool, reports[0].RuleCode)
	assert.Equal(t, report.PhaseDirective, reports[0].Phase)
	assert.Equal(t, 5, reports[0].Pos.Line)
	assert.Equal(t, 23, reports[0].Pos.Column)
}

func TestRewriteRespectsExistingAlias(t *testing.T) {
	t.Parallel()

	src := `package demo

import (
	"errors"

	dbg "github.com/debugtry/debugtry"
)

//debugtry:instrument
func already() error {
	return dbg.At("case.go", 1, 1).Propagate(errors.New("x"))
}

//debugtry:instrument
func fresh() error {
	return errors.New("y")
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed)

	// Only fresh() gains a site; already() is recognized as instrumented.
	assert.Equal(t, []string{"case.go:16:9: fresh"}, siteStrings(res.Sites))

	expected := `func fresh() error {
	return dbg.At("case.go", 16, 9).Propagate(errors.New("y"))
}`
	assert.Equal(t, expected, fnText(t, res.Output, "fresh"))
}

func TestRewriteIdempotent(t *testing.T) {
	t.Parallel()

	first, eng := rewriteSrc(t, srcReadSize, directive.Options{})
	require.True(t, first.OK)
	require.False(t, eng.HasReports())

	second, eng2 := rewriteSrc(t, string(first.Output), directive.Options{})
	require.True(t, second.OK)
	require.False(t, eng2.HasReports())
	assert.False(t, second.Changed, "second pass over rewritten source is a no-op")
	assert.Empty(t, second.Sites)
	assert.Equal(t, string(first.Output), string(second.Output))
}

func TestRewriteParseError(t *testing.T) {
	t.Parallel()

	eng := &report.Engine{}
	_, err := rewrite.New(directive.Options{}, eng).RewriteFile("bad.go", []byte("package\n"))
	assert.Error(t, err)
}

func TestRewriteErrorAlias(t *testing.T) {
	t.Parallel()

	src := `package demo

import "errors"

type failure = error

//debugtry:instrument
func aliased() failure {
	return errors.New("x")
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.True(t, res.Changed, "an alias of error is still an error result")
	assert.Equal(t, []string{"case.go:9:9: aliased"}, siteStrings(res.Sites))
}

func TestRewriteConcreteErrorTypeUntouched(t *testing.T) {
	t.Parallel()

	src := `package demo

import "os"

//debugtry:instrument
func typed(path string) *os.PathError {
	return &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
}
`
	res, eng := rewriteSrc(t, src, directive.Options{})
	require.True(t, res.OK)
	require.False(t, eng.HasReports())
	assert.False(t, res.Changed, "a concrete result type is not the error interface")
}
