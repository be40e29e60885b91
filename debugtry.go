// Package debugtry is the runtime half of the debugtry toolchain.
//
// The debugtry rewriter replaces every error result of a return statement
// inside an instrumented function with
//
//	debugtry.At("file.go", line, col).Propagate(err)
//
// so that a propagated error announces itself on standard output before it
// continues up the call chain:
//
//	Error propagated (file.go:12:10): open non_existing_file.txt: no such file or directory
//
// This package is imported by rewritten programs and therefore carries no
// dependencies beyond the standard library. The success path is untouched:
// a nil error passes through without any output.
package debugtry

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Site is the source position of an instrumented propagation point,
// captured at rewrite time and embedded into the rewritten source.
type Site struct {
	File string
	Line int
	Col  int
}

// At constructs a Site. Calls to At are generated by the rewriter; the
// arguments are the position of the original error expression.
func At(file string, line, col int) Site {
	return Site{File: file, Line: line, Col: col}
}

// Propagate passes err through unchanged, printing a single diagnostic
// line when err is not nil. The returned value is the very same err, so
// propagation semantics of the surrounding return statement are intact.
//
// A failure to write the diagnostic is ignored: instrumentation must never
// turn into an application error of its own.
func (s Site) Propagate(err error) error {
	if err == nil {
		return nil
	}

	mu.Lock()
	_, _ = fmt.Fprintf(out, "Error propagated (%s:%d:%d): %s\n", s.File, s.Line, s.Col, err)
	mu.Unlock()

	return err
}

// String renders the site in the conventional file:line:col form.
func (s Site) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects diagnostic lines to w. It is meant for tests and for
// programs that want propagation logs somewhere other than standard output.
// Passing nil restores the default.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if w == nil {
		w = os.Stdout
	}
	out = w
}
