// Package report collects position-bearing diagnostics produced while
// instrumenting source files. Every record is fatal for the run: debugtry
// never rewrites a file it has complaints about, so partial instrumentation
// cannot silently diverge from the authored code.
package report

import (
	"fmt"
	"go/token"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/debugtry/debugtry/internal/dbgrules"
)

// Engine collects diagnostics from concurrently processed files.
type Engine struct {
	mu      sync.Mutex
	reports []Report
}

// Report represents a single diagnostic entry.
type Report struct {
	Phase    Phase
	RuleCode dbgrules.Rule
	Pos      token.Position
	Message  string
}

// Phase marks the processing stage where a report was generated.
type Phase int

const (
	phaseInvalid Phase = iota
	PhaseDirective     // directive discovery and option parsing
	PhaseRewrite       // tree traversal and site replacement
)

func (p Phase) String() string {
	switch p {
	case PhaseDirective:
		return "directive"
	case PhaseRewrite:
		return "rewrite"
	default:
		return fmt.Sprintf("unknown-phase(%d)", p)
	}
}

// EnginePhase binds an Engine to a fixed phase so callers do not repeat it
// on every record.
type EnginePhase struct {
	parent *Engine
	phase  Phase
}

// Phase returns a phase-bound view of the engine.
func (e *Engine) Phase(p Phase) *EnginePhase {
	return &EnginePhase{parent: e, phase: p}
}

// Add appends a record.
func (e *Engine) Add(rep Report) {
	e.mu.Lock()
	e.reports = append(e.reports, rep)
	e.mu.Unlock()
}

// Report records a rule violation under the bound phase. An empty message
// falls back to the rule description.
func (ep *EnginePhase) Report(rule dbgrules.Rule, message string, pos token.Position) {
	if message == "" {
		message = rule.Description()
	}
	ep.parent.Add(Report{
		Phase:    ep.phase,
		RuleCode: rule,
		Pos:      pos,
		Message:  message,
	})
}

// Reports returns a snapshot of all collected records.
func (e *Engine) Reports() []Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Report, len(e.reports))
	copy(out, e.reports)
	return out
}

// HasReports tells whether anything was collected.
func (e *Engine) HasReports() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.reports) > 0
}

// PrintSummary writes all collected reports in a compact, human-readable
// form. With colorize set, rule codes are printed in red.
func (e *Engine) PrintSummary(w io.Writer, colorize bool) {
	code := func(r dbgrules.Rule) string { return r.String() }
	if colorize {
		red := color.New(color.FgRed)
		code = func(r dbgrules.Rule) string { return red.Sprint(r.String()) }
	}

	for _, rep := range e.Reports() {
		fmt.Fprintf(w, "%s:%d:%d: [%s] %s: %s\n",
			rep.Pos.Filename,
			rep.Pos.Line,
			rep.Pos.Column,
			rep.Phase,
			code(rep.RuleCode),
			rep.Message,
		)
	}
}
