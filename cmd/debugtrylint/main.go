// Command debugtrylint runs the debugtry directive checks as a standalone
// go/analysis tool, with the usual single-checker flags and exit codes.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/debugtry/debugtry/internal/lint"
)

func main() {
	singlechecker.Main(lint.Analyzer)
}
