// Package diagnostics prints pipeline errors the way an operator reads
// them at a terminal: syntax and semantic errors in red with their source
// position, disassembly in yellow, continuing the teacher's own
// parser/printer.go colorYellow convention but extended to the whole driver.
package diagnostics

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	faultColor = color.New(color.FgRed)
	asmColor   = color.New(color.FgYellow)
)

// PrintErrors writes one line per error to w, in red. It is used for the
// lexer/parser/semantic diagnostic lists. Each error's Error() carries
// whatever position it has: parser and analyzer errors render
// "line:%d, column:%d", most lexer errors name only the line.
func PrintErrors(w io.Writer, errs []error) {
	for _, err := range errs {
		errorColor.Fprintln(w, err.Error())
	}
}

// PrintFault writes a single VM RuntimeError to w in red.
func PrintFault(w io.Writer, err error) {
	faultColor.Fprintln(w, err.Error())
}

// PrintDisassembly writes disassembled bytecode to w in yellow.
func PrintDisassembly(w io.Writer, text string) {
	asmColor.Fprint(w, text)
}

// Fprintf writes a plain, uncolored driver message (file paths, counts) to w.
func Fprintf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
