// Package driver wires the lexer, parser, semantic analyzer, and bytecode
// compiler into a single pipeline invoked by cmd/neksis. It aggregates each
// stage's diagnostic list into one error via go-multierror rather than
// hand-rolling a []error joiner, and wraps OS-level I/O failures with
// github.com/pkg/errors so a file-loading failure reads differently from a
// language diagnostic.
package driver

import (
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"neksis/analyzer"
	"neksis/ast"
	"neksis/compiler"
	"neksis/lexer"
	"neksis/parser"
)

// Pipeline holds the result of compiling one source file as far as it got:
// Program is populated once parsing succeeds even if analysis later fails,
// since a caller may still want to print the AST for debugging.
type Pipeline struct {
	Program  ast.Program
	Bytecode compiler.Bytecode
}

// LoadFile reads path, wrapping any OS failure (missing file, permission
// denied) with file-loading context distinct from a language diagnostic.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(data), nil
}

// Compile runs source through every pipeline stage up to bytecode
// generation. It returns as soon as a stage reports a non-empty diagnostic
// list, aggregated into a single error via go-multierror; downstream stages
// never run when an earlier stage's list is non-empty, per the pipeline's
// fail-fast-between-stages policy.
func Compile(source string) (Pipeline, error) {
	var result Pipeline

	lex := lexer.New(source)
	tokens, lexErrs := lex.Scan()
	if len(lexErrs) > 0 {
		return result, aggregate(lexErrs)
	}

	p := parser.Make(tokens)
	program, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		return result, aggregate(parseErrs)
	}
	result.Program = program

	sema := analyzer.New()
	if semaErrs := sema.Analyze(program); len(semaErrs) > 0 {
		return result, aggregate(semaErrs)
	}

	astCompiler := compiler.NewASTCompiler()
	bytecode, err := astCompiler.CompileProgram(program)
	if err != nil {
		return result, err
	}
	result.Bytecode = bytecode

	return result, nil
}

// aggregate folds a diagnostic list into a single error, preserving every
// message rather than reporting only the first.
func aggregate(errs []error) error {
	var merged *multierror.Error
	for _, e := range errs {
		merged = multierror.Append(merged, e)
	}
	return merged.ErrorOrNil()
}

// Diagnostics unpacks an error returned by Compile back into the individual
// messages that produced it, so a caller can print them one per line. A
// plain (non-aggregated) error, such as a compiler.SemanticError, comes back
// as a single-element slice.
func Diagnostics(err error) []error {
	if err == nil {
		return nil
	}
	if merged, ok := err.(*multierror.Error); ok {
		return merged.WrappedErrors()
	}
	return []error{err}
}
