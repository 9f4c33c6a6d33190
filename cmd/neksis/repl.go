package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"neksis/internal/diagnostics"
	"neksis/internal/driver"
	"neksis/lexer"
	"neksis/token"
	"neksis/vm"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Neksis session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

// runRepl reads whole programs (one or more `fn` declarations, since
// Neksis's grammar has no top-level statement form), compiles each
// complete submission independently, and runs it if it declares a `main`.
// There is no state shared between submissions: Neksis has no top-level
// mutable bindings for a REPL session to carry forward.
func runRepl() error {
	rl, err := readline.New(">>> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("Neksis REPL — enter one or more `fn` declarations; they are submitted once their braces balance.")

	var buffer strings.Builder
	machine := vm.New()
	machine.SetLogger(logger)

	for {
		prompt := ">>> "
		if buffer.Len() > 0 {
			prompt = "... "
		}
		rl.SetPrompt(prompt)

		line, readErr := rl.Readline()
		if readErr == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return nil
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		ready, err := inputReady(source)
		if err != nil {
			diagnostics.PrintErrors(os.Stderr, []error{err})
			buffer.Reset()
			continue
		}
		if !ready {
			continue
		}

		pipeline, err := driver.Compile(source)
		if err != nil {
			diagnostics.PrintErrors(os.Stderr, driver.Diagnostics(err))
			buffer.Reset()
			continue
		}

		if diassemble {
			text, dErr := compilerDisassemble(pipeline)
			if dErr == nil {
				diagnostics.PrintDisassembly(os.Stdout, text)
			}
		}

		hasMain := false
		for _, fn := range pipeline.Program.Functions {
			if fn.Name.Lexeme == "main" {
				hasMain = true
				break
			}
		}
		if !hasMain {
			fmt.Println("compiled (no 'main' function to run)")
			buffer.Reset()
			continue
		}

		exitCode, runErr := machine.Run(pipeline.Bytecode)
		if runErr != nil {
			diagnostics.PrintFault(os.Stderr, runErr)
		} else {
			fmt.Printf("(exit %d)\n", exitCode)
		}
		buffer.Reset()
	}
}

// inputReady lexes source and reports whether its braces are balanced,
// meaning the REPL has a complete submission to try parsing. A lex error is
// returned rather than silently treated as "not ready" so the user sees it.
func inputReady(source string) (bool, error) {
	lex := lexer.New(source)
	tokens, errs := lex.Scan()
	if len(errs) > 0 {
		return false, errs[0]
	}

	depth := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LCUR:
			depth++
		case token.RCUR:
			depth--
		}
	}
	return depth <= 0, nil
}
