package main

import (
	"os"

	"github.com/spf13/cobra"

	"neksis/compiler"
	"neksis/internal/diagnostics"
	"neksis/internal/driver"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.nk>",
		Short: "Print the disassembled bytecode for a Neksis source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disasmFile(args[0])
		},
	}
}

func disasmFile(path string) error {
	source, err := driver.LoadFile(path)
	if err != nil {
		diagnostics.PrintErrors(os.Stderr, []error{err})
		return err
	}

	pipeline, err := driver.Compile(source)
	if err != nil {
		diagnostics.PrintErrors(os.Stderr, driver.Diagnostics(err))
		return err
	}

	text, err := compilerDisassemble(pipeline)
	if err != nil {
		diagnostics.PrintErrors(os.Stderr, []error{err})
		return err
	}
	diagnostics.PrintDisassembly(os.Stdout, text)
	return nil
}

// compilerDisassemble renders a pipeline's compiled bytecode to text without
// writing it to disk.
func compilerDisassemble(pipeline driver.Pipeline) (string, error) {
	return compiler.DiassembleBytecode(pipeline.Bytecode, false, "")
}
