package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"neksis/compiler"
	"neksis/internal/diagnostics"
	"neksis/internal/driver"
)

func newBuildCmd() *cobra.Command {
	var dumpBytecode bool
	var dumpDisasm bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "build <file.nk>",
		Short: "Compile a Neksis source file and emit its bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildFile(args[0], outPath, dumpBytecode, dumpDisasm)
		},
	}

	cmd.Flags().BoolVar(&dumpBytecode, "dump-bytecode", true, "write the encoded bytecode to a .nic file")
	cmd.Flags().BoolVar(&dumpDisasm, "dump-disasm", true, "write disassembled bytecode to a .dnic file")
	cmd.Flags().StringVar(&outPath, "out", "", "base output path (defaults to the source file's path without its extension)")
	return cmd
}

func buildFile(path, outPath string, dumpBytecode, dumpDisasm bool) error {
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

	if outPath == "" {
		outPath = strings.TrimSuffix(path, filepath.Ext(path))
	}

	if dumpBytecode {
		if err := compiler.DumpBytecode(pipeline.Bytecode, outPath); err != nil {
			diagnostics.PrintErrors(os.Stderr, []error{err})
			return err
		}
	}
	if dumpDisasm {
		if _, err := compiler.DiassembleBytecode(pipeline.Bytecode, true, outPath); err != nil {
			diagnostics.PrintErrors(os.Stderr, []error{err})
			return err
		}
	}
	return nil
}
