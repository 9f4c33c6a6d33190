package main

import (
	"os"

	"github.com/spf13/cobra"

	"neksis/internal/diagnostics"
	"neksis/internal/driver"
	"neksis/vm"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.nk>",
		Short: "Compile and execute a Neksis source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func runFile(path string) error {
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

	if diassemble {
		text, dErr := compilerDisassemble(pipeline)
		if dErr == nil {
			diagnostics.PrintDisassembly(os.Stdout, text)
		}
	}

	machine := vm.New()
	machine.SetLogger(logger)
	machine.SetDebug(verbose)
	machine.InstructionBudget = budget

	exitCode, runErr := machine.Run(pipeline.Bytecode)
	if runErr != nil {
		diagnostics.PrintFault(os.Stderr, runErr)
		return runErr
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
