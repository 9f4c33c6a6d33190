// Command neksis is the CLI driver for the Neksis language toolchain: it
// lexes, parses, semantically analyzes, compiles, and executes Neksis
// source files, or drives an interactive REPL over the same pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	logger     *zap.SugaredLogger
	verbose    bool
	budget     int
	diassemble bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "neksis",
		Short:         "Neksis language toolchain: run, build, and explore .nk source files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose operational logging")
	root.PersistentFlags().IntVar(&budget, "budget", 0, "instruction budget for a run (0 means unlimited)")
	root.PersistentFlags().BoolVar(&diassemble, "disassemble", false, "also print disassembly before running (run, repl)")

	root.AddCommand(newRunCmd(), newBuildCmd(), newReplCmd(), newDisasmCmd())
	return root
}

// initConfig loads an optional neksis.yaml project file from the current
// directory via viper for default flag values (budget and disassemble; no
// other keys are read), then builds the shared zap logger according to -v.
func initConfig() error {
	viper.SetConfigName("neksis")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("NEKSIS")
	_ = viper.ReadInConfig() // absence of a config file is not an error

	if !budgetFlagSet() && viper.IsSet("budget") {
		budget = viper.GetInt("budget")
	}
	if viper.IsSet("disassemble") {
		diassemble = diassemble || viper.GetBool("disassemble")
	}

	var zapLogger *zap.Logger
	var err error
	if verbose {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = zapLogger.Sugar()
	return nil
}

// budgetFlagSet reports whether --budget holds a nonzero value, so a config
// file's value only applies as a fallback default. An explicit --budget 0 is
// indistinguishable from leaving the flag unset and does not override the
// config file.
func budgetFlagSet() bool {
	return budget != 0
}
