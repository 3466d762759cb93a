// Command stmc is the compiler driver: it compiles each positional input
// file to AT&T assembly for x86-64 System V Linux.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nwmarino/lovelace/internal/driver"
)

func main() {
	var (
		output     string
		configPath string
		emitIR     bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "stmc [files...]",
		Short:         "compile source files to x86-64 assembly",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := driver.LoadConfig(configPath)
			if err != nil {
				return err
			}

			inputs := args
			if len(inputs) == 0 {
				inputs = cfg.Inputs
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no input files")
			}
			if output == "" {
				output = cfg.Output
			}

			opts := driver.Options{
				EmitIR: emitIR,
				IRSink: os.Stdout,
			}
			if verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
				opts.Logger = logger
			}

			for _, input := range inputs {
				out := outputName(input, output)
				if err := driver.CompileFile(input, out, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output base name")
	flags.StringVar(&configPath, "config", "stmc.yaml", "project file path")
	flags.BoolVar(&emitIR, "emit-ir", false, "dump the intermediate representation")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable pass logging")
	flags.SortFlags = false
	pflag.CommandLine.AddFlagSet(flags)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stmc: %v\n", err)
		os.Exit(1)
	}
}

// outputName derives the assembly file name for one input.
func outputName(input, base string) string {
	if base != "" {
		return base + ".s"
	}
	stem := strings.TrimSuffix(input, ".stm")
	return stem + ".s"
}
