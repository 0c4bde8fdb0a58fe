package main

import (
	"github.com/spf13/cobra"

	"microvium/internal/buildpipeline"
	"microvium/internal/il"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [path]",
	Short: "Print the compiled IL for a microvium project's entry module",
	Long:  "Compile a microvium project to IL without evaluating it, and print the resulting functions, blocks, and operations in a disassembly-style listing.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  disasmExecution,
}

func disasmExecution(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	compiled, err := buildpipeline.Compile(cmd.Context(), buildpipeline.Options{
		ProjectDir: projectDir,
	})
	if compiled != nil && compiled.Diagnostics != nil {
		if printErr := printDiagnostics(cmd, cmd.OutOrStdout(), compiled.Diagnostics, compiled.FileSet); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return err
	}

	return il.Fprint(cmd.OutOrStdout(), compiled.Unit, compiled.Interner)
}
