package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"microvium/internal/buildcache"
	"microvium/internal/buildpipeline"
	"microvium/internal/hostvm"
	"microvium/internal/observ"
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Compile and evaluate a microvium project without snapshotting",
	Long:  "Compile a microvium project to IL and evaluate its entry module directly through the host VM, for quick iteration without producing a device snapshot.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExecution,
}

func init() {
	runCmd.Flags().Bool("no-cache", false, "skip the on-disk build cache")
}

func runExecution(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer stopTracing()

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	var cache *buildcache.Cache
	if !noCache {
		cache, err = buildcache.Open()
		if err != nil {
			return fmt.Errorf("failed to open build cache: %w", err)
		}
	}

	timer := observ.NewTimer()

	compilePhase := timer.Begin("compile")
	compiled, err := buildpipeline.Compile(cmd.Context(), buildpipeline.Options{
		ProjectDir: projectDir,
		Cache:      cache,
	})
	timer.End(compilePhase, projectDir)
	if compiled != nil && compiled.Diagnostics != nil {
		if printErr := printDiagnostics(cmd, cmd.OutOrStdout(), compiled.Diagnostics, compiled.FileSet); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return err
	}

	evalPhase := timer.Begin("evaluate")
	vm := hostvm.Create(compiled.Interner, nil)
	vm.SetOutput(cmd.OutOrStdout())
	evalErr := vm.EvaluateModule(compiled.Unit)
	timer.End(evalPhase, "")
	if evalErr != nil {
		return fmt.Errorf("run: %w", evalErr)
	}

	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if showTimings {
		printStageTimings(cmd.OutOrStdout(), compiled.Timings, false, false)
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return nil
}
