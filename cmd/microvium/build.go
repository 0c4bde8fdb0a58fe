package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"microvium/internal/buildcache"
	"microvium/internal/buildpipeline"
	"microvium/internal/observ"
	"microvium/internal/project"
	"microvium/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build a microvium project",
	Long:  "Build a microvium project using microvium.toml as the entrypoint definition, producing a device-executable snapshot.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
	buildCmd.Flags().Bool("no-cache", false, "skip the on-disk build cache")
	buildCmd.Flags().Int("jobs", 0, "parallel scope-resolution jobs per import-graph layer (0 = GOMAXPROCS)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
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

	uiMode, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
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

	opts := buildpipeline.Options{
		ProjectDir: projectDir,
		Backend:    buildpipeline.BackendVM,
		Jobs:       jobs,
		Cache:      cache,
	}

	useTUI := uiMode == "on" || (uiMode == "auto" && isTerminal(os.Stdout))

	timer := observ.NewTimer()
	buildPhase := timer.Begin("build")

	var result *buildpipeline.Result
	if useTUI {
		result, err = runBuildWithUI(cmd, opts)
	} else {
		result, err = buildpipeline.Run(cmd.Context(), opts)
	}
	timer.End(buildPhase, projectDir)

	if result != nil && result.Diagnostics != nil {
		if printErr := printDiagnostics(cmd, cmd.OutOrStdout(), result.Diagnostics, result.FileSet); printErr != nil {
			return printErr
		}
	}

	showTimings, timingsErr := cmd.Root().PersistentFlags().GetBool("timings")
	if timingsErr != nil {
		return timingsErr
	}

	if err != nil {
		if result != nil {
			printStageTimings(cmd.OutOrStdout(), result.Timings, true, false)
		}
		if showTimings {
			fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
		}
		return err
	}

	printStageTimings(cmd.OutOrStdout(), result.Timings, true, false)
	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	rel := formatPathForOutput(result.Manifest.Root, result.OutputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "built %s (%d bytes)\n", rel, len(result.Snapshot.Bytes))
	return nil
}

// runBuildWithUI drives buildpipeline.Run on a goroutine, forwarding its
// progress events into a Bubble Tea program built from the entry module's
// own path — the only file this repo's manifest-driven pipeline names
// before a build actually starts.
func runBuildWithUI(cmd *cobra.Command, opts buildpipeline.Options) (*buildpipeline.Result, error) {
	events := make(chan buildpipeline.Event, 32)
	opts.Sink = buildpipeline.ChannelSink{Ch: events}

	entryFile := opts.ProjectDir
	if manifest, ok, err := project.Load(opts.ProjectDir); err == nil && ok {
		if abs, err := filepath.Abs(manifest.EntryPath()); err == nil {
			entryFile = abs
		}
	}

	title := fmt.Sprintf("microvium build %s", opts.ProjectDir)
	program := tea.NewProgram(ui.NewProgressModel(title, []string{entryFile}, events))

	var result *buildpipeline.Result
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = buildpipeline.Run(cmd.Context(), opts)
		close(events)
	}()

	_, progErr := program.Run()
	<-done
	if progErr != nil {
		return result, progErr
	}
	return result, runErr
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
