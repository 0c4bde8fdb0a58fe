// Package main implements the microvium CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"microvium/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "microvium",
	Short: "Microvium script compiler and host VM toolchain",
	Long:  `Microvium compiles a small scripting language to a device-sized bytecode snapshot and runs it on a tree-free interpreter.`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(disasmCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize diagnostics (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show stage timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("format", "pretty", "diagnostic output format (pretty|json)")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this path")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to this path")
	rootCmd.PersistentFlags().String("trace", "", "write a runtime trace to this path (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace verbosity (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring tracer capacity")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "periodic trace liveness signal interval")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal, the basis for
// --color=auto's decision.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// wantColor resolves the --color flag against whether stdout is a
// terminal.
func wantColor(cmd *cobra.Command) bool {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
