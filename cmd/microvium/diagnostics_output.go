package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"microvium/internal/diag"
	"microvium/internal/diagfmt"
	"microvium/internal/source"
)

// printDiagnostics renders bag against fs using the --format/--color
// persistent flags, sorted into a stable, deterministic order first.
func printDiagnostics(cmd *cobra.Command, out io.Writer, bag *diag.Bag, fs *source.FileSet) error {
	if bag.Len() == 0 {
		return nil
	}
	bag.Sort()

	format, err := cmd.Root().PersistentFlags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	switch format {
	case "json":
		return diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "pretty", "":
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{
			Color:     wantColor(cmd),
			Context:   1,
			ShowNotes: true,
			ShowFixes: true,
		})
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}
