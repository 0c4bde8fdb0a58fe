package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"microvium/internal/diag"
	"microvium/internal/source"
)

// Pretty writes bag's diagnostics in the classic compiler style:
//
//	<path>:<line>:<col>: ERROR CODE: message
//	  NN | source line
//	     |      ^~~~
//
// followed by any requested notes and fixes. Call bag.Sort() first for a
// deterministic, file-then-position ordering.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	items := bag.Items()
	for i, d := range items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printDiagnostic(w, d, fs, opts)
	}
}

func printDiagnostic(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	start, _ := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s: %s %s: %s\n", location(fs, d.Primary, start, opts), severityLabel(d.Severity, opts.Color), d.Code.ID(), d.Message)
	printSourceContext(w, fs, d.Primary, opts)

	if opts.ShowNotes {
		for _, note := range d.Notes {
			printNote(w, note, fs, opts)
		}
	}
	if opts.ShowFixes {
		for _, fix := range d.Fixes {
			fmt.Fprintf(w, "  help: %s\n", fix.Title)
		}
	}
}

func printNote(w io.Writer, note diag.Note, fs *source.FileSet, opts PrettyOpts) {
	start, _ := fs.Resolve(note.Span)
	fmt.Fprintf(w, "  note: %s: %s\n", location(fs, note.Span, start, opts), note.Msg)
	printSourceContext(w, fs, note.Span, opts)
}

func location(fs *source.FileSet, span source.Span, start source.LineCol, opts PrettyOpts) string {
	file := fs.Get(span.File)
	return fmt.Sprintf("%s:%d:%d", file.FormatPath(opts.PathMode.formatMode(), fs.BaseDir()), start.Line, start.Col)
}

// printSourceContext prints the Context lines of source surrounding span,
// underlining span's own line with carets sized by display width rather
// than byte count, so tabs and wide runes line up.
func printSourceContext(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts) {
	file := fs.Get(span.File)
	start, end := fs.Resolve(span)
	gutter := gutterWidth(start.Line + uint32(opts.Context))

	for ln := firstContextLine(start.Line, opts.Context); ln < start.Line; ln++ {
		printLine(w, file, ln, gutter)
	}
	printCaretLine(w, file, start, end, gutter, opts.Color)
	for ln := start.Line + 1; ln <= start.Line+uint32(opts.Context); ln++ {
		if file.GetLine(ln) == "" {
			break
		}
		printLine(w, file, ln, gutter)
	}
}

func firstContextLine(line uint32, context int) uint32 {
	c := uint32(context)
	if line <= c {
		return 1
	}
	return line - c
}

func printLine(w io.Writer, file *source.File, line uint32, gutter int) {
	fmt.Fprintf(w, "  %*d | %s\n", gutter, line, file.GetLine(line))
}

func printCaretLine(w io.Writer, file *source.File, start, end source.LineCol, gutter int, useColor bool) {
	line := file.GetLine(start.Line)
	printLine(w, file, start.Line, gutter)

	prefixWidth := runewidth.StringWidth(runePrefix(line, int(start.Col)-1))
	caretLen := 1
	if end.Line == start.Line && end.Col > start.Col {
		if w := runewidth.StringWidth(runePrefix(line, int(end.Col)-1)) - prefixWidth; w > 0 {
			caretLen = w
		}
	}

	carets := "^" + strings.Repeat("~", caretLen-1)
	if useColor {
		carets = color.New(color.FgRed, color.Bold).Sprint(carets)
	}
	fmt.Fprintf(w, "  %*s | %s%s\n", gutter, "", strings.Repeat(" ", prefixWidth), carets)
}

func runePrefix(s string, runes int) string {
	if runes <= 0 {
		return ""
	}
	r := []rune(s)
	if runes > len(r) {
		runes = len(r)
	}
	return string(r[:runes])
}

func gutterWidth(maxLine uint32) int {
	return len(fmt.Sprintf("%d", maxLine))
}

func severityLabel(sev diag.Severity, useColor bool) string {
	label := sev.String()
	if !useColor {
		return label
	}
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case diag.SevWarning:
		return color.New(color.FgYellow, color.Bold).Sprint(label)
	default:
		return color.New(color.FgCyan).Sprint(label)
	}
}
