package diagfmt_test

import (
	"strings"
	"testing"

	"microvium/internal/diag"
	"microvium/internal/diagfmt"
	"microvium/internal/source"
)

func newFixture(t *testing.T, content string) (*source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.mvms", []byte(content))
	return fs, id
}

func TestPrettyPrintsLocationSeverityAndCaret(t *testing.T) {
	fs, fileID := newFixture(t, "let x = ;\n")

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.SynExpectExpression,
		Message:  "expected expression",
		Primary:  source.Span{File: fileID, Start: 8, End: 9},
	})

	var buf strings.Builder
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{Context: 1})
	out := buf.String()

	if !strings.Contains(out, "main.mvms:1:9: ERROR SYN2005: expected expression") {
		t.Fatalf("missing location/severity/message line, got:\n%s", out)
	}
	if !strings.Contains(out, "let x = ;") {
		t.Fatalf("missing source line, got:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret, got:\n%s", out)
	}
}

func TestPrettyShowsNotesAndFixesWhenRequested(t *testing.T) {
	fs, fileID := newFixture(t, "const x = 1;\nx = 2;\n")

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.CompAssignToConst,
		Message:  "cannot assign to const binding",
		Primary:  source.Span{File: fileID, Start: 13, End: 14},
		Notes: []diag.Note{
			{Span: source.Span{File: fileID, Start: 6, End: 7}, Msg: "binding declared here as const"},
		},
		Fixes: []diag.Fix{
			{Title: "change 'const' to 'let'"},
		},
	})

	var buf strings.Builder
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{Context: 0, ShowNotes: true, ShowFixes: true})
	out := buf.String()

	if !strings.Contains(out, "note:") || !strings.Contains(out, "binding declared here as const") {
		t.Fatalf("missing note, got:\n%s", out)
	}
	if !strings.Contains(out, "help: change 'const' to 'let'") {
		t.Fatalf("missing fix hint, got:\n%s", out)
	}
}

func TestPrettyColorWrapsSeverityInEscapeCodes(t *testing.T) {
	fs, fileID := newFixture(t, "x;\n")

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevWarning,
		Code:     diag.ScopeUnresolvedReference,
		Message:  "reference to an unknown name",
		Primary:  source.Span{File: fileID, Start: 0, End: 1},
	})

	var plain, colored strings.Builder
	diagfmt.Pretty(&plain, bag, fs, diagfmt.PrettyOpts{Color: false})
	diagfmt.Pretty(&colored, bag, fs, diagfmt.PrettyOpts{Color: true})

	if plain.String() == colored.String() {
		t.Fatalf("expected colored output to differ from plain output")
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("expected colored output to contain an ANSI escape sequence, got:\n%s", colored.String())
	}
}

func TestPrettyMultipleDiagnosticsAreBlankLineSeparated(t *testing.T) {
	fs, fileID := newFixture(t, "a;\nb;\n")

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.ScopeUnresolvedReference, Message: "unknown a", Primary: source.Span{File: fileID, Start: 0, End: 1}})
	bag.Add(diag.Diagnostic{Severity: diag.SevError, Code: diag.ScopeUnresolvedReference, Message: "unknown b", Primary: source.Span{File: fileID, Start: 3, End: 4}})

	var buf strings.Builder
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{})

	if strings.Count(buf.String(), "unknown ") != 2 {
		t.Fatalf("expected both diagnostics rendered, got:\n%s", buf.String())
	}
}
