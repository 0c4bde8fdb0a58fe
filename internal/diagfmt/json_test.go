package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"microvium/internal/diag"
	"microvium/internal/diagfmt"
	"microvium/internal/source"
)

func TestBuildDiagnosticsOutputIncludesPositionsWhenRequested(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("lib.mvms", []byte("let x = ;\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.SynExpectExpression,
		Message:  "expected expression",
		Primary:  source.Span{File: fileID, Start: 8, End: 9},
	})

	out := diagfmt.BuildDiagnosticsOutput(bag, fs, diagfmt.JSONOpts{IncludePositions: true})
	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "SYN2005" {
		t.Fatalf("unexpected severity/code: %+v", d)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 9 {
		t.Fatalf("unexpected location: %+v", d.Location)
	}
}

func TestBuildDiagnosticsOutputOmitsPositionsByDefault(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("lib.mvms", []byte("x;\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{Severity: diag.SevWarning, Code: diag.ScopeUnresolvedReference, Message: "m", Primary: source.Span{File: fileID, Start: 0, End: 1}})

	out := diagfmt.BuildDiagnosticsOutput(bag, fs, diagfmt.JSONOpts{})
	if out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("expected zero-value line when IncludePositions is false, got %d", out.Diagnostics[0].Location.StartLine)
	}
}

func TestJSONEncodesValidJSON(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("lib.mvms", []byte("x;\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.ScopeUnresolvedReference,
		Message:  "reference to an unknown name",
		Primary:  source.Span{File: fileID, Start: 0, End: 1},
		Notes:    []diag.Note{{Span: source.Span{File: fileID, Start: 0, End: 1}, Msg: "did you mean 'y'?"}},
		Fixes:    []diag.Fix{{Title: "rename to 'y'", Edits: []diag.FixEdit{{Span: source.Span{File: fileID, Start: 0, End: 1}, NewText: "y"}}}},
	})

	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, bag, fs, diagfmt.JSONOpts{IncludeNotes: true, IncludeFixes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Diagnostics) != 1 || len(decoded.Diagnostics[0].Notes) != 1 || len(decoded.Diagnostics[0].Fixes) != 1 {
		t.Fatalf("fixes/notes did not round-trip: %+v", decoded)
	}
}
