package testkit_test

import (
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/source"
	"microvium/internal/testkit"
)

func parseFixture(t *testing.T, src string) (*ast.Builder, ast.ProgramID, *source.File) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("fixture.mvms", []byte(src))
	file := fs.Get(fileID)
	bag := diag.NewBag(100)
	lx := lexer.New(file, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	arenas := ast.NewBuilder(ast.Hints{})
	result := parser.ParseFile(fs, fileID, lx, arenas, parser.Options{MaxErrors: 100, Reporter: diag.BagReporter{Bag: bag}})
	return arenas, result.Program, file
}

func TestCheckSpanInvariantsAcceptsWellFormedProgram(t *testing.T) {
	arenas, prog, file := parseFixture(t, "let x = 1;\nlet y = x + 1;\n")
	if err := testkit.CheckSpanInvariants(arenas, prog, file); err != nil {
		t.Fatalf("unexpected invariant failure: %v", err)
	}
}

func TestCheckSpanInvariantsAcceptsEmptyProgram(t *testing.T) {
	arenas, prog, file := parseFixture(t, "")
	if err := testkit.CheckSpanInvariants(arenas, prog, file); err != nil {
		t.Fatalf("unexpected invariant failure on empty program: %v", err)
	}
}

func TestCheckSpanInvariantsRejectsNilBuilder(t *testing.T) {
	if err := testkit.CheckSpanInvariants(nil, ast.NoProgramID, &source.File{}); err == nil {
		t.Fatalf("expected an error for a nil builder")
	}
}

func TestCheckSpanInvariantsRejectsMismatchedFile(t *testing.T) {
	arenas, prog, _ := parseFixture(t, "let x = 1;\n")
	fs := source.NewFileSet()
	otherFileID := fs.AddVirtual("other.mvms", []byte("let x = 1;\n"))
	if err := testkit.CheckSpanInvariants(arenas, prog, fs.Get(otherFileID)); err == nil {
		t.Fatalf("expected an error for a program span pointing at a different file")
	}
}
