package il_test

import (
	"strings"
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/scope"
	"microvium/internal/source"
)

// compileWithInterner mirrors compileTestInput but also returns the
// interner the compile interned names into, since Fprint needs it to
// resolve StringID operands back to text.
func compileWithInterner(t *testing.T, input string) (*il.Unit, *source.Interner, error) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.mvm", []byte(input))
	file := fs.Get(fileID)

	bag := diag.NewBag(100)
	reporter := diag.BagReporter{Bag: bag}

	lx := lexer.New(file, lexer.Options{Reporter: reporter})
	arenas := ast.NewBuilder(ast.Hints{})

	result := parser.ParseFile(fs, fileID, lx, arenas, parser.Options{MaxErrors: 100, Reporter: reporter})
	if bag.Len() != 0 {
		t.Fatalf("unexpected parse diagnostics: %d", bag.Len())
	}

	model := scope.Resolve(result.Program, arenas, reporter)
	scope.AssignSlots(model, arenas.StringsInterner)

	unit, err := il.Compile(result.Program, arenas, model, reporter)
	return unit, arenas.StringsInterner, err
}

// TestFprintListsEveryFunctionAndMarksEntry checks that Fprint walks every
// function in a unit, names the entry function's own marker, and renders at
// least one recognizable opcode name rather than falling back to its
// "UNKNOWN" placeholder.
func TestFprintListsEveryFunctionAndMarksEntry(t *testing.T) {
	unit, _, err := compileTestInput(t, `
		function add(a, b) { return a + b; }
		let sum = add(1, 2);
	`)
	if err != nil {
		t.Fatalf("Compile returned an internal error: %v", err)
	}

	var buf strings.Builder
	if err := il.Fprint(&buf, unit, nil); err != nil {
		t.Fatalf("Fprint returned an error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "func #entry(") {
		t.Fatalf("expected output to name the entry function, got:\n%s", out)
	}
	if !strings.Contains(out, " entry") {
		t.Fatalf("expected the entry function to be marked, got:\n%s", out)
	}
	if !strings.Contains(out, "func add(") {
		t.Fatalf("expected output to list the add function, got:\n%s", out)
	}
	if strings.Contains(out, "UNKNOWN") {
		t.Fatalf("expected every opcode to resolve to a known name, got:\n%s", out)
	}
	if !strings.Contains(out, "Return") || !strings.Contains(out, "Call") {
		t.Fatalf("expected Return and Call opcodes to appear, got:\n%s", out)
	}
}

// TestFprintResolvesStringOperandsViaInterner checks that a global name
// operand is printed as the resolved identifier rather than a raw StringID
// when Fprint is given the unit's own interner.
func TestFprintResolvesStringOperandsViaInterner(t *testing.T) {
	unit, interner, err := compileWithInterner(t, `export let answer = 42;`)
	if err != nil {
		t.Fatalf("Compile returned an internal error: %v", err)
	}

	var buf strings.Builder
	if err := il.Fprint(&buf, unit, interner); err != nil {
		t.Fatalf("Fprint returned an error: %v", err)
	}
	if strings.Contains(buf.String(), "$") {
		t.Fatalf("expected no unresolved $id placeholders once an interner is supplied, got:\n%s", buf.String())
	}
}
