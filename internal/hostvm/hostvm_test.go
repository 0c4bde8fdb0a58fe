package hostvm_test

import (
	"bytes"
	"strings"
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/hostvm"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/scope"
	"microvium/internal/snapshot"
	"microvium/internal/source"
)

// compile runs the same lex/parse/resolve/lower pipeline internal/il's own
// tests use, returning the compiled Unit and the interner it was built
// against — the interner a hostvm.VM must share to resolve the same
// OpLoadGlobal/OpStoreGlobal names.
func compile(t *testing.T, input string) (*il.Unit, *source.Interner) {
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
		t.Fatalf("unexpected parse diagnostics for %q: %d", input, bag.Len())
	}

	model := scope.Resolve(result.Program, arenas, reporter)
	scope.AssignSlots(model, arenas.StringsInterner)

	unit, err := il.Compile(result.Program, arenas, model, reporter)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected compile diagnostics for %q: %d", input, bag.Len())
	}
	return unit, arenas.StringsInterner
}

func mustEvaluate(t *testing.T, src string) *hostvm.VM {
	t.Helper()
	unit, interner := compile(t, src)
	vm := hostvm.Create(interner, nil)
	if err := vm.EvaluateModule(unit); err != nil {
		t.Fatalf("EvaluateModule: %v", err)
	}
	return vm
}

// Scenario 1 (spec.md §8): a trivial export.
func TestTrivialExportReturns42(t *testing.T) {
	vm := mustEvaluate(t, `vmExport(0, () => 42);`)

	fn, err := vm.ResolveExport(0)
	if err != nil {
		t.Fatalf("ResolveExport: %v", err)
	}

	result, err := vm.Call(fn, ilvalue.Undefined(), nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Kind != ilvalue.KindNumber || result.Number != 42 {
		t.Fatalf("result = %+v, want number 42", result)
	}
}

// Scenario: closure capture returns successive increments across calls.
func TestClosureCaptureIncrementsAcrossCalls(t *testing.T) {
	vm := mustEvaluate(t, `
		function mk() {
			let x = 1;
			return () => ++x;
		}
		vmExport(0, mk());
	`)

	fn, err := vm.ResolveExport(0)
	if err != nil {
		t.Fatalf("ResolveExport: %v", err)
	}

	first, err := vm.Call(fn, ilvalue.Undefined(), nil)
	if err != nil {
		t.Fatalf("first Call: %v", err)
	}
	if first.Number != 2 {
		t.Fatalf("first call = %v, want 2", first.Number)
	}

	second, err := vm.Call(fn, ilvalue.Undefined(), nil)
	if err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if second.Number != 3 {
		t.Fatalf("second call = %v, want 3", second.Number)
	}
}

// Scenario: switch-with-default prints "a", "b", "c", "d" (case 2 falls
// through into case 3; an unmatched value takes the default).
func TestSwitchWithDefaultPrintsExpectedOrder(t *testing.T) {
	var buf bytes.Buffer
	unit, interner := compile(t, `
		function run(x) {
			switch (x) {
				case 1:
					print("a");
					break;
				case 2:
					print("b");
				case 3:
					print("c");
					break;
				default:
					print("d");
			}
		}
		vmExport(0, run);
	`)
	vm := hostvm.Create(interner, nil)
	vm.SetOutput(&buf)
	if err := vm.EvaluateModule(unit); err != nil {
		t.Fatalf("EvaluateModule: %v", err)
	}

	fn, err := vm.ResolveExport(0)
	if err != nil {
		t.Fatalf("ResolveExport: %v", err)
	}

	for _, n := range []float64{1, 2, 5} {
		if _, err := vm.Call(fn, ilvalue.Undefined(), []ilvalue.Value{ilvalue.Number(n)}); err != nil {
			t.Fatalf("Call(%v): %v", n, err)
		}
	}

	got := buf.String()
	want := "a\nb\nc\nd\n"
	if got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

// Scenario: the (a / b) | 0 idiom folds to DIVIDE_AND_TRUNC and prints 3.
func TestIntegerTruncationIdiomPrints3(t *testing.T) {
	var buf bytes.Buffer
	unit, interner := compile(t, `print((10 / 3) | 0);`)
	vm := hostvm.Create(interner, nil)
	vm.SetOutput(&buf)
	if err := vm.EvaluateModule(unit); err != nil {
		t.Fatalf("EvaluateModule: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "3" {
		t.Fatalf("output = %q, want %q", got, "3")
	}
}

// Testable property (spec.md §8 scenario 1, encode/decode/restore leg):
// compile, evaluate, snapshot, restore, then resolveExport still returns 42.
func TestSnapshotEncodeDecodeRestoreRoundTrip(t *testing.T) {
	vm := mustEvaluate(t, `vmExport(0, () => 42);`)

	info := vm.CreateSnapshotInfo()
	result, err := snapshot.Encode(info.Info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	restored, err := hostvm.Restore(result.Bytes, info, nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	fn, err := restored.ResolveExport(0)
	if err != nil {
		t.Fatalf("ResolveExport after restore: %v", err)
	}
	value, err := restored.Call(fn, ilvalue.Undefined(), nil)
	if err != nil {
		t.Fatalf("Call after restore: %v", err)
	}
	if value.Number != 42 {
		t.Fatalf("restored result = %v, want 42", value.Number)
	}

	if _, err := snapshot.Encode(info.Info); err != nil {
		t.Fatalf("re-Encode of the same Info: %v", err)
	}
}

// Testable property (spec.md §8 scenario 6): flipping a byte past the
// fixed header must fail Restore's structural validation before it ever
// touches the in-memory graph.
func TestRestoreRejectsCorruptedImage(t *testing.T) {
	vm := mustEvaluate(t, `vmExport(0, () => 42);`)
	info := vm.CreateSnapshotInfo()
	result, err := snapshot.Encode(info.Info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	corrupt := append([]byte(nil), result.Bytes...)
	corrupt[len(corrupt)-1] ^= 0xFF

	if _, err := hostvm.Restore(corrupt, info, nil); err == nil {
		t.Fatalf("Restore accepted a corrupted image")
	}
}

// A host function imported under a real HostFunctionId round-trips
// through a snapshot and is resolved again via the supplied
// ImportResolver after Restore, not re-bound from the original closure.
func TestImportedHostFunctionSurvivesRestore(t *testing.T) {
	const doubleHostID uint16 = 7

	unit, interner := compile(t, `
		vmExport(0, double);
	`)
	doubleImpl := func(vm *hostvm.VM, this ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error) {
		return ilvalue.Number(args[0].Number * 2), nil
	}
	resolver := func(id uint16) (hostvm.HostFunction, bool) {
		if id == doubleHostID {
			return doubleImpl, true
		}
		return nil, false
	}

	vm := hostvm.Create(interner, resolver)
	if err := vm.ApplyImportMap(map[string]uint16{"double": doubleHostID}); err != nil {
		t.Fatalf("ApplyImportMap: %v", err)
	}
	if err := vm.EvaluateModule(unit); err != nil {
		t.Fatalf("EvaluateModule: %v", err)
	}

	info := vm.CreateSnapshotInfo()
	result, err := snapshot.Encode(info.Info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	restored, err := hostvm.Restore(result.Bytes, info, resolver)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	fn, err := restored.ResolveExport(0)
	if err != nil {
		t.Fatalf("ResolveExport: %v", err)
	}
	got, err := restored.Call(fn, ilvalue.Undefined(), []ilvalue.Value{ilvalue.Number(21)})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Number != 42 {
		t.Fatalf("result = %v, want 42", got.Number)
	}
}
