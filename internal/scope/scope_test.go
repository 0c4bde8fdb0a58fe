package scope

import (
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/source"
)

func analyzeTestInput(t *testing.T, input string) (*Model, *ast.Builder, *diag.Bag) {
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

	model := Resolve(result.Program, arenas, reporter)
	AssignSlots(model, arenas.StringsInterner)
	return model, arenas, bag
}

func bindingNamed(t *testing.T, model *Model, interner *source.Interner, name string) *Binding {
	t.Helper()
	for i := 1; i <= model.Bindings.Len(); i++ {
		b := model.Bindings.Get(BindingID(i))
		if b.Name == source.NoStringID {
			continue
		}
		if s, ok := interner.Lookup(b.Name); ok && s == name {
			return b
		}
	}
	t.Fatalf("no binding named %q", name)
	return nil
}

func TestResolveTopLevelVarGetsLocalSlot(t *testing.T) {
	model, arenas, _ := analyzeTestInput(t, `var x = 1;`)
	b := bindingNamed(t, model, arenas.StringsInterner, "x")
	if b.Kind != BindVar {
		t.Fatalf("expected var binding, got %v", b.Kind)
	}
	if b.Slot.Kind != SlotLocal {
		t.Fatalf("expected local slot for uncaptured top-level var, got %v", b.Slot.Kind)
	}
}

func TestResolveExportedBindingGetsModuleImportExportSlot(t *testing.T) {
	model, arenas, _ := analyzeTestInput(t, `export let answer = 42;`)
	b := bindingNamed(t, model, arenas.StringsInterner, "answer")
	if !b.IsExported {
		t.Fatalf("expected binding to be marked exported")
	}
	if b.Slot.Kind != SlotModuleImportExport {
		t.Fatalf("expected ModuleImportExportSlot, got %v", b.Slot.Kind)
	}
}

func TestResolveNonExportedCapturedGlobalGetsGlobalSlot(t *testing.T) {
	src := `
		let counter = 0;
		function bump() { counter = counter + 1; }
	`
	model, arenas, _ := analyzeTestInput(t, src)
	b := bindingNamed(t, model, arenas.StringsInterner, "counter")
	if !b.IsAccessedByNestedFunction {
		t.Fatalf("expected counter to be marked accessed by nested function")
	}
	if b.Slot.Kind != SlotGlobal {
		t.Fatalf("expected GlobalSlot for captured top-level binding, got %v", b.Slot.Kind)
	}
}

func TestResolveUncapturedParamGetsArgumentSlot(t *testing.T) {
	model, arenas, _ := analyzeTestInput(t, `function f(a, b) { return a + b; }`)
	b := bindingNamed(t, model, arenas.StringsInterner, "a")
	if b.Kind != BindParam {
		t.Fatalf("expected param binding, got %v", b.Kind)
	}
	if b.Slot.Kind != SlotArgument || b.Slot.ArgIndex != 1 {
		t.Fatalf("expected ArgumentSlot(1), got %v/%d", b.Slot.Kind, b.Slot.ArgIndex)
	}
}

func TestResolveCapturedParamNeverUsesArgumentSlot(t *testing.T) {
	src := `
		function outer(a) {
			return function() { return a; };
		}
	`
	model, arenas, _ := analyzeTestInput(t, src)
	b := bindingNamed(t, model, arenas.StringsInterner, "a")
	if !b.IsAccessedByNestedFunction {
		t.Fatalf("expected a to be marked accessed by nested function")
	}
	if b.Slot.Kind == SlotArgument {
		t.Fatalf("captured binding must never use ArgumentSlot")
	}
	if b.Slot.Kind != SlotClosure {
		t.Fatalf("expected ClosureSlot for captured param, got %v", b.Slot.Kind)
	}
}

func TestResolveClosureCaptureAllocatesScopePush(t *testing.T) {
	src := `function mk() { let x = 1; return function() { x = x + 1; return x; }; }`
	model, arenas, _ := analyzeTestInput(t, src)
	b := bindingNamed(t, model, arenas.StringsInterner, "x")
	if b.Slot.Kind != SlotClosure {
		t.Fatalf("expected ClosureSlot for captured let, got %v", b.Slot.Kind)
	}

	sc := model.Scopes.Get(b.Scope)
	if !sc.IsClosure || sc.ClosureSlotCount == 0 {
		t.Fatalf("expected owning scope to be marked as a closure with slots allocated")
	}
	if len(sc.Prologue) == 0 || sc.Prologue[0].Kind != OpScopePush {
		t.Fatalf("expected ScopePush as the first prologue op")
	}
	if sc.Prologue[0].SlotCount != sc.ClosureSlotCount {
		t.Fatalf("ScopePush slot count %d does not match ClosureSlotCount %d", sc.Prologue[0].SlotCount, sc.ClosureSlotCount)
	}
}

func TestResolveArrowFunctionDoesNotIntroduceOwnThis(t *testing.T) {
	src := `
		function outer() {
			return () => this;
		}
	`
	model, _, bag := analyzeTestInput(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	// exactly one `this` reference, resolving to outer's this binding, not a
	// fresh one for the arrow.
	found := 0
	for _, ref := range model.References {
		if ref.Binding.IsValid() && model.Bindings.Get(ref.Binding).Kind == BindThis {
			found++
		}
	}
	if found != 1 {
		t.Fatalf("expected 1 this-reference, got %d", found)
	}
}

func TestResolveDuplicateBindingReported(t *testing.T) {
	src := `
		let value = 1;
		let value = 2;
	`
	_, _, bag := analyzeTestInput(t, src)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	if got := bag.Items()[0].Code; got != diag.ScopeDuplicateBinding {
		t.Fatalf("expected ScopeDuplicateBinding, got %v", got)
	}
}

func TestResolveFreeVariableIsNotReportedAsError(t *testing.T) {
	model, _, bag := analyzeTestInput(t, `console.log(1);`)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics for a free host global: %d", bag.Len())
	}
	if len(model.FreeVariables) != 1 {
		t.Fatalf("expected exactly one free variable, got %d", len(model.FreeVariables))
	}
}

func TestResolveAssignToConstReported(t *testing.T) {
	src := `
		const x = 1;
		x = 2;
	`
	_, _, bag := analyzeTestInput(t, src)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	if got := bag.Items()[0].Code; got != diag.CompAssignToConst {
		t.Fatalf("expected CompAssignToConst, got %v", got)
	}
}

func TestResolveImportSpecifierGetsModuleImportExportSlot(t *testing.T) {
	src := `import { add } from "math";`
	model, arenas, bag := analyzeTestInput(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	b := bindingNamed(t, model, arenas.StringsInterner, "add")
	if b.Kind != BindImport {
		t.Fatalf("expected import binding, got %v", b.Kind)
	}
	if b.Slot.Kind != SlotModuleImportExport {
		t.Fatalf("expected ModuleImportExportSlot, got %v", b.Slot.Kind)
	}
	if !b.Slot.Namespace.IsValid() {
		t.Fatalf("expected a valid namespace binding for the import")
	}
}
