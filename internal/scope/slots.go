package scope

import (
	"fmt"

	"microvium/internal/source"
)

// funcFrame tracks the running local/closure slot counters for one
// function (or the module) while pass 2 walks its descendant blocks.
type funcFrame struct {
	scope   ScopeID
	local   uint32
	closure uint32
}

type slotAssigner struct {
	model    *Model
	interner *source.Interner
	usedGlobalNames map[string]bool

	// moduleLocalCounter assigns SlotLocal indices to module-level bindings
	// that fall through to ordinary local treatment (spec.md §4.1 pass 2).
	moduleLocalCounter uint32
}

// AssignSlots runs pass 2 of the Scope Analyzer (spec.md §4.1) over a
// Model produced by Resolve, assigning every Binding a concrete Slot and
// filling in each Scope's Prologue/ClosureSlotCount/IsClosure.
func AssignSlots(model *Model, interner *source.Interner) {
	a := &slotAssigner{model: model, interner: interner, usedGlobalNames: make(map[string]bool)}
	for _, name := range model.FreeVariables {
		if s, ok := interner.Lookup(name); ok {
			a.usedGlobalNames[s] = true
		}
	}
	a.assignFunctionLike(model.Root, true)
}

// assignFunctionLike handles one module-or-function scope boundary: its
// own this/parameter/hoisted-var/hoisted-function/direct-lexical bindings,
// then recurses into descendant blocks (carrying this frame's counters)
// and descendant function scopes (with fresh counters of their own).
func (a *slotAssigner) assignFunctionLike(scopeID ScopeID, isModule bool) {
	sc := a.model.Scopes.Get(scopeID)
	fc := &funcFrame{scope: scopeID}

	if sc.ThisBinding.IsValid() {
		a.assignThis(sc, fc)
	}

	for i, pid := range sc.ParameterBindings {
		a.assignParam(sc, fc, pid, uint32(i))
	}

	if isModule {
		for _, bid := range sc.VarDeclarations {
			a.assignModuleBinding(bid)
		}
		for _, bid := range sc.NestedFunctionDeclarations {
			a.assignModuleBinding(bid)
		}
		for _, bid := range sc.LexicalDeclarations {
			a.assignModuleBinding(bid)
		}
		// Block-scoped locals of the module body share the entry frame, so
		// they number on from the module-level locals.
		fc.local = a.moduleLocalCounter
	} else {
		for _, bid := range sc.VarDeclarations {
			a.assignLocalOrClosure(bid, fc)
		}
		for _, bid := range sc.NestedFunctionDeclarations {
			a.assignLocalOrClosure(bid, fc)
		}
		for _, bid := range sc.LexicalDeclarations {
			a.assignLocalOrClosure(bid, fc)
		}
	}

	for _, child := range sc.Children {
		a.walkBlock(child, fc)
	}

	if fc.closure > 0 {
		sc.IsClosure = true
		sc.ClosureSlotCount = fc.closure
		sc.Prologue = append([]PrologueOp{{Kind: OpScopePush, SlotCount: fc.closure}}, sc.Prologue...)
	}
}

// walkBlock assigns slots for a block scope's own let/const bindings
// (using the enclosing function's frame) and recurses; a nested function
// scope found here gets its own independent assignFunctionLike call.
func (a *slotAssigner) walkBlock(scopeID ScopeID, fc *funcFrame) {
	sc := a.model.Scopes.Get(scopeID)
	if sc.Kind == ScopeFunction {
		a.assignFunctionLike(scopeID, false)
		return
	}
	for _, bid := range sc.LexicalDeclarations {
		a.assignLocalOrClosure(bid, fc)
	}
	for _, child := range sc.Children {
		a.walkBlock(child, fc)
	}
}

func (a *slotAssigner) assignThis(sc *Scope, fc *funcFrame) {
	b := a.model.Bindings.Get(sc.ThisBinding)
	if !b.IsWrittenTo && !b.IsAccessedByNestedFunction {
		b.Slot = Slot{Kind: SlotArgument, ArgIndex: 0}
		return
	}
	b.Slot = Slot{Kind: SlotClosure, Index: fc.closure}
	fc.closure++
	sc.Prologue = append(sc.Prologue, PrologueOp{Kind: OpInitThis, Binding: b.ID})
}

func (a *slotAssigner) assignParam(sc *Scope, fc *funcFrame, pid BindingID, index uint32) {
	b := a.model.Bindings.Get(pid)
	switch {
	case !b.IsWrittenTo && !b.IsAccessedByNestedFunction:
		b.Slot = Slot{Kind: SlotArgument, ArgIndex: index + 1}
	case b.IsAccessedByNestedFunction:
		b.Slot = Slot{Kind: SlotClosure, Index: fc.closure}
		fc.closure++
		sc.Prologue = append(sc.Prologue, PrologueOp{Kind: OpInitParameter, Binding: b.ID})
	default: // written to, not captured
		b.Slot = Slot{Kind: SlotLocal, Index: fc.local}
		fc.local++
		sc.Prologue = append(sc.Prologue, PrologueOp{Kind: OpInitParameter, Binding: b.ID})
	}
}

func (a *slotAssigner) assignLocalOrClosure(bid BindingID, fc *funcFrame) {
	b := a.model.Bindings.Get(bid)
	if b.Slot.Kind != SlotUnassigned {
		return
	}
	if b.IsAccessedByNestedFunction {
		b.Slot = Slot{Kind: SlotClosure, Index: fc.closure}
		fc.closure++
		return
	}
	b.Slot = Slot{Kind: SlotLocal, Index: fc.local}
	fc.local++
}

// assignModuleBinding implements the module-level rule: exports and
// imports go through the module's namespace object, a non-exported
// captured binding gets a unique global, and everything else gets an
// ordinary local slot in the implicit entry function's frame.
func (a *slotAssigner) assignModuleBinding(bid BindingID) {
	b := a.model.Bindings.Get(bid)
	if b.Slot.Kind != SlotUnassigned {
		return // imports already carry a ModuleImportExportSlot from pass 1
	}
	if b.IsExported {
		b.Slot = Slot{Kind: SlotModuleImportExport, Namespace: NoBindingID, PropertyName: b.Name}
		return
	}
	if b.IsAccessedByNestedFunction {
		b.Slot = Slot{Kind: SlotGlobal, Name: a.uniqueGlobalName(b.Name)}
		return
	}
	b.Slot = Slot{Kind: SlotLocal, Index: a.moduleLocalCounter}
	a.moduleLocalCounter++
}

func (a *slotAssigner) uniqueGlobalName(name source.StringID) source.StringID {
	base, ok := a.interner.Lookup(name)
	if !ok {
		base = "global"
	}
	if !a.usedGlobalNames[base] {
		a.usedGlobalNames[base] = true
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !a.usedGlobalNames[candidate] {
			a.usedGlobalNames[candidate] = true
			return a.interner.Intern(candidate)
		}
	}
}
