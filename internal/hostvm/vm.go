package hostvm

import (
	"io"
	"os"

	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
	"microvium/internal/source"
)

// HostFunction is a Go callback registered under a HostFunctionId
// (spec.md §6's `vm.importHostFunction`), invoked exactly like a plain
// function call with a `this` value and positional arguments.
type HostFunction func(vm *VM, this ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error)

// ImportResolver supplies a host function implementation for an id the
// compiled module references but the VM hasn't been told about yet,
// mirroring spec.md §6's `create(importResolver)`. Returns ok=false if
// the id has no implementation.
type ImportResolver func(hostFunctionID uint16) (HostFunction, bool)

// maxCallDepth guards against runaway recursion in scripts that blow the
// operand stack without ever hitting a Return; vm.call recurses through
// Go's own stack once per nested script call.
const maxCallDepth = 2048

// VM is the tree-free bytecode interpreter spec.md §6 calls for: it
// executes il.Operations straight off a compiled Unit's blocks rather
// than re-walking the AST or an intermediate tree a second time.
type VM struct {
	unit     *il.Unit
	interner *source.Interner
	allocs   *ilvalue.Allocations

	globals     map[source.StringID]ilvalue.Value
	globalOrder []source.StringID

	exports map[uint16]ilvalue.Value

	hostFuncs     map[uint16]HostFunction
	hostFuncAllocs map[uint16]ilvalue.AllocationID
	resolve       ImportResolver

	// imports is the module's own import table, in first-reference order
	// (spec.md §4.3's importTable region), excluding the two always-on
	// builtins below.
	imports     []uint16
	importIndex map[uint16]int

	funcAllocs map[uint32]ilvalue.AllocationID

	stack []*frame

	out io.Writer

	// lengthName is "length" pre-interned against this VM's interner, for
	// ObjectGet's virtual array-length property (spec.md §9's for-of
	// lowering note).
	lengthName source.StringID
}

// builtinHostFuncPrint and builtinHostFuncVMExport are reserved
// HostFunctionIds for the two intrinsics every VM binds automatically
// (SPEC_FULL.md §6): print(x), for the output scenarios spec.md §8
// names, and vmExport(id, value), the free-standing global the compiled
// subset's vmExport(0, ...) call sites resolve to. They sit at the top
// of the 16-bit id space, away from any host-assigned id.
const (
	builtinHostFuncPrint    uint16 = 0xFFFF
	builtinHostFuncVMExport uint16 = 0xFFFE
)

// Create starts a fresh VM sharing interner with whatever scope/il
// compilation produced the Unit it will evaluate — the same StringIDs
// must resolve to the same names on both sides of OpLoadGlobal.
// importResolver may be nil if the module has no host-supplied imports
// beyond the two builtins.
func Create(interner *source.Interner, importResolver ImportResolver) *VM {
	vm := &VM{
		interner:       interner,
		allocs:         ilvalue.NewAllocations(0),
		globals:        make(map[source.StringID]ilvalue.Value),
		exports:        make(map[uint16]ilvalue.Value),
		hostFuncs:      make(map[uint16]HostFunction),
		hostFuncAllocs: make(map[uint16]ilvalue.AllocationID),
		importIndex:    make(map[uint16]int),
		funcAllocs:     make(map[uint32]ilvalue.AllocationID),
		resolve:        importResolver,
		out:            os.Stdout,
	}
	vm.lengthName = interner.Intern("length")
	vm.registerBuiltins()
	return vm
}

// SetOutput redirects print()'s sink, so tests can capture program
// output instead of writing to the process's real stdout.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetGlobal binds a value to a source-level name, interning it against
// the VM's own interner. Used both for the builtins and for a host
// wiring a real import before EvaluateModule runs.
func (vm *VM) SetGlobal(name string, v ilvalue.Value) {
	id := vm.interner.Intern(name)
	if _, exists := vm.globals[id]; !exists {
		vm.globalOrder = append(vm.globalOrder, id)
	}
	vm.globals[id] = v
}

// EvaluateModule interprets unit's #entry function to completion
// (spec.md §6 "vm.evaluateModule"): #entry receives a fresh module
// namespace object as argument 0 and, per internal/il's compiled
// prologue, stores it into the thisModule global before running the
// module body. unit is the output of internal/scope + internal/il
// against the same interner this VM was created with.
func (vm *VM) EvaluateModule(unit *il.Unit) error {
	_, err := vm.evaluateModule(unit)
	return err
}

// EvaluateModuleNamespace is EvaluateModule but also returns the module's
// namespace object, the value #entry received as argument 0 and stored
// into its own thisModule global. A build driver linking several modules
// together needs this value to bind under the importing module's import
// source name (spec.md §4.1's ModuleImportExportSlot addresses another
// module purely by that name) before evaluating the importer.
func (vm *VM) EvaluateModuleNamespace(unit *il.Unit) (ilvalue.Value, error) {
	return vm.evaluateModule(unit)
}

func (vm *VM) evaluateModule(unit *il.Unit) (ilvalue.Value, error) {
	vm.unit = unit
	entry := unit.Func(unit.EntryFn)
	if entry == nil {
		return ilvalue.Undefined(), errf(diag.ILUnresolvedLabel, "internal: compiled unit has no #entry function")
	}
	nsID := vm.allocs.New(ilvalue.AllocObject)
	ns := ilvalue.Reference(nsID)
	if _, err := vm.call(entry, []ilvalue.Value{ns}, nil); err != nil {
		return ilvalue.Undefined(), err
	}
	return ns, nil
}

// Call invokes a callable Value directly, the same way OpCall does
// internally. An embedding host uses this after EvaluateModule to drive
// an exported closure or function, e.g. the result of ResolveExport.
func (vm *VM) Call(callee, this ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error) {
	return vm.invoke(callee, this, args)
}

// ExportValue binds a value under a module export id (spec.md §6
// "vm.exportValue"). The compiled subset reaches this indirectly
// through the vmExport() builtin; an embedding host may also call it
// directly after EvaluateModule returns.
func (vm *VM) ExportValue(exportID uint16, v ilvalue.Value) {
	vm.exports[exportID] = v
}

// ResolveExport looks up a previously exported value (spec.md §6
// "vm.resolveExport").
func (vm *VM) ResolveExport(exportID uint16) (ilvalue.Value, error) {
	v, ok := vm.exports[exportID]
	if !ok {
		return ilvalue.Undefined(), errf(diag.HostUnknownExport, "no value was exported under id %d", exportID)
	}
	return v, nil
}

// ImportHostFunction resolves hostFunctionID to a callable Value
// (spec.md §6 "vm.importHostFunction"), reusing an implementation already
// registered under that id, or otherwise asking the VM's ImportResolver. The id is recorded in the module's import table
// exactly once, in first-reference order. The returned Value is not
// reachable from any global until the caller binds it, typically via
// SetGlobal before EvaluateModule.
func (vm *VM) ImportHostFunction(hostFunctionID uint16) (ilvalue.Value, error) {
	if fn, ok := vm.hostFuncs[hostFunctionID]; ok {
		return vm.bindHostFunction(hostFunctionID, fn, true), nil
	}
	if vm.resolve == nil {
		return ilvalue.Undefined(), errf(diag.HostBadHostFuncID, "host function id %d has no registered implementation and no import resolver was configured", hostFunctionID)
	}
	fn, ok := vm.resolve(hostFunctionID)
	if !ok {
		return ilvalue.Undefined(), errf(diag.HostBadHostFuncID, "import resolver has no implementation for host function id %d", hostFunctionID)
	}
	return vm.bindHostFunction(hostFunctionID, fn, true), nil
}

// ApplyImportMap is a convenience over ImportHostFunction for the common
// case of a host handing over its whole {globalName: hostFunctionId}
// map in one call. A shape problem — an id the resolver can't supply —
// is reported as HostBadImportMap (spec.md §7's "bad import map shape"
// example), distinct from HostBadHostFuncID's single-id failure.
func (vm *VM) ApplyImportMap(m map[string]uint16) error {
	for name, id := range m {
		v, err := vm.ImportHostFunction(id)
		if err != nil {
			return errf(diag.HostBadImportMap, "import map entry %q -> host function %d: %v", name, id, err)
		}
		vm.SetGlobal(name, v)
	}
	return nil
}

// bindHostFunction registers fn under id (idempotent) and returns a
// Value wrapping its AllocHostFunction allocation, reusing the same
// allocation on repeated lookups of the same id so identity comparisons
// on a repeatedly-imported host function behave sanely.
func (vm *VM) bindHostFunction(id uint16, fn HostFunction, trackImport bool) ilvalue.Value {
	vm.hostFuncs[id] = fn
	allocID, ok := vm.hostFuncAllocs[id]
	if !ok {
		allocID = vm.allocs.New(ilvalue.AllocHostFunction)
		vm.allocs.Get(allocID).FunctionIndex = uint32(id)
		vm.hostFuncAllocs[id] = allocID
	}
	if trackImport {
		if _, seen := vm.importIndex[id]; !seen {
			vm.importIndex[id] = len(vm.imports)
			vm.imports = append(vm.imports, id)
		}
	}
	return ilvalue.Reference(allocID)
}

func (vm *VM) registerBuiltins() {
	vm.SetGlobal("print", vm.bindHostFunction(builtinHostFuncPrint, builtinPrint, false))
	vm.SetGlobal("vmExport", vm.bindHostFunction(builtinHostFuncVMExport, builtinVMExport, false))
}

// funcAllocID memoizes one AllocFunction allocation per il.FuncID, so
// OpFunctionLiteral doesn't churn the heap with a fresh allocation every
// time a function literal expression re-executes; plain functions carry
// no referential-identity requirement in this subset, so sharing one
// allocation per FuncID is simply the cheaper choice.
func (vm *VM) funcAllocID(idx uint32) ilvalue.AllocationID {
	if id, ok := vm.funcAllocs[idx]; ok {
		return id
	}
	id := vm.allocs.New(ilvalue.AllocFunction)
	vm.allocs.Get(id).FunctionIndex = idx
	vm.funcAllocs[idx] = id
	return id
}

// call pushes a new activation record for fn and interprets its blocks
// until a Return, mirroring the teacher's explicit Frame/Stack-of-frames
// shape without the teacher's external Step()/Run() split: that split
// exists there to support debugger single-stepping (StopPoint,
// RunUntilStop), a feature no part of this build's scope calls for.
func (vm *VM) call(fn *il.Function, args []ilvalue.Value, scopeChain []ilvalue.AllocationID) (ilvalue.Value, error) {
	if len(vm.stack) >= maxCallDepth {
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "call stack exceeded %d frames in %q", maxCallDepth, fn.Name)
	}

	fr := newFrame(fn, args, scopeChain)
	vm.stack = append(vm.stack, fr)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()

	for {
		block := fn.Block(fr.block)
		if block == nil {
			return ilvalue.Undefined(), errf(diag.ILUnresolvedLabel, "internal: %q jumped to an undeclared block", fn.Name)
		}
		if fr.ip >= len(block.Ops) {
			return ilvalue.Undefined(), errf(diag.ILUnreachableTerminator, "internal: %q fell off the end of block %d without a terminator", fn.Name, block.ID)
		}

		op := block.Ops[fr.ip]
		result, jumped, returned, err := vm.execOp(fr, op)
		if err != nil {
			return ilvalue.Undefined(), err
		}
		if returned {
			return result, nil
		}
		if !jumped {
			fr.ip++
		}
	}
}
