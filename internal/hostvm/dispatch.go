package hostvm

import (
	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
)

// execOp runs one Operation against fr's operand stack, returning the
// function's result if it returned, whether control jumped to a
// different block (so call's loop must not also advance fr.ip), and any
// error. result is only meaningful when returned is true.
func (vm *VM) execOp(fr *frame, op il.Operation) (result ilvalue.Value, jumped bool, returned bool, err error) {
	switch op.Code {
	case il.OpLiteral:
		fr.push(op.Literal)

	case il.OpFunctionLiteral:
		fr.push(ilvalue.Reference(vm.funcAllocID(op.Index)))

	case il.OpLoadVar:
		if int(op.Index) >= len(fr.locals) {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: LoadVar index %d out of range in %q", op.Index, fr.fn.Name)
		}
		fr.push(fr.locals[op.Index])

	case il.OpStoreVar:
		if int(op.Index) >= len(fr.locals) {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: StoreVar index %d out of range in %q", op.Index, fr.fn.Name)
		}
		fr.locals[op.Index] = fr.top()

	case il.OpLoadArg:
		fr.push(fr.arg(int(op.Index)))

	case il.OpLoadScoped:
		id, ok := fr.innermostScope()
		if !ok {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: LoadScoped in %q with no active scope frame", fr.fn.Name)
		}
		scope := vm.allocs.Get(id)
		if scope == nil || int(op.Index) >= len(scope.Elements) {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: LoadScoped index %d out of range in %q", op.Index, fr.fn.Name)
		}
		fr.push(scope.Elements[op.Index])

	case il.OpStoreScoped:
		id, ok := fr.innermostScope()
		if !ok {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: StoreScoped in %q with no active scope frame", fr.fn.Name)
		}
		scope := vm.allocs.Get(id)
		if scope == nil || int(op.Index) >= len(scope.Elements) {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: StoreScoped index %d out of range in %q", op.Index, fr.fn.Name)
		}
		scope.Elements[op.Index] = fr.top()

	case il.OpLoadGlobal:
		fr.push(vm.globals[op.Name])

	case il.OpStoreGlobal:
		v := fr.top()
		if _, exists := vm.globals[op.Name]; !exists {
			vm.globalOrder = append(vm.globalOrder, op.Name)
		}
		vm.globals[op.Name] = v

	case il.OpObjectNew:
		fr.push(ilvalue.Reference(vm.allocs.New(ilvalue.AllocObject)))

	case il.OpArrayNew:
		fr.push(ilvalue.Reference(vm.allocs.New(ilvalue.AllocArray)))

	case il.OpObjectGet:
		key := fr.pop()
		obj := fr.pop()
		v, gerr := vm.getProperty(obj, key)
		if gerr != nil {
			return result, false, false, gerr
		}
		fr.push(v)

	case il.OpObjectSet:
		value := fr.pop()
		key := fr.pop()
		obj := fr.pop()
		if serr := vm.setProperty(obj, key, value); serr != nil {
			return result, false, false, serr
		}
		fr.push(value)

	case il.OpClosureNew:
		fnVal := fr.pop()
		if fnVal.Kind != ilvalue.KindReference {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: ClosureNew operand is not a function reference in %q", fr.fn.Name)
		}
		target := vm.allocs.Get(fnVal.Ref)
		if target == nil || target.Kind != ilvalue.AllocFunction {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: ClosureNew operand is not an AllocFunction in %q", fr.fn.Name)
		}
		closureID := vm.allocs.New(ilvalue.AllocClosure)
		closure := vm.allocs.Get(closureID)
		closure.FunctionIndex = target.FunctionIndex
		closure.Captured = make([]ilvalue.Value, len(fr.scopeChain))
		for i, scopeID := range fr.scopeChain {
			closure.Captured[i] = ilvalue.Reference(scopeID)
		}
		fr.push(ilvalue.Reference(closureID))

	case il.OpBinOp:
		right := fr.pop()
		left := fr.pop()
		v, berr := vm.evalBinOp(op.Bin, left, right)
		if berr != nil {
			return result, false, false, berr
		}
		fr.push(v)

	case il.OpUnaryOp:
		operand := fr.pop()
		v, uerr := vm.evalUnaryOp(op.Unary, operand)
		if uerr != nil {
			return result, false, false, uerr
		}
		fr.push(v)

	case il.OpDup:
		fr.push(fr.top())

	case il.OpPop:
		fr.pop()

	case il.OpPopN:
		fr.popN(int(op.Count))

	case il.OpJump:
		fr.block = op.Targets[0]
		fr.ip = 0
		return result, true, false, nil

	case il.OpBranch:
		cond := fr.pop()
		if cond.IsTruthy() {
			fr.block = op.Targets[0]
		} else {
			fr.block = op.Targets[1]
		}
		fr.ip = 0
		return result, true, false, nil

	case il.OpScopePush:
		id := vm.allocs.New(ilvalue.AllocArray)
		vm.allocs.Get(id).Elements = make([]ilvalue.Value, op.Count)
		fr.scopeChain = append(fr.scopeChain, id)

	case il.OpScopePop:
		if len(fr.scopeChain) == 0 {
			return result, false, false, errf(diag.ILOperandMismatch, "internal: ScopePop in %q with no active scope frame", fr.fn.Name)
		}
		fr.scopeChain = fr.scopeChain[:len(fr.scopeChain)-1]

	case il.OpCall:
		args := fr.popN(int(op.Count))
		callee := fr.pop()
		this := fr.pop()
		v, cerr := vm.invoke(callee, this, args)
		if cerr != nil {
			return result, false, false, cerr
		}
		fr.push(v)

	case il.OpReturn:
		return fr.pop(), false, true, nil

	default:
		return result, false, false, errf(diag.ILOperandMismatch, "internal: unhandled opcode %d in %q", op.Code, fr.fn.Name)
	}

	return result, false, false, nil
}

// invoke dispatches a Call's callee by its allocation kind: a plain
// function or closure pushes a new interpreted frame; a host function
// calls straight into its registered Go implementation without one.
// Calling anything else is a dynamically-typed program bug this subset
// has no throw/exception mechanism to surface as a script-level
// TypeError, so it's reported the same way an internal compiler
// invariant violation would be.
func (vm *VM) invoke(callee, this ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error) {
	if callee.Kind != ilvalue.KindReference {
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "value of kind %s is not callable", callee.Kind)
	}
	alloc := vm.allocs.Get(callee.Ref)
	if alloc == nil {
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: call target references a missing allocation")
	}

	switch alloc.Kind {
	case ilvalue.AllocFunction:
		fn := vm.unit.Func(il.FuncID(alloc.FunctionIndex))
		if fn == nil {
			return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: AllocFunction references a missing function %d", alloc.FunctionIndex)
		}
		return vm.call(fn, prepend(this, args), nil)

	case ilvalue.AllocClosure:
		fn := vm.unit.Func(il.FuncID(alloc.FunctionIndex))
		if fn == nil {
			return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: AllocClosure references a missing function %d", alloc.FunctionIndex)
		}
		chain := make([]ilvalue.AllocationID, 0, len(alloc.Captured))
		for _, c := range alloc.Captured {
			if c.Kind != ilvalue.KindReference {
				return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: closure captured a non-reference scope entry")
			}
			chain = append(chain, c.Ref)
		}
		return vm.call(fn, prepend(this, args), chain)

	case ilvalue.AllocHostFunction:
		hf, ok := vm.hostFuncs[uint16(alloc.FunctionIndex)]
		if !ok {
			return ilvalue.Undefined(), errf(diag.HostBadHostFuncID, "host function id %d is not registered", alloc.FunctionIndex)
		}
		return hf(vm, this, args)

	default:
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "value of allocation kind %d is not callable", alloc.Kind)
	}
}

func prepend(this ilvalue.Value, args []ilvalue.Value) []ilvalue.Value {
	out := make([]ilvalue.Value, len(args)+1)
	out[0] = this
	copy(out[1:], args)
	return out
}

// getProperty implements ObjectGet for the two property-bearing
// allocation kinds: named lookup on an object, numeric/length lookup on
// an array. Reading an absent property yields undefined, matching JS.
func (vm *VM) getProperty(obj, key ilvalue.Value) (ilvalue.Value, error) {
	if obj.Kind != ilvalue.KindReference {
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "property access on a non-reference value of kind %s", obj.Kind)
	}
	alloc := vm.allocs.Get(obj.Ref)
	if alloc == nil {
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: property access on a missing allocation")
	}

	switch alloc.Kind {
	case ilvalue.AllocObject:
		if key.Kind != ilvalue.KindString {
			return ilvalue.Undefined(), nil
		}
		for _, p := range alloc.Properties {
			if p.Key == key.String {
				return p.Value, nil
			}
		}
		return ilvalue.Undefined(), nil

	case ilvalue.AllocArray:
		if key.Kind == ilvalue.KindString && key.String == vm.lengthName {
			return ilvalue.Number(float64(len(alloc.Elements))), nil
		}
		if key.Kind != ilvalue.KindNumber {
			return ilvalue.Undefined(), nil
		}
		idx := int(key.Number)
		if idx < 0 || idx >= len(alloc.Elements) || float64(idx) != key.Number {
			return ilvalue.Undefined(), nil
		}
		return alloc.Elements[idx], nil

	default:
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "property access on a non-object allocation kind %d", alloc.Kind)
	}
}

// setProperty implements ObjectSet: it assigns an object's named
// property (appending a new one if absent) or an array's indexed
// element (growing the backing slice, filling any gap with undefined).
func (vm *VM) setProperty(obj, key, value ilvalue.Value) error {
	if obj.Kind != ilvalue.KindReference {
		return errf(diag.ILOperandMismatch, "property assignment on a non-reference value of kind %s", obj.Kind)
	}
	alloc := vm.allocs.Get(obj.Ref)
	if alloc == nil {
		return errf(diag.ILOperandMismatch, "internal: property assignment on a missing allocation")
	}

	switch alloc.Kind {
	case ilvalue.AllocObject:
		if key.Kind != ilvalue.KindString {
			return errf(diag.ILOperandMismatch, "object property key must be a string, got %s", key.Kind)
		}
		for i := range alloc.Properties {
			if alloc.Properties[i].Key == key.String {
				alloc.Properties[i].Value = value
				return nil
			}
		}
		alloc.Properties = append(alloc.Properties, ilvalue.Property{Key: key.String, Value: value})
		return nil

	case ilvalue.AllocArray:
		if key.Kind != ilvalue.KindNumber || key.Number < 0 {
			return errf(diag.ILOperandMismatch, "array index must be a non-negative number, got %s", key.Kind)
		}
		idx := int(key.Number)
		if idx >= len(alloc.Elements) {
			grown := make([]ilvalue.Value, idx+1)
			copy(grown, alloc.Elements)
			alloc.Elements = grown
		}
		alloc.Elements[idx] = value
		return nil

	default:
		return errf(diag.ILOperandMismatch, "property assignment on a non-object allocation kind %d", alloc.Kind)
	}
}
