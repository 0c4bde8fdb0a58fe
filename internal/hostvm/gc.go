package hostvm

import "microvium/internal/ilvalue"

// GarbageCollect runs a mark-sweep pass over every allocation reachable
// from the VM's roots — bound globals, exported values, any
// still-executing call frame, and the two allocation caches the VM
// itself holds (funcAllocs, hostFuncAllocs) — then compacts the arena
// and fixes up every surviving reference (spec.md §6
// "vm.garbageCollect"). ilvalue.Allocations.Sweep only renumbers the
// allocations it keeps; rewriting every Value.Ref that pointed at an old
// id is this package's job.
func (vm *VM) GarbageCollect() {
	all := vm.allocs.All()
	for i := range all {
		all[i].Marked = false
	}

	for _, v := range vm.globals {
		vm.markValue(v)
	}
	for _, v := range vm.exports {
		vm.markValue(v)
	}
	for _, fr := range vm.stack {
		for _, v := range fr.operand {
			vm.markValue(v)
		}
		for _, v := range fr.locals {
			vm.markValue(v)
		}
		for _, v := range fr.args {
			vm.markValue(v)
		}
		for _, id := range fr.scopeChain {
			vm.markAlloc(id)
		}
	}
	for _, id := range vm.funcAllocs {
		vm.markAlloc(id)
	}
	for _, id := range vm.hostFuncAllocs {
		vm.markAlloc(id)
	}

	remap := make(map[ilvalue.AllocationID]ilvalue.AllocationID, vm.allocs.Len())
	vm.allocs.Sweep(func(old, new ilvalue.AllocationID) { remap[old] = new })

	vm.rewriteRoots(remap)
	vm.rewriteAllocationGraph(remap)
}

func (vm *VM) markValue(v ilvalue.Value) {
	if v.Kind == ilvalue.KindReference {
		vm.markAlloc(v.Ref)
	}
}

func (vm *VM) markAlloc(id ilvalue.AllocationID) {
	a := vm.allocs.Get(id)
	if a == nil || a.Marked {
		return
	}
	a.Marked = true
	switch a.Kind {
	case ilvalue.AllocObject:
		for _, p := range a.Properties {
			vm.markValue(p.Value)
		}
	case ilvalue.AllocArray:
		for _, e := range a.Elements {
			vm.markValue(e)
		}
	case ilvalue.AllocClosure:
		for _, c := range a.Captured {
			vm.markValue(c)
		}
	}
}

func (vm *VM) rewriteRoots(remap map[ilvalue.AllocationID]ilvalue.AllocationID) {
	for k, v := range vm.globals {
		vm.globals[k] = rewriteValue(v, remap)
	}
	for k, v := range vm.exports {
		vm.exports[k] = rewriteValue(v, remap)
	}
	for k, id := range vm.funcAllocs {
		if nid, ok := remap[id]; ok {
			vm.funcAllocs[k] = nid
		}
	}
	for k, id := range vm.hostFuncAllocs {
		if nid, ok := remap[id]; ok {
			vm.hostFuncAllocs[k] = nid
		}
	}
	for _, fr := range vm.stack {
		for i, v := range fr.operand {
			fr.operand[i] = rewriteValue(v, remap)
		}
		for i, v := range fr.locals {
			fr.locals[i] = rewriteValue(v, remap)
		}
		for i, v := range fr.args {
			fr.args[i] = rewriteValue(v, remap)
		}
		for i, id := range fr.scopeChain {
			if nid, ok := remap[id]; ok {
				fr.scopeChain[i] = nid
			}
		}
	}
}

// rewriteAllocationGraph fixes up the surviving allocations' own nested
// Values: Sweep renumbers the allocations it keeps but has no way to
// know which of their fields are references that need the same
// treatment.
func (vm *VM) rewriteAllocationGraph(remap map[ilvalue.AllocationID]ilvalue.AllocationID) {
	for _, a := range vm.allocs.All() {
		for i := range a.Properties {
			a.Properties[i].Value = rewriteValue(a.Properties[i].Value, remap)
		}
		for i := range a.Elements {
			a.Elements[i] = rewriteValue(a.Elements[i], remap)
		}
		for i := range a.Captured {
			a.Captured[i] = rewriteValue(a.Captured[i], remap)
		}
	}
}

func rewriteValue(v ilvalue.Value, remap map[ilvalue.AllocationID]ilvalue.AllocationID) ilvalue.Value {
	if v.Kind != ilvalue.KindReference {
		return v
	}
	if nv, ok := remap[v.Ref]; ok {
		v.Ref = nv
	}
	return v
}
