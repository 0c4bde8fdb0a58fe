// Package ilvalue holds the shared Value/Allocation data model used by
// both the IL Compiler and the host-side VM (spec.md §3), so the two
// never disagree on what a runtime value looks like.
package ilvalue

import "microvium/internal/source"

// Kind enumerates the small set of value tags spec.md §3 requires:
// numbers, strings, booleans, the two absent-value singletons, and
// heap references.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindReference:
		return "reference"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the value kinds above. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Bool   bool
	Number float64
	String source.StringID // interned, shared with the snapshot string table
	Ref    AllocationID
}

func Undefined() Value                  { return Value{Kind: KindUndefined} }
func Null() Value                       { return Value{Kind: KindNull} }
func Bool(b bool) Value                 { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value            { return Value{Kind: KindNumber, Number: n} }
func Str(id source.StringID) Value      { return Value{Kind: KindString, String: id} }
func Reference(id AllocationID) Value   { return Value{Kind: KindReference, Ref: id} }

func (v Value) IsTruthy() bool {
	switch v.Kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0 && v.Number == v.Number // exclude NaN
	case KindString:
		return true // non-empty check happens where the interned string is available
	default:
		return true
	}
}

// AllocationID identifies a heap-allocated object (array, plain object,
// closure, or function) inside an Allocations arena. 0 is never valid,
// matching the rest of the codebase's 1-based arena convention.
type AllocationID uint32

const NoAllocationID AllocationID = 0

func (id AllocationID) IsValid() bool { return id != NoAllocationID }

// AllocationKind distinguishes the heap object shapes the runtime needs.
type AllocationKind uint8

const (
	AllocInvalid AllocationKind = iota
	AllocObject
	AllocArray
	AllocClosure
	AllocFunction
	AllocNumber       // a boxed float64, for values too wide for a direct integer tag (internal/snapshot)
	AllocHostFunction // FunctionIndex is a HostFunctionId (internal/hostvm), not an il.FuncID
)

// Property is one name/value pair of an AllocObject.
type Property struct {
	Key   source.StringID
	Value Value
}

// Allocation is one heap object. Only the fields relevant to Kind are
// populated.
type Allocation struct {
	ID   AllocationID
	Kind AllocationKind

	Properties []Property // AllocObject
	Elements   []Value    // AllocArray

	// AllocClosure: one reference per closure-scope allocation on the
	// creating frame's scope chain, held by reference rather than copied
	// (spec.md §4.2 "ClosureNew").
	Captured []Value

	// AllocFunction: index into the owning il.Unit's function table.
	FunctionIndex uint32

	// AllocNumber: the boxed payload.
	Number float64

	Marked bool // mark-sweep GC bit, cleared at the start of each collection
}

// Allocations is a 1-based arena of heap objects, mirroring the arena
// pattern used throughout the compiler (internal/scope, internal/ast).
type Allocations struct {
	data []Allocation
}

func NewAllocations(capacity uint32) *Allocations {
	if capacity == 0 {
		capacity = 64
	}
	return &Allocations{data: make([]Allocation, 1, capacity+1)}
}

func (a *Allocations) New(kind AllocationKind) AllocationID {
	id := AllocationID(len(a.data))
	a.data = append(a.data, Allocation{ID: id, Kind: kind})
	return id
}

func (a *Allocations) Get(id AllocationID) *Allocation {
	if !id.IsValid() || int(id) >= len(a.data) {
		return nil
	}
	return &a.data[id]
}

func (a *Allocations) Len() int { return len(a.data) - 1 }

// All returns every live arena slot for GC sweeping.
func (a *Allocations) All() []Allocation { return a.data[1:] }

// Sweep drops every allocation not marked live, compacting the arena and
// returning the number of allocations reclaimed. Callers must not hold
// AllocationIDs across a Sweep unless they were re-resolved by the
// remap function passed to it.
func (a *Allocations) Sweep(remap func(old, new AllocationID)) int {
	kept := make([]Allocation, 1, len(a.data))
	reclaimed := 0
	for i := 1; i < len(a.data); i++ {
		old := a.data[i]
		if !old.Marked {
			reclaimed++
			continue
		}
		old.Marked = false
		newID := AllocationID(len(kept))
		old.ID = newID
		kept = append(kept, old)
		if remap != nil {
			remap(AllocationID(i), newID)
		}
	}
	a.data = kept
	return reclaimed
}
