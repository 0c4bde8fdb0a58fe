package snapshot

import (
	"math"

	"fortio.org/safecast"

	"microvium/internal/diag"
	"microvium/internal/ilvalue"
)

// typeCode is the 4-bit allocation-kind tag packed into an allocation
// header word's top bits, (typeCode<<12)|size (spec.md §4.3 step 3).
func typeCode(k ilvalue.AllocationKind) uint16 {
	switch k {
	case ilvalue.AllocObject:
		return 1
	case ilvalue.AllocArray:
		return 2
	case ilvalue.AllocClosure:
		return 3
	case ilvalue.AllocFunction:
		return 4
	case ilvalue.AllocNumber:
		return 5
	case ilvalue.AllocHostFunction:
		return 6
	default:
		return 0
	}
}

// maxAllocationBytes is spec.md §4.3's encoder invariant: "no allocation
// may exceed 4095 bytes" — exactly what the header word's 12-bit size
// field can address, so the limit and the packing width are the same
// fact stated twice.
const maxAllocationBytes = 0xFFF

// heapLayout walks the reachable allocation graph breadth-first from
// Globals and Roots (spec.md §4.3 step 1), assigning each a dense
// heap-relative byte offset in visitation order, and encodes every
// allocation's body (step 3).
type heapLayout struct {
	allocs   *ilvalue.Allocations
	strings  *stringTable
	code     *codeAssembler
	order    []ilvalue.AllocationID
	offset   map[ilvalue.AllocationID]int
	visited  map[ilvalue.AllocationID]bool
}

func newHeapLayout(allocs *ilvalue.Allocations, strings *stringTable, code *codeAssembler) *heapLayout {
	return &heapLayout{
		allocs:  allocs,
		strings: strings,
		code:    code,
		offset:  make(map[ilvalue.AllocationID]int),
		visited: make(map[ilvalue.AllocationID]bool),
	}
}

func (h *heapLayout) walkValue(v ilvalue.Value, queue *[]ilvalue.AllocationID) {
	if v.Kind == ilvalue.KindReference && v.Ref.IsValid() && !h.visited[v.Ref] {
		h.visited[v.Ref] = true
		*queue = append(*queue, v.Ref)
	}
}

// collect runs the BFS over roots, returning every reachable allocation
// in visitation order. Call before building the string table, since
// allocation bodies (object keys/values, array elements) can themselves
// reference strings.
func (h *heapLayout) collect(globals []ilvalue.Value, roots []ilvalue.AllocationID) {
	var queue []ilvalue.AllocationID
	for _, v := range globals {
		h.walkValue(v, &queue)
	}
	for _, id := range roots {
		if id.IsValid() && !h.visited[id] {
			h.visited[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		h.order = append(h.order, id)
		a := h.allocs.Get(id)
		if a == nil {
			continue
		}
		switch a.Kind {
		case ilvalue.AllocObject:
			for _, p := range a.Properties {
				h.walkValue(p.Value, &queue)
			}
		case ilvalue.AllocArray:
			for _, e := range a.Elements {
				h.walkValue(e, &queue)
			}
		case ilvalue.AllocClosure:
			for _, c := range a.Captured {
				h.walkValue(c, &queue)
			}
		}
	}
}

// collectStrings walks every value reachable from globals and the
// collected allocations for string content, feeding the shared
// stringTable (spec.md §4.3 step 4).
func (h *heapLayout) collectStrings(globals []ilvalue.Value) {
	for _, v := range globals {
		collectValueStrings(h.strings, v)
	}
	for _, id := range h.order {
		a := h.allocs.Get(id)
		if a == nil {
			continue
		}
		switch a.Kind {
		case ilvalue.AllocObject:
			for _, p := range a.Properties {
				h.strings.add(p.Key)
				collectValueStrings(h.strings, p.Value)
			}
		case ilvalue.AllocArray:
			for _, e := range a.Elements {
				collectValueStrings(h.strings, e)
			}
		case ilvalue.AllocClosure:
			for _, c := range a.Captured {
				collectValueStrings(h.strings, c)
			}
		}
	}
}

// sizeAndOffset computes each allocation's byte size and assigns
// cumulative heap-relative offsets, so encodeAllocation can resolve a
// same-region cross-reference before every allocation's bytes exist yet.
func (h *heapLayout) sizeAndOffset() (total int, err error) {
	cursor := 0
	for _, id := range h.order {
		a := h.allocs.Get(id)
		if a == nil {
			return 0, errf(diag.ILOperandMismatch, "internal: allocation %d missing from arena", id)
		}
		n, err := allocationByteSize(a)
		if err != nil {
			return 0, err
		}
		if n > maxAllocationBytes {
			return 0, errf(diag.BytecodeAllocationTooLarge, "allocation %d is %d bytes, exceeding the %d-byte limit", id, n, maxAllocationBytes)
		}
		h.offset[id] = cursor
		cursor += n
	}
	return cursor, nil
}

func allocationByteSize(a *ilvalue.Allocation) (int, error) {
	switch a.Kind {
	case ilvalue.AllocObject:
		return 2 + len(a.Properties)*4, nil
	case ilvalue.AllocArray:
		return 4 + len(a.Elements)*2, nil
	case ilvalue.AllocClosure:
		return 2 + 2 + len(a.Captured)*2, nil
	case ilvalue.AllocFunction:
		return 2 + 2, nil
	case ilvalue.AllocNumber:
		return 2 + 8, nil
	case ilvalue.AllocHostFunction:
		return 2 + 2, nil
	default:
		return 0, errf(diag.ILOperandMismatch, "internal: allocation kind %v cannot be encoded", a.Kind)
	}
}

// encodeValue resolves a runtime Value to its 16-bit logical address
// representation (spec.md §4.3's decode step 3: "inline integer vs
// well-known constant vs reference").
func (h *heapLayout) encodeValue(v ilvalue.Value) (Addr, error) {
	switch v.Kind {
	case ilvalue.KindUndefined:
		return wellKnownUndefined, nil
	case ilvalue.KindNull:
		return wellKnownNull, nil
	case ilvalue.KindBool:
		if v.Bool {
			return wellKnownTrue, nil
		}
		return wellKnownFalse, nil
	case ilvalue.KindNumber:
		if isSmallNonNegInt(v.Number) {
			return directIntAddr(int(v.Number)), nil
		}
		return 0, errf(diag.ILOperandMismatch, "internal: number %v needs a boxed AllocNumber reference, not an inline Value", v.Number)
	case ilvalue.KindString:
		return h.strings.addrOf(v.String, h.code.codeSize)
	case ilvalue.KindReference:
		off, ok := h.offset[v.Ref]
		if !ok {
			return 0, errf(diag.ILOperandMismatch, "internal: allocation %d referenced but never collected", v.Ref)
		}
		addr, err := heapAddrChecked(off)
		if err != nil {
			return 0, err
		}
		return addr, nil
	default:
		return 0, errf(diag.ILOperandMismatch, "internal: value kind %v cannot be encoded", v.Kind)
	}
}

func isSmallNonNegInt(n float64) bool {
	i := int(n)
	return float64(i) == n && i >= 0 && i <= directIntMax
}

func heapAddrChecked(off int) (Addr, error) {
	if off > valMask {
		return 0, errf(diag.BytecodeSectionOverflow, "initial heap overflows its 14-bit address space at offset %d", off)
	}
	return heapAddr(off), nil
}

// encodeAllocation writes one allocation's header word plus body.
func (h *heapLayout) encodeAllocation(a *ilvalue.Allocation) ([]byte, error) {
	switch a.Kind {
	case ilvalue.AllocObject:
		count, err := safecast.Conv[uint16](len(a.Properties))
		if err != nil {
			return nil, errf(diag.BytecodeAllocationTooLarge, "object has too many properties: %v", err)
		}
		buf := appendU16(nil, typeCode(a.Kind)<<12|count)
		for _, p := range a.Properties {
			keyAddr, err := h.strings.addrOf(p.Key, h.code.codeSize)
			if err != nil {
				return nil, err
			}
			valAddr, err := h.encodeValue(p.Value)
			if err != nil {
				return nil, err
			}
			buf = appendU16(buf, uint16(keyAddr))
			buf = appendU16(buf, uint16(valAddr))
		}
		return buf, nil

	case ilvalue.AllocArray:
		length, err := safecast.Conv[uint16](len(a.Elements))
		if err != nil {
			return nil, errf(diag.BytecodeAllocationTooLarge, "array has too many elements: %v", err)
		}
		buf := appendU16(nil, length)
		buf = appendU16(buf, typeCode(a.Kind)<<12|length)
		for _, e := range a.Elements {
			addr, err := h.encodeValue(e)
			if err != nil {
				return nil, err
			}
			buf = appendU16(buf, uint16(addr))
		}
		return buf, nil

	case ilvalue.AllocClosure:
		count, err := safecast.Conv[uint16](len(a.Captured))
		if err != nil {
			return nil, errf(diag.BytecodeAllocationTooLarge, "closure captures too many values: %v", err)
		}
		buf := appendU16(nil, typeCode(a.Kind)<<12|count)
		fnOff, err := u16Checked(h.code.funcBase[a.FunctionIndex])
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, fnOff)
		for _, c := range a.Captured {
			addr, err := h.encodeValue(c)
			if err != nil {
				return nil, err
			}
			buf = appendU16(buf, uint16(addr))
		}
		return buf, nil

	case ilvalue.AllocFunction:
		buf := appendU16(nil, typeCode(a.Kind)<<12)
		fnOff, err := u16Checked(h.code.funcBase[a.FunctionIndex])
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, fnOff)
		return buf, nil

	case ilvalue.AllocNumber:
		buf := appendU16(nil, typeCode(a.Kind)<<12)
		bits := math.Float64bits(a.Number)
		buf = appendU32(buf, uint32(bits))
		buf = appendU32(buf, uint32(bits>>32))
		return buf, nil

	case ilvalue.AllocHostFunction:
		// Unlike AllocFunction, whose body is an offset into this image's
		// own code region, a host function has no code here at all — its
		// body is just the HostFunctionId the importTable region also
		// carries, so a restored VM's ImportResolver can supply it.
		hostID, err := safecast.Conv[uint16](a.FunctionIndex)
		if err != nil {
			return nil, errf(diag.BytecodeAllocationTooLarge, "host function id %d overflows 16 bits: %v", a.FunctionIndex, err)
		}
		buf := appendU16(nil, typeCode(a.Kind)<<12)
		buf = appendU16(buf, hostID)
		return buf, nil

	default:
		return nil, errf(diag.ILOperandMismatch, "internal: allocation kind %v cannot be encoded", a.Kind)
	}
}
