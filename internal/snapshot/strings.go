package snapshot

import (
	"fortio.org/safecast"

	"microvium/internal/diag"
	"microvium/internal/ilvalue"
	"microvium/internal/source"
)

// stringTable collects every interned string reachable from the graph
// (spec.md §4.3 step 4: "the string table interns all strings reachable
// from the graph") and assigns each a ROM-relative byte offset, encoded
// as {u16 length, bytes}. Strings are immutable in this language subset,
// so they live in ROM alongside function code rather than in the
// GC-managed heap.
type stringTable struct {
	interner *source.Interner
	order    []source.StringID
	offset   map[source.StringID]int // ROM-relative, within the string-table sub-blob
	seen     map[source.StringID]bool
}

func newStringTable(interner *source.Interner) *stringTable {
	return &stringTable{
		interner: interner,
		offset:   make(map[source.StringID]int),
		seen:     make(map[source.StringID]bool),
	}
}

func (st *stringTable) add(id source.StringID) {
	if st.seen[id] {
		return
	}
	st.seen[id] = true
	st.order = append(st.order, id)
}

// layout assigns offsets and returns the encoded bytes. Must be called
// once every add has happened.
func (st *stringTable) layout() ([]byte, error) {
	var buf []byte
	for _, id := range st.order {
		s, _ := st.interner.Lookup(id)
		st.offset[id] = len(buf)
		n, err := safecast.Conv[uint16](len(s))
		if err != nil {
			return nil, errf(diag.BytecodeAllocationTooLarge, "string %q is too long to encode: %v", s, err)
		}
		buf = appendU16(buf, n)
		buf = append(buf, s...)
	}
	return buf, nil
}

// addrOf returns the ROM-relative Addr for a string already added, or an
// error if it wasn't collected before layout (an internal bug: every
// string-valued operand must be walked before assembly).
func (st *stringTable) addrOf(id source.StringID, codeSize int) (Addr, error) {
	off, ok := st.offset[id]
	if !ok {
		return 0, errf(diag.ILOperandMismatch, "internal: string %d referenced but never collected", id)
	}
	romOffset := codeSize + off
	if romOffset > valMask {
		return 0, errf(diag.BytecodeSectionOverflow, "ROM content overflows its 14-bit address space at string offset %d", romOffset)
	}
	return romAddr(romOffset), nil
}

// collectValueStrings adds one value's string to the table when its Kind
// is KindString. It does not follow references: collectStrings drives the
// walk over the allocations gathered by the heap BFS.
func collectValueStrings(st *stringTable, v ilvalue.Value) {
	if v.Kind == ilvalue.KindString {
		st.add(v.String)
	}
}

func appendU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func appendU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func readU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
