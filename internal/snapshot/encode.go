package snapshot

import (
	"fortio.org/safecast"

	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
)

// Encode implements spec.md §4.3's encoding algorithm against a host
// VM's live graph: walk globals and GC roots breadth-first, lay out the
// string table and function bytecode, encode every region, and
// back-patch bytecodeSize/expectedCRC once the image's final length is
// known.
func Encode(info *Info) (*Result, error) {
	if info.Unit == nil {
		return nil, errf(diag.ILOperandMismatch, "internal: snapshot.Info has no compiled unit")
	}

	strings := newStringTable(info.Interner)
	code := &codeAssembler{unit: info.Unit, strings: strings}
	heap := newHeapLayout(info.Allocations, strings, code)

	// Step 1: walk globals and GC roots.
	heap.collect(info.Globals, info.Roots)

	// Step 4 (string collection, run early since both code and heap
	// bodies need every string's final offset before they can emit).
	collectOperationStrings(info.Unit, strings)
	heap.collectStrings(info.Globals)
	for _, exp := range info.Exports {
		collectValueStrings(strings, exp.Value)
	}
	stringBytes, err := strings.layout()
	if err != nil {
		return nil, err
	}

	// Step 3 (code is emitted as the bytecode-resident region; globals
	// and allocations follow spec.md §4.3 step 2/3 below).
	blockOffsets, codeSize, err := code.sizeFunctions()
	if err != nil {
		return nil, err
	}
	codeBytes, err := code.emit(blockOffsets, codeSize)
	if err != nil {
		return nil, err
	}
	romSize := codeSize + len(stringBytes)
	if romSize > valMask {
		return nil, errf(diag.BytecodeSectionOverflow, "code + string table is %d bytes, exceeding the 16 KiB ROM address space", romSize)
	}

	heapSize, err := heap.sizeAndOffset()
	if err != nil {
		return nil, err
	}

	// Step 2: emit globals into the initial-data region in declaration order.
	dataBytes := make([]byte, 0, len(info.Globals)*2)
	for _, g := range info.Globals {
		addr, err := heap.encodeValue(g)
		if err != nil {
			return nil, err
		}
		dataBytes = appendU16(dataBytes, uint16(addr))
	}

	heapBytes := make([]byte, 0, heapSize)
	for _, id := range heap.order {
		a := info.Allocations.Get(id)
		if a == nil {
			return nil, errf(diag.ILOperandMismatch, "internal: allocation %d missing from arena", id)
		}
		enc, err := heap.encodeAllocation(a)
		if err != nil {
			return nil, err
		}
		heapBytes = append(heapBytes, enc...)
	}

	gcRootBytes := make([]byte, 0, len(info.Roots)*2)
	for _, id := range info.Roots {
		off, ok := heap.offset[id]
		if !ok {
			continue // not reachable; nothing to mark
		}
		addr, err := heapAddrChecked(off)
		if err != nil {
			return nil, err
		}
		gcRootBytes = appendU16(gcRootBytes, uint16(addr))
	}

	importBytes := make([]byte, 0, len(info.Imports)*2)
	for _, imp := range info.Imports {
		importBytes = appendU16(importBytes, imp.HostFunctionID)
	}

	exportBytes := make([]byte, 0, len(info.Exports)*4)
	for _, exp := range info.Exports {
		addr, err := heap.encodeValue(exp.Value)
		if err != nil {
			return nil, err
		}
		exportBytes = appendU16(exportBytes, exp.ExportID)
		exportBytes = appendU16(exportBytes, uint16(addr))
	}

	shortCallBytes := make([]byte, 0, len(info.ShortCalls)*3)
	for _, sc := range info.ShortCalls {
		if int(sc.Function) >= len(code.funcBase) {
			return nil, errf(diag.ILOperandMismatch, "internal: short-call table references function %d, which does not exist", sc.Function)
		}
		target, err := u16Checked(code.funcBase[sc.Function])
		if err != nil {
			return nil, err
		}
		shortCallBytes = appendU16(shortCallBytes, target)
		shortCallBytes = append(shortCallBytes, sc.ArgC)
	}

	globalCount, err := safecast.Conv[uint16](len(info.Globals))
	if err != nil {
		return nil, errf(diag.BytecodeImageTooLarge, "too many globals: %v", err)
	}

	return assembleImage(info, globalCount, codeBytes, stringBytes, dataBytes, heapBytes, gcRootBytes, importBytes, exportBytes, shortCallBytes)
}

// collectOperationStrings walks every function's operations for the two
// operand shapes that carry a string: OpLiteral of Kind String, and the
// global-name operand of OpLoadGlobal/OpStoreGlobal.
func collectOperationStrings(unit *il.Unit, strings *stringTable) {
	for i := range unit.Funcs {
		for _, b := range unit.Funcs[i].Blocks {
			for _, op := range b.Ops {
				switch op.Code {
				case il.OpLiteral:
					if op.Literal.Kind == ilvalue.KindString {
						strings.add(op.Literal.String)
					}
				case il.OpLoadGlobal, il.OpStoreGlobal:
					strings.add(op.Name)
				}
			}
		}
	}
}

// assembleImage lays out the header and every region back-to-back, then
// back-patches bytecodeSize and expectedCRC (spec.md §4.3 step 5).
func assembleImage(info *Info, globalCount uint16, codeBytes, stringBytes, dataBytes, heapBytes, gcRootBytes, importBytes, exportBytes, shortCallBytes []byte) (*Result, error) {
	// Physical layout: header, code, stringTable (the two ROM-tagged
	// sub-blobs, contiguous so they can share one implicit base), then
	// the remaining six regions in spec.md §4.3's listed order.
	img := make([]byte, HeaderSize)

	offsets := make(map[Region]int, regionCount)
	sizes := make(map[Region]int, regionCount)

	place := func(r Region, data []byte) {
		offsets[r] = len(img)
		sizes[r] = len(data)
		img = append(img, data...)
	}

	img = append(img, codeBytes...)
	place(RegionStringTable, stringBytes)
	place(RegionInitialData, dataBytes)
	place(RegionInitialHeap, heapBytes)
	place(RegionGCRoots, gcRootBytes)
	place(RegionImportTable, importBytes)
	place(RegionExportTable, exportBytes)
	place(RegionShortCallTable, shortCallBytes)

	bytecodeSize, err := safecast.Conv[uint16](len(img))
	if err != nil {
		return nil, errf(diag.BytecodeImageTooLarge, "image is %d bytes, exceeding the 64 KiB limit: %v", len(img), err)
	}

	putU8(img, OffBytecodeVersion, BytecodeVersion)
	putU8(img, OffHeaderSize, byte(HeaderSize))
	putU16At(img, OffBytecodeSize, bytecodeSize)
	putU16At(img, OffRequiredEngineVersion, info.RequiredEngineVersion)
	putU32At(img, OffRequiredFeatureFlags, info.RequiredFeatureFlags)
	putU16At(img, OffGlobalVariableCount, globalCount)

	for _, r := range allRegions {
		off, err := safecast.Conv[uint16](offsets[r])
		if err != nil {
			return nil, errf(diag.BytecodeImageTooLarge, "region %s offset overflow: %v", r, err)
		}
		sz, err := safecast.Conv[uint16](sizes[r])
		if err != nil {
			return nil, errf(diag.BytecodeImageTooLarge, "region %s size overflow: %v", r, err)
		}
		putU16At(img, regionOffset(r), off)
		putU16At(img, regionOffset(r)+2, sz)
	}

	crc := CRC16CCITT(img[crcCoverageStart:])
	putU16At(img, OffExpectedCRC, crc)

	return &Result{Bytes: img}, nil
}

var allRegions = []Region{
	RegionInitialData, RegionInitialHeap, RegionGCRoots,
	RegionImportTable, RegionExportTable, RegionShortCallTable, RegionStringTable,
}

func putU8(buf []byte, off int, v byte) { buf[off] = v }

func putU16At(buf []byte, off int, v uint16) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
}

func putU32At(buf []byte, off int, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}
