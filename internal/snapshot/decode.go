package snapshot

import (
	"microvium/internal/diag"
)

// Component is one node of the region-stack tree spec.md §4.3's decode
// algorithm builds: a contiguous byte range at a known file offset, with
// an optional logical address (well-known header regions have none —
// they're addressed by table index, not by Addr) and nested children.
// Decode nests one level only: the header, code, string table and the
// six other regions are all direct children of the root, and neither the
// header nor any region has children of its own.
type Component struct {
	Name          string
	Offset        int
	Size          int
	LogicalAddr   Addr
	HasLogicalAddr bool
	Overlaps      bool
	Children      []*Component
}

// Image is the result of a structural Decode: the validated header
// fields plus the component tree, and the global variable slots decoded
// to the same high-level representation Encode's Info accepts.
type Image struct {
	BytecodeVersion       uint8
	RequiredEngineVersion uint16
	RequiredFeatureFlags  uint32
	GlobalVariableCount   uint16

	Root    *Component
	Globals []DecodedGlobal
}

// DecodedGlobal is one initial-data slot, classified per spec.md §4.3
// decode step 3: inline integer, well-known constant, or a reference
// into one of the three tagged regions.
type DecodedGlobal struct {
	Addr Addr
	Kind GlobalKind
}

type GlobalKind int

const (
	GlobalInlineInt GlobalKind = iota
	GlobalWellKnown
	GlobalHeapRef
	GlobalDataRef
	GlobalRomRef
)

func classify(a Addr) GlobalKind {
	switch a {
	case wellKnownUndefined, wellKnownNull, wellKnownTrue, wellKnownFalse, wellKnownNaN:
		return GlobalWellKnown
	}
	switch a.tag() {
	case tagDirect:
		return GlobalInlineInt
	case tagHeap:
		return GlobalHeapRef
	case tagData:
		return GlobalDataRef
	default:
		return GlobalRomRef
	}
}

// Decode validates an image and builds its structural component tree
// (spec.md §4.3's four decode steps). It does not reconstruct function
// bytecode back into il.Operations — a live VM (internal/hostvm) walks
// the raw code bytes directly when it needs to execute them; Decode's
// job is inspection and restoration bookkeeping, not execution.
func Decode(data []byte) (*Image, error) {
	if len(data) < fixedHeaderSize {
		return nil, errf(diag.BytecodeSizeMismatch, "image is %d bytes, smaller than the %d-byte fixed header", len(data), fixedHeaderSize)
	}

	headerSize := int(data[OffHeaderSize])
	if headerSize != HeaderSize {
		return nil, errf(diag.BytecodeHeaderMismatch, "headerSize is %d, expected %d", headerSize, HeaderSize)
	}
	if len(data) < HeaderSize {
		return nil, errf(diag.BytecodeSizeMismatch, "image is %d bytes, smaller than its own %d-byte header", len(data), HeaderSize)
	}

	bytecodeSize := int(readU16(data[OffBytecodeSize:]))
	if bytecodeSize != len(data) {
		return nil, errf(diag.BytecodeSizeMismatch, "bytecodeSize field says %d, file is %d bytes", bytecodeSize, len(data))
	}

	version := data[OffBytecodeVersion]
	if version != BytecodeVersion {
		return nil, errf(diag.BytecodeVersionMismatch, "bytecodeVersion is %d, this decoder only accepts %d", version, BytecodeVersion)
	}

	expectedCRC := readU16(data[OffExpectedCRC:])
	actualCRC := CRC16CCITT(data[crcCoverageStart:])
	if actualCRC != expectedCRC {
		return nil, errf(diag.BytecodeCRCMismatch, "CRC field is 0x%04X, computed 0x%04X over bytes [%d, %d)", expectedCRC, actualCRC, crcCoverageStart, len(data))
	}

	img := &Image{
		BytecodeVersion:       version,
		RequiredEngineVersion: readU16(data[OffRequiredEngineVersion:]),
		RequiredFeatureFlags:  readU32(data[OffRequiredFeatureFlags:]),
		GlobalVariableCount:   readU16(data[OffGlobalVariableCount:]),
	}

	root, err := buildComponentTree(data)
	if err != nil {
		return nil, err
	}
	img.Root = root

	dataRegion := findChild(root, RegionInitialData.String())
	globals := make([]DecodedGlobal, 0, img.GlobalVariableCount)
	if dataRegion != nil {
		for off := 0; off+2 <= dataRegion.Size; off += 2 {
			a := Addr(readU16(data[dataRegion.Offset+off:]))
			globals = append(globals, DecodedGlobal{Addr: a, Kind: classify(a)})
		}
	}
	img.Globals = globals

	return img, nil
}

// buildComponentTree implements decode step 2: parse the region table
// into root children for the fixed-size header, the code blob and the
// seven named regions, in that order, with overlapping ranges flagged.
// Children are not reordered by offset, and gaps between them get no
// filler component.
func buildComponentTree(data []byte) (*Component, error) {
	root := &Component{Name: "image", Offset: 0, Size: len(data)}

	header := &Component{Name: "header", Offset: 0, Size: HeaderSize}
	root.Children = append(root.Children, header)

	code := &Component{Name: "code", Offset: HeaderSize}
	strTable := &Component{Name: RegionStringTable.String()}
	if off := int(readU16(data[regionOffset(RegionStringTable):])); off >= HeaderSize {
		code.Size = off - HeaderSize
		strTable.Offset = off
		strTable.Size = int(readU16(data[regionOffset(RegionStringTable)+2:]))
	}
	root.Children = append(root.Children, code, strTable)

	var regions []*Component
	for _, r := range allRegions {
		if r == RegionStringTable {
			continue
		}
		off := int(readU16(data[regionOffset(r):]))
		size := int(readU16(data[regionOffset(r)+2:]))
		regions = append(regions, &Component{Name: r.String(), Offset: off, Size: size})
	}
	root.Children = append(root.Children, regions...)

	flagOverlaps(root.Children)

	return root, nil
}

// flagOverlaps orders a copy of a component's direct children by file
// offset and marks any whose byte range overlaps its predecessor's; the
// children slice itself keeps its order, and gaps are not marked.
func flagOverlaps(children []*Component) {
	sorted := append([]*Component(nil), children...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Offset > sorted[j].Offset; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		if sorted[i].Offset < prev.Offset+prev.Size {
			sorted[i].Overlaps = true
		}
	}
}

func findChild(c *Component, name string) *Component {
	for _, ch := range c.Children {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}
