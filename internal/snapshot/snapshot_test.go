package snapshot_test

import (
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
	"microvium/internal/lexer"
	"microvium/internal/parser"
	"microvium/internal/scope"
	"microvium/internal/snapshot"
	"microvium/internal/source"
)

// compileTestInput mirrors internal/il/il_test.go's full-pipeline helper:
// every snapshot property only shows up once a real compiled Unit and a
// real interner exist to draw StringIDs and Operations from.
func compileTestInput(t *testing.T, input string) (*il.Unit, *ast.Builder, error) {
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

	model := scope.Resolve(result.Program, arenas, reporter)
	scope.AssignSlots(model, arenas.StringsInterner)

	unit, err := il.Compile(result.Program, arenas, model, reporter)
	return unit, arenas, err
}

func buildInfo(t *testing.T, src string, wire func(*snapshot.Info, *ast.Builder)) *snapshot.Info {
	t.Helper()
	unit, arenas, err := compileTestInput(t, src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	info := &snapshot.Info{
		RequiredEngineVersion: 1,
		Unit:                  unit,
		Interner:              arenas.StringsInterner,
		Allocations:           ilvalue.NewAllocations(0),
	}
	if wire != nil {
		wire(info, arenas)
	}
	return info
}

func TestEncodeProducesACRCValidatingImage(t *testing.T) {
	info := buildInfo(t, `var x = 1 + 2;`, nil)

	result, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(result.Bytes) < snapshot.HeaderSize {
		t.Fatalf("image is %d bytes, shorter than the fixed header", len(result.Bytes))
	}

	img, err := snapshot.Decode(result.Bytes)
	if err != nil {
		t.Fatalf("Decode of freshly encoded bytes should validate: %v", err)
	}
	if img.BytecodeVersion != snapshot.BytecodeVersion {
		t.Errorf("BytecodeVersion = %d, want %d", img.BytecodeVersion, snapshot.BytecodeVersion)
	}
	if img.RequiredEngineVersion != 1 {
		t.Errorf("RequiredEngineVersion = %d, want 1", img.RequiredEngineVersion)
	}
}

func TestEncodeTwiceProducesIdenticalBytes(t *testing.T) {
	info := buildInfo(t, `var x = 1; var y = "hello";`, func(info *snapshot.Info, arenas *ast.Builder) {
		info.Globals = []ilvalue.Value{
			ilvalue.Number(1),
			ilvalue.Str(arenas.StringsInterner.Intern("hello")),
		}
	})

	first, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("first Encode: %v", err)
	}
	second, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("second Encode: %v", err)
	}
	if len(first.Bytes) != len(second.Bytes) {
		t.Fatalf("re-encoding the same Info produced different lengths: %d vs %d", len(first.Bytes), len(second.Bytes))
	}
	for i := range first.Bytes {
		if first.Bytes[i] != second.Bytes[i] {
			t.Fatalf("re-encoding the same Info diverged at byte %d: %#x vs %#x", i, first.Bytes[i], second.Bytes[i])
		}
	}
}

func TestDecodeRejectsATamperedCRC(t *testing.T) {
	info := buildInfo(t, `var x = 1;`, nil)
	result, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tampered := append([]byte(nil), result.Bytes...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = snapshot.Decode(tampered)
	if err == nil {
		t.Fatal("Decode accepted an image whose CRC no longer matches its bytes")
	}
	var snapErr *snapshot.Error
	if !asSnapshotError(err, &snapErr) {
		t.Fatalf("expected *snapshot.Error, got %T: %v", err, err)
	}
	if snapErr.Code != diag.BytecodeCRCMismatch {
		t.Errorf("Code = %v, want BytecodeCRCMismatch", snapErr.Code)
	}
}

func TestDecodeRejectsATruncatedImage(t *testing.T) {
	info := buildInfo(t, `var x = 1;`, nil)
	result, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = snapshot.Decode(result.Bytes[:snapshot.HeaderSize-1])
	if err == nil {
		t.Fatal("Decode accepted an image shorter than its own header")
	}
}

func TestEncodeGlobalReferencingAHeapObjectRoundTrips(t *testing.T) {
	info := buildInfo(t, `var obj = {};`, func(info *snapshot.Info, arenas *ast.Builder) {
		id := info.Allocations.New(ilvalue.AllocObject)
		alloc := info.Allocations.Get(id)
		alloc.Properties = []ilvalue.Property{
			{Key: arenas.StringsInterner.Intern("count"), Value: ilvalue.Number(3)},
		}
		info.Globals = []ilvalue.Value{ilvalue.Reference(id)}
		info.Roots = []ilvalue.AllocationID{id}
	})

	result, err := snapshot.Encode(info)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := snapshot.Decode(result.Bytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(img.Globals) != 1 {
		t.Fatalf("Globals = %d entries, want 1", len(img.Globals))
	}
	if img.Globals[0].Kind != snapshot.GlobalHeapRef {
		t.Errorf("Globals[0].Kind = %v, want GlobalHeapRef", img.Globals[0].Kind)
	}
}

func TestEncodeRejectsAnOversizedAllocation(t *testing.T) {
	info := buildInfo(t, `var arr = [];`, func(info *snapshot.Info, arenas *ast.Builder) {
		id := info.Allocations.New(ilvalue.AllocArray)
		alloc := info.Allocations.Get(id)
		alloc.Elements = make([]ilvalue.Value, 3000) // 4 + 3000*2 bytes > 4095
		for i := range alloc.Elements {
			alloc.Elements[i] = ilvalue.Number(0)
		}
		info.Globals = []ilvalue.Value{ilvalue.Reference(id)}
		info.Roots = []ilvalue.AllocationID{id}
	})

	_, err := snapshot.Encode(info)
	if err == nil {
		t.Fatal("Encode accepted an allocation exceeding the 4095-byte limit")
	}
	var snapErr *snapshot.Error
	if !asSnapshotError(err, &snapErr) {
		t.Fatalf("expected *snapshot.Error, got %T: %v", err, err)
	}
	if snapErr.Code != diag.BytecodeAllocationTooLarge {
		t.Errorf("Code = %v, want BytecodeAllocationTooLarge", snapErr.Code)
	}
}

func TestCRC16CCITTMatchesKnownVector(t *testing.T) {
	// "123456789" -> 0x29B1 is the canonical CRC-16/CCITT-FALSE test vector,
	// which uses the same poly 0x1021 and init 0xFFFF spec.md §4.3 specifies.
	got := snapshot.CRC16CCITT([]byte("123456789"))
	if got != 0x29B1 {
		t.Errorf("CRC16CCITT(%q) = %#04x, want 0x29b1", "123456789", got)
	}
}

func asSnapshotError(err error, target **snapshot.Error) bool {
	se, ok := err.(*snapshot.Error)
	if !ok {
		return false
	}
	*target = se
	return true
}
