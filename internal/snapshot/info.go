package snapshot

import (
	"fmt"

	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
	"microvium/internal/source"
)

// Info is the host VM's live graph handed to Encode (spec.md §6's
// `vm.createSnapshotInfo() → SnapshotInfo`): the compiled functions, the
// module's global slots, and the reachable heap graph, plus the small
// fixed tables a device image also carries.
type Info struct {
	RequiredEngineVersion uint16
	RequiredFeatureFlags  uint32

	Unit     *il.Unit
	Interner *source.Interner

	// Globals is the initial-data region content, in declaration order
	// (spec.md §4.3 step 2: "emit globals into the initial-data region
	// in declaration order").
	Globals []ilvalue.Value

	Allocations *ilvalue.Allocations
	// Roots is every GC root not already reachable by walking Globals
	// (spec.md §4.3 step 1: "walk globals and GC roots").
	Roots []ilvalue.AllocationID

	Imports    []ImportEntry
	Exports    []ExportEntry
	ShortCalls []ShortCallEntry
}

// Result is Encode's output: the finished, CRC-stamped image bytes.
type Result struct {
	Bytes []byte
}

// Error is an InvalidBytecode/InternalCompileError-class failure,
// carrying the diag.Code the error-handling design (spec.md §7) assigns
// to it so a caller that threads diagnostics through diag.Reporter can
// report it uniformly with every other compiler error.
type Error struct {
	Code diag.Code
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg) }

func errf(code diag.Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
