package hostvm

import (
	"sort"

	"microvium/internal/ilvalue"
	"microvium/internal/snapshot"
	"microvium/internal/source"
)

// engineVersion is the requiredEngineVersion this package stamps into
// every snapshot it produces (spec.md §4.3's header field); there is
// only one engine generation here, so it never varies.
const engineVersion uint16 = 1

// SnapshotInfo pairs the wire-format snapshot.Info that Encode consumes
// with the one piece of bookkeeping that format has no room for: which
// global name each positional slot in Info.Globals belongs to. A device
// image addresses globals purely by position (spec.md §4.3's
// initial-data region), but a live VM addresses them by name
// (OpLoadGlobal/OpStoreGlobal carry a StringID), so Restore needs this
// to rebuild a runnable global table from a decoded image's globals.
type SnapshotInfo struct {
	*snapshot.Info
	GlobalNames []source.StringID
}

// CreateSnapshotInfo collects the VM's live graph into the shape Encode
// consumes (spec.md §6's `vm.createSnapshotInfo() → SnapshotInfo`). It
// always runs a collection pass first: a snapshot should never carry
// garbage the running module can no longer reach.
func (vm *VM) CreateSnapshotInfo() *SnapshotInfo {
	vm.GarbageCollect()

	globals := make([]ilvalue.Value, len(vm.globalOrder))
	names := make([]source.StringID, len(vm.globalOrder))
	for i, name := range vm.globalOrder {
		globals[i] = vm.globals[name]
		names[i] = name
	}

	imports := make([]snapshot.ImportEntry, len(vm.imports))
	for i, id := range vm.imports {
		imports[i] = snapshot.ImportEntry{HostFunctionID: id}
	}

	exportIDs := make([]uint16, 0, len(vm.exports))
	for id := range vm.exports {
		exportIDs = append(exportIDs, id)
	}
	sort.Slice(exportIDs, func(i, j int) bool { return exportIDs[i] < exportIDs[j] })

	exports := make([]snapshot.ExportEntry, len(exportIDs))
	for i, id := range exportIDs {
		exports[i] = snapshot.ExportEntry{ExportID: id, Value: vm.exports[id]}
	}

	// heap.collect (internal/snapshot/heap.go) only walks Globals and
	// Roots, so an allocation reachable solely through an exported value
	// needs to be listed here explicitly or Encode rejects it as
	// "referenced but never collected".
	seen := make(map[ilvalue.AllocationID]bool, len(globals))
	for _, v := range globals {
		if v.Kind == ilvalue.KindReference {
			seen[v.Ref] = true
		}
	}
	var roots []ilvalue.AllocationID
	for _, exp := range exports {
		if exp.Value.Kind == ilvalue.KindReference && !seen[exp.Value.Ref] {
			seen[exp.Value.Ref] = true
			roots = append(roots, exp.Value.Ref)
		}
	}

	return &SnapshotInfo{
		Info: &snapshot.Info{
			RequiredEngineVersion: engineVersion,
			Unit:                  vm.unit,
			Interner:              vm.interner,
			Globals:               globals,
			Allocations:           vm.allocs,
			Roots:                 roots,
			Imports:               imports,
			Exports:               exports,
		},
		GlobalNames: names,
	}
}
