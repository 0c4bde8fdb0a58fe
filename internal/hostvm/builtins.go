package hostvm

import (
	"fmt"

	"fortio.org/safecast"

	"microvium/internal/diag"
	"microvium/internal/ilvalue"
)

// builtinPrint backs the print(x) global every VM binds automatically,
// satisfying spec.md §8's scenarios that check a program's printed
// output. It writes through vm.out, which SetOutput can redirect to a
// buffer for tests.
func builtinPrint(vm *VM, _ ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error) {
	var arg ilvalue.Value
	if len(args) > 0 {
		arg = args[0]
	}
	s, err := vm.toDisplayString(arg)
	if err != nil {
		return ilvalue.Undefined(), err
	}
	fmt.Fprintln(vm.out, s)
	return ilvalue.Undefined(), nil
}

// builtinVMExport backs the free-standing vmExport(id, value) global
// spec.md §8 scenario 1's `vmExport(0, () => 42);` calls directly,
// forwarding to VM.ExportValue.
func builtinVMExport(vm *VM, _ ilvalue.Value, args []ilvalue.Value) (ilvalue.Value, error) {
	if len(args) < 2 {
		return ilvalue.Undefined(), errf(diag.HostBadImportMap, "vmExport expects 2 arguments, got %d", len(args))
	}
	id := args[0]
	if id.Kind != ilvalue.KindNumber {
		return ilvalue.Undefined(), errf(diag.HostBadImportMap, "vmExport's first argument must be a number, got %s", id.Kind)
	}
	exportID, err := safecast.Conv[uint16](int64(id.Number))
	if err != nil {
		return ilvalue.Undefined(), errf(diag.HostBadImportMap, "export id %v does not fit in 16 bits: %v", id.Number, err)
	}
	vm.ExportValue(exportID, args[1])
	return ilvalue.Undefined(), nil
}
