package hostvm

import (
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
)

// evalBinOp dispatches a BinOp by the operator first and the operand
// kinds second, the same shape as the teacher's evalAdd/evalCompare
// family: a handful of operators (+, comparisons, equality) branch on
// Kind before doing any arithmetic, the rest assume numeric operands and
// report a type mismatch otherwise.
func (vm *VM) evalBinOp(op il.BinOp, left, right ilvalue.Value) (ilvalue.Value, error) {
	switch op {
	case il.BinAdd:
		return vm.evalAdd(left, right)
	case il.BinSub:
		return vm.numericBinOp(left, right, func(a, b float64) float64 { return a - b })
	case il.BinMul:
		return vm.numericBinOp(left, right, func(a, b float64) float64 { return a * b })
	case il.BinDiv:
		return vm.numericBinOp(left, right, func(a, b float64) float64 { return a / b })
	case il.BinMod:
		return vm.numericBinOp(left, right, math.Mod)
	case il.BinPow:
		return vm.numericBinOp(left, right, math.Pow)
	case il.BinDivideAndTrunc:
		// spec.md §8's integer-truncation idiom, `(a / b) | 0`'s
		// DIVIDE_AND_TRUNC fast path: truncate toward zero.
		return vm.numericBinOp(left, right, func(a, b float64) float64 { return math.Trunc(a / b) })

	case il.BinEq, il.BinStrictEq:
		eq, err := vm.valuesEqual(left, right)
		if err != nil {
			return ilvalue.Undefined(), err
		}
		return ilvalue.Bool(eq), nil
	case il.BinNotEq, il.BinStrictNotEq:
		eq, err := vm.valuesEqual(left, right)
		if err != nil {
			return ilvalue.Undefined(), err
		}
		return ilvalue.Bool(!eq), nil

	case il.BinLt:
		return vm.compare(left, right, func(c int) bool { return c < 0 })
	case il.BinLtEq:
		return vm.compare(left, right, func(c int) bool { return c <= 0 })
	case il.BinGt:
		return vm.compare(left, right, func(c int) bool { return c > 0 })
	case il.BinGtEq:
		return vm.compare(left, right, func(c int) bool { return c >= 0 })

	case il.BinBitAnd:
		return vm.int32BinOp(left, right, func(a, b int32) int32 { return a & b })
	case il.BinBitOr:
		return vm.int32BinOp(left, right, func(a, b int32) int32 { return a | b })
	case il.BinBitXor:
		return vm.int32BinOp(left, right, func(a, b int32) int32 { return a ^ b })
	case il.BinShl:
		return vm.int32BinOp(left, right, func(a, b int32) int32 { return a << (uint32(b) & 31) })
	case il.BinShr:
		return vm.int32BinOp(left, right, func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	case il.BinUShr:
		if left.Kind != ilvalue.KindNumber || right.Kind != ilvalue.KindNumber {
			return ilvalue.Undefined(), vm.typeMismatch(">>>", left, right)
		}
		return ilvalue.Number(float64(toUint32(left.Number) >> (toUint32(right.Number) & 31))), nil

	case il.BinInstanceof, il.BinIn:
		// CompReservedOperator rejects `instanceof`/`==`/`!=` at compile
		// time (scope/resolve.go), so a valid compiled module never emits
		// these; kept for Validate's completeness, not for live scripts.
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: BinOp %d reached the interpreter, but the compiler never emits it", op)

	default:
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: unhandled BinOp %d", op)
	}
}

func (vm *VM) evalUnaryOp(op il.UnaryOp, v ilvalue.Value) (ilvalue.Value, error) {
	switch op {
	case il.UnaryNeg:
		if v.Kind != ilvalue.KindNumber {
			return ilvalue.Undefined(), vm.typeMismatchUnary("-", v)
		}
		return ilvalue.Number(-v.Number), nil
	case il.UnaryPos:
		if v.Kind != ilvalue.KindNumber {
			return ilvalue.Undefined(), vm.typeMismatchUnary("+", v)
		}
		return v, nil
	case il.UnaryNot:
		return ilvalue.Bool(!v.IsTruthy()), nil
	case il.UnaryBitNot:
		if v.Kind != ilvalue.KindNumber {
			return ilvalue.Undefined(), vm.typeMismatchUnary("~", v)
		}
		return ilvalue.Number(float64(^toInt32(v.Number))), nil
	default:
		return ilvalue.Undefined(), errf(diag.ILOperandMismatch, "internal: unhandled UnaryOp %d", op)
	}
}

func (vm *VM) evalAdd(left, right ilvalue.Value) (ilvalue.Value, error) {
	if left.Kind == ilvalue.KindString || right.Kind == ilvalue.KindString {
		ls, err := vm.toDisplayString(left)
		if err != nil {
			return ilvalue.Undefined(), err
		}
		rs, err := vm.toDisplayString(right)
		if err != nil {
			return ilvalue.Undefined(), err
		}
		// NFC-normalize the concatenation result so two strings composed
		// with differently-ordered combining marks intern to the same
		// StringID once joined, the way the teacher's string intrinsics
		// normalize decoded text before measuring or slicing it.
		return ilvalue.Str(vm.interner.Intern(norm.NFC.String(ls + rs))), nil
	}
	return vm.numericBinOp(left, right, func(a, b float64) float64 { return a + b })
}

func (vm *VM) numericBinOp(left, right ilvalue.Value, f func(a, b float64) float64) (ilvalue.Value, error) {
	if left.Kind != ilvalue.KindNumber || right.Kind != ilvalue.KindNumber {
		return ilvalue.Undefined(), vm.typeMismatch("arithmetic", left, right)
	}
	return ilvalue.Number(f(left.Number, right.Number)), nil
}

func (vm *VM) int32BinOp(left, right ilvalue.Value, f func(a, b int32) int32) (ilvalue.Value, error) {
	if left.Kind != ilvalue.KindNumber || right.Kind != ilvalue.KindNumber {
		return ilvalue.Undefined(), vm.typeMismatch("bitwise", left, right)
	}
	return ilvalue.Number(float64(f(toInt32(left.Number), toInt32(right.Number)))), nil
}

// compare implements the four relational operators over either two
// numbers or two strings; spec.md's subset never mixes the two in a
// single comparison by design (no implicit numeric/string coercion).
func (vm *VM) compare(left, right ilvalue.Value, accept func(int) bool) (ilvalue.Value, error) {
	switch {
	case left.Kind == ilvalue.KindNumber && right.Kind == ilvalue.KindNumber:
		if math.IsNaN(left.Number) || math.IsNaN(right.Number) {
			return ilvalue.Bool(false), nil
		}
		c := 0
		switch {
		case left.Number < right.Number:
			c = -1
		case left.Number > right.Number:
			c = 1
		}
		return ilvalue.Bool(accept(c)), nil
	case left.Kind == ilvalue.KindString && right.Kind == ilvalue.KindString:
		ls, rs := vm.interner.MustLookup(left.String), vm.interner.MustLookup(right.String)
		c := 0
		switch {
		case ls < rs:
			c = -1
		case ls > rs:
			c = 1
		}
		return ilvalue.Bool(accept(c)), nil
	default:
		return ilvalue.Undefined(), vm.typeMismatch("comparison", left, right)
	}
}

// valuesEqual implements both == and === as identity/structural equality
// over same-kind operands (this subset draws no distinction between the
// two: CompReservedOperator already rejects loose == at compile time,
// so only === reaches here in a real compiled module). Reference
// equality is allocation identity, matching JS object equality.
func (vm *VM) valuesEqual(left, right ilvalue.Value) (bool, error) {
	if left.Kind != right.Kind {
		return false, nil
	}
	switch left.Kind {
	case ilvalue.KindUndefined, ilvalue.KindNull:
		return true, nil
	case ilvalue.KindBool:
		return left.Bool == right.Bool, nil
	case ilvalue.KindNumber:
		return left.Number == right.Number, nil
	case ilvalue.KindString:
		return left.String == right.String, nil
	case ilvalue.KindReference:
		return left.Ref == right.Ref, nil
	default:
		return false, errf(diag.ILOperandMismatch, "internal: equality over unhandled kind %s", left.Kind)
	}
}

func (vm *VM) typeMismatch(opName string, left, right ilvalue.Value) error {
	return errf(diag.ILOperandMismatch, "%s between %s and %s", opName, left.Kind, right.Kind)
}

func (vm *VM) typeMismatchUnary(opName string, v ilvalue.Value) error {
	return errf(diag.ILOperandMismatch, "unary %s on a %s", opName, v.Kind)
}

// toDisplayString renders a value the way print() and string
// concatenation need to: JS-ish, but only as far as this subset's value
// kinds go (no user-defined toString).
func (vm *VM) toDisplayString(v ilvalue.Value) (string, error) {
	switch v.Kind {
	case ilvalue.KindUndefined:
		return "undefined", nil
	case ilvalue.KindNull:
		return "null", nil
	case ilvalue.KindBool:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case ilvalue.KindNumber:
		return formatNumber(v.Number), nil
	case ilvalue.KindString:
		return vm.interner.MustLookup(v.String), nil
	case ilvalue.KindReference:
		alloc := vm.allocs.Get(v.Ref)
		if alloc == nil {
			return "", errf(diag.ILOperandMismatch, "internal: display of a missing allocation")
		}
		switch alloc.Kind {
		case ilvalue.AllocArray:
			return "[object Array]", nil
		case ilvalue.AllocFunction, ilvalue.AllocClosure, ilvalue.AllocHostFunction:
			return "[object Function]", nil
		default:
			return "[object Object]", nil
		}
	default:
		return "", errf(diag.ILOperandMismatch, "internal: display of unhandled kind %s", v.Kind)
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func toInt32(n float64) int32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return int32(int64(math.Trunc(n)))
}

func toUint32(n float64) uint32 { return uint32(toInt32(n)) }
