package il

// OperandKind describes the shape of one operand slot on an Operation,
// so a disassembler (microvium disasm) and the validator can render or
// check it without a type switch per opcode.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandLiteral
	OperandIndex   // local/argument/closure slot index
	OperandName    // interned string: global name, property key, import
	OperandBlock   // a BlockID target
	OperandCount   // argc, element/property count
	OperandBinOp
	OperandUnaryOp
)

// OpCode enumerates every IL instruction spec.md §4.2's lowering table
// requires, plus the handful of stack-management ops (Dup/Pop) the table
// implies but doesn't name individually.
type OpCode uint8

const (
	OpInvalid OpCode = iota

	OpLiteral        // push a constant Value
	OpFunctionLiteral // push a reference to Unit.Funcs[Index], wrapped as an AllocFunction

	OpLoadVar  // LocalSlot read
	OpStoreVar // LocalSlot write; store to a const is a compile error, caught earlier
	OpLoadArg  // ArgumentSlot read; never stored
	OpLoadScoped
	OpStoreScoped
	OpLoadGlobal
	OpStoreGlobal

	OpObjectNew
	OpArrayNew
	OpObjectGet
	OpObjectSet

	OpClosureNew // wrap the current scope + a function literal into a callable

	OpBinOp
	OpUnaryOp

	OpDup
	OpPop
	OpPopN // epilogue teardown of N block-local stack slots

	OpJump
	OpBranch // pop a condition, jump to one of two blocks

	OpScopePush // allocate a fresh closure-scope frame, chained to the caller's
	OpScopePop

	OpCall
	OpReturn
)

// BinOp enumerates the binary operators BinOp operations carry, mirroring
// ast.BinaryOp/ast.LogicalOp plus the two operators the lowering table
// calls out specially (spec.md §4.2's switch-case `===` and the
// integer-truncation idiom's DIVIDE_AND_TRUNC).
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinPow
	BinEq
	BinStrictEq
	BinNotEq
	BinStrictNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinUShr
	BinInstanceof
	BinIn
	BinDivideAndTrunc
)

// UnaryOp enumerates the unary operators UnaryOp operations carry.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota
	UnaryPos
	UnaryNot
	UnaryBitNot
)

// OpcodeInfo is the single source of truth for one opcode's shape and
// stack effect (spec.md §9's "implementers should derive both emit and
// verify from the same table"); Cursor.Emit and Validate both consult it
// so the two can never drift apart.
type OpcodeInfo struct {
	Name         string
	OperandKinds []OperandKind
	// StackDelta computes the net operand-stack change given an
	// operation's operand values (only Count/BinOp-shaped operands are
	// ever consulted; opcodes with a fixed delta ignore the argument).
	StackDelta func(op Operation) int
}

var opcodeTable = map[OpCode]OpcodeInfo{
	OpLiteral:         {"Literal", []OperandKind{OperandLiteral}, fixedDelta(1)},
	OpFunctionLiteral: {"FunctionLiteral", []OperandKind{OperandIndex}, fixedDelta(1)},

	OpLoadVar:    {"LoadVar", []OperandKind{OperandIndex}, fixedDelta(1)},
	OpStoreVar:   {"StoreVar", []OperandKind{OperandIndex}, fixedDelta(0)},
	OpLoadArg:    {"LoadArg", []OperandKind{OperandIndex}, fixedDelta(1)},
	OpLoadScoped: {"LoadScoped", []OperandKind{OperandIndex}, fixedDelta(1)},
	OpStoreScoped: {"StoreScoped", []OperandKind{OperandIndex}, fixedDelta(0)},
	OpLoadGlobal:  {"LoadGlobal", []OperandKind{OperandName}, fixedDelta(1)},
	OpStoreGlobal: {"StoreGlobal", []OperandKind{OperandName}, fixedDelta(0)},

	OpObjectNew: {"ObjectNew", nil, fixedDelta(1)},
	OpArrayNew:  {"ArrayNew", nil, fixedDelta(1)},
	// ObjectGet: pops object + key, pushes value.
	OpObjectGet: {"ObjectGet", nil, fixedDelta(-1)},
	// ObjectSet: pops object + key + value, result of the assignment
	// expression (the written value) remains, net -2.
	OpObjectSet: {"ObjectSet", nil, fixedDelta(-2)},

	// ClosureNew: pops the bare function-value literal, pushes the bound
	// closure value.
	OpClosureNew: {"ClosureNew", []OperandKind{OperandCount}, fixedDelta(0)},

	OpBinOp:   {"BinOp", []OperandKind{OperandBinOp}, fixedDelta(-1)},
	OpUnaryOp: {"UnaryOp", []OperandKind{OperandUnaryOp}, fixedDelta(0)},

	OpDup:  {"Dup", nil, fixedDelta(1)},
	OpPop:  {"Pop", nil, fixedDelta(-1)},
	OpPopN: {"PopN", []OperandKind{OperandCount}, func(op Operation) int { return -int(op.Count) }},

	OpJump:   {"Jump", []OperandKind{OperandBlock}, fixedDelta(0)},
	OpBranch: {"Branch", []OperandKind{OperandBlock, OperandBlock}, fixedDelta(-1)},

	OpScopePush: {"ScopePush", []OperandKind{OperandCount}, fixedDelta(0)},
	OpScopePop:  {"ScopePop", nil, fixedDelta(0)},

	// Call: pops callee + this + argc arguments, pushes the result.
	OpCall: {"Call", []OperandKind{OperandCount}, func(op Operation) int { return -(int(op.Count) + 1) }},
	// Return: pops the return value; the function body's stack ends empty.
	OpReturn: {"Return", nil, fixedDelta(-1)},
}

func fixedDelta(n int) func(Operation) int {
	return func(Operation) int { return n }
}

// Info looks up an opcode's shape; callers own the invariant that every
// OpCode constant has a table entry (checked once in Validate).
func Info(code OpCode) (OpcodeInfo, bool) {
	info, ok := opcodeTable[code]
	return info, ok
}
