package snapshot

import (
	"math"

	"microvium/internal/diag"
	"microvium/internal/il"
	"microvium/internal/ilvalue"
)

// codeAssembler serializes every function in a Unit into one contiguous
// ROM-relative byte blob, resolving Jump/Branch targets and
// FunctionLiteral references as fixed-width u16 offsets the way a
// two-pass assembler resolves labels: a sizing pass fixes every block's
// and function's offset (instruction size never depends on the resolved
// address, only on the opcode), then an emission pass writes the actual
// bytes now that every offset is known.
type codeAssembler struct {
	unit     *il.Unit
	strings  *stringTable
	funcBase []int // ROM-relative offset of each FuncID's first byte
	codeSize int    // total code-blob size; the string table starts right after it
}

// sizeFunctions runs the sizing pass: populate funcBase and, per
// function, each block's ROM-relative start offset.
func (a *codeAssembler) sizeFunctions() (blockOffsets [][]int, totalSize int, err error) {
	blockOffsets = make([][]int, len(a.unit.Funcs))
	a.funcBase = make([]int, len(a.unit.Funcs))
	cursor := 0
	for i := range a.unit.Funcs {
		fn := &a.unit.Funcs[i]
		a.funcBase[i] = cursor
		offs := make([]int, len(fn.Blocks))
		for bi, b := range fn.Blocks {
			offs[bi] = cursor
			for _, op := range b.Ops {
				n, err := opSize(op)
				if err != nil {
					return nil, 0, err
				}
				cursor += n
			}
		}
		blockOffsets[i] = offs
	}
	return blockOffsets, cursor, nil
}

func opSize(op il.Operation) (int, error) {
	size := 1 // opcode byte
	switch op.Code {
	case il.OpLiteral:
		n, err := literalPayloadSize(op.Literal)
		if err != nil {
			return 0, err
		}
		size += 1 + n
	case il.OpFunctionLiteral, il.OpLoadVar, il.OpStoreVar, il.OpLoadArg,
		il.OpLoadScoped, il.OpStoreScoped, il.OpLoadGlobal, il.OpStoreGlobal,
		il.OpClosureNew, il.OpScopePush, il.OpCall, il.OpPopN:
		size += 2
	case il.OpBinOp, il.OpUnaryOp:
		size += 1
	case il.OpJump:
		size += 2
	case il.OpBranch:
		size += 4
	}
	return size, nil
}

func literalPayloadSize(v ilvalue.Value) (int, error) {
	switch v.Kind {
	case ilvalue.KindUndefined, ilvalue.KindNull:
		return 0, nil
	case ilvalue.KindBool:
		return 1, nil
	case ilvalue.KindNumber:
		return 8, nil
	case ilvalue.KindString:
		return 2, nil
	default:
		return 0, errf(diag.ILOperandMismatch, "internal: literal of kind %v cannot be encoded", v.Kind)
	}
}

// emit runs the emission pass, writing resolved bytes for every function.
// totalSize must be the same value sizeFunctions returned; the caller
// also stores it into a.codeSize so string-literal operands can resolve
// their ROM offset relative to where the string table begins.
func (a *codeAssembler) emit(blockOffsets [][]int, totalSize int) ([]byte, error) {
	a.codeSize = totalSize
	buf := make([]byte, 0, totalSize)
	for i := range a.unit.Funcs {
		fn := &a.unit.Funcs[i]
		for bi, b := range fn.Blocks {
			for _, op := range b.Ops {
				enc, err := a.encodeOp(op, blockOffsets, bi, i)
				if err != nil {
					return nil, err
				}
				buf = append(buf, enc...)
			}
		}
	}
	return buf, nil
}

func (a *codeAssembler) encodeOp(op il.Operation, blockOffsets [][]int, blockIdx, funcIdx int) ([]byte, error) {
	buf := []byte{byte(op.Code)}

	blockAddr := func(id il.BlockID) (uint16, error) {
		if !id.IsValid() || int(id) >= len(blockOffsets[funcIdx]) {
			return 0, errf(diag.ILUnresolvedLabel, "internal: branch to undeclared block %d", id)
		}
		return u16Checked(blockOffsets[funcIdx][id])
	}

	switch op.Code {
	case il.OpLiteral:
		kindByte, payload, err := a.encodeLiteral(op.Literal)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kindByte)
		buf = append(buf, payload...)

	case il.OpFunctionLiteral:
		if int(op.Index) >= len(a.funcBase) {
			return nil, errf(diag.ILOperandMismatch, "internal: function literal %d does not exist", op.Index)
		}
		v, err := u16Checked(a.funcBase[op.Index])
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, v)

	case il.OpLoadVar, il.OpStoreVar, il.OpLoadArg, il.OpLoadScoped, il.OpStoreScoped:
		v, err := u16Checked(int(op.Index))
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, v)

	case il.OpLoadGlobal, il.OpStoreGlobal:
		addr, err := a.strings.addrOf(op.Name, a.codeSize)
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, uint16(addr))

	case il.OpClosureNew, il.OpScopePush, il.OpCall, il.OpPopN:
		v, err := u16Checked(int(op.Count))
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, v)

	case il.OpBinOp:
		buf = append(buf, byte(op.Bin))

	case il.OpUnaryOp:
		buf = append(buf, byte(op.Unary))

	case il.OpJump:
		v, err := blockAddr(op.Targets[0])
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, v)

	case il.OpBranch:
		v0, err := blockAddr(op.Targets[0])
		if err != nil {
			return nil, err
		}
		v1, err := blockAddr(op.Targets[1])
		if err != nil {
			return nil, err
		}
		buf = appendU16(buf, v0)
		buf = appendU16(buf, v1)
	}
	return buf, nil
}

func (a *codeAssembler) encodeLiteral(v ilvalue.Value) (byte, []byte, error) {
	switch v.Kind {
	case ilvalue.KindUndefined:
		return byte(ilvalue.KindUndefined), nil, nil
	case ilvalue.KindNull:
		return byte(ilvalue.KindNull), nil, nil
	case ilvalue.KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return byte(ilvalue.KindBool), []byte{b}, nil
	case ilvalue.KindNumber:
		bits := math.Float64bits(v.Number)
		payload := appendU32(nil, uint32(bits))
		payload = appendU32(payload, uint32(bits>>32))
		return byte(ilvalue.KindNumber), payload, nil
	case ilvalue.KindString:
		addr, err := a.strings.addrOf(v.String, a.codeSize)
		if err != nil {
			return 0, nil, err
		}
		return byte(ilvalue.KindString), appendU16(nil, uint16(addr)), nil
	default:
		return 0, nil, errf(diag.ILOperandMismatch, "internal: literal of kind %v cannot be encoded", v.Kind)
	}
}

func u16Checked(n int) (uint16, error) {
	if n < 0 || n > 0xFFFF {
		return 0, errf(diag.BytecodeSectionOverflow, "value %d does not fit a 16-bit operand", n)
	}
	return uint16(n), nil
}
