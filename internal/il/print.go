package il

import (
	"fmt"
	"io"
	"strconv"

	"microvium/internal/ilvalue"
	"microvium/internal/source"
)

// Fprint writes unit's functions, blocks and operations in a compact
// textual form, for `microvium disasm` and for comparing compiler output
// across changes. interner resolves the StringIDs OpLoadGlobal,
// OpStoreGlobal and property-key operands carry.
func Fprint(w io.Writer, unit *Unit, interner *source.Interner) error {
	p := &printer{w: w, unit: unit, interner: interner}
	for i := range unit.Funcs {
		if err := p.printFunc(&unit.Funcs[i]); err != nil {
			return err
		}
	}
	return nil
}

type printer struct {
	w        io.Writer
	unit     *Unit
	interner *source.Interner
	err      error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) printFunc(fn *Function) error {
	entry := ""
	if fn.ID == p.unit.EntryFn {
		entry = " entry"
	}
	closure := ""
	if fn.IsClosure {
		closure = " closure"
	}
	p.printf("func %s(params=%d, locals=%d, maxstack=%d)%s%s:\n", fn.Name, fn.ParamCount, fn.LocalSlotCount, fn.MaxStackDepth, entry, closure)
	for i := range fn.Blocks {
		p.printBlock(&fn.Blocks[i])
	}
	p.printf("\n")
	return p.err
}

func (p *printer) printBlock(b *Block) {
	unreachable := ""
	if b.Unreachable {
		unreachable = " unreachable"
	}
	p.printf("  block%d: entry_depth=%d%s\n", b.ID, b.EntryDepth, unreachable)
	for _, op := range b.Ops {
		p.printOp(op)
	}
}

func (p *printer) printOp(op Operation) {
	info, ok := Info(op.Code)
	name := "UNKNOWN"
	if ok {
		name = info.Name
	}
	operand := p.operandString(op, info.OperandKinds)
	comment := ""
	if op.Comment != "" {
		comment = "  // " + op.Comment
	}
	p.printf("    [%d->%d] %s%s%s\n", op.StackDepthBefore, op.StackDepthAfter, name, operand, comment)
}

func (p *printer) operandString(op Operation, kinds []OperandKind) string {
	s := ""
	blocksSeen := 0
	for _, k := range kinds {
		switch k {
		case OperandLiteral:
			s += " " + p.literalString(op.Literal)
		case OperandIndex:
			s += fmt.Sprintf(" #%d", op.Index)
		case OperandName:
			s += " " + p.nameString(op.Name)
		case OperandBlock:
			s += fmt.Sprintf(" ->block%d", op.Targets[blocksSeen])
			blocksSeen++
		case OperandCount:
			s += fmt.Sprintf(" n=%d", op.Count)
		case OperandBinOp:
			s += " " + binOpString(op.Bin)
		case OperandUnaryOp:
			s += " " + unaryOpString(op.Unary)
		}
	}
	return s
}

func (p *printer) literalString(v ilvalue.Value) string {
	switch v.Kind {
	case ilvalue.KindUndefined:
		return "undefined"
	case ilvalue.KindNull:
		return "null"
	case ilvalue.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case ilvalue.KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ilvalue.KindString:
		return strconv.Quote(p.nameString(v.String))
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

func (p *printer) nameString(id source.StringID) string {
	if p.interner == nil {
		return fmt.Sprintf("$%d", id)
	}
	if name, ok := p.interner.Lookup(id); ok {
		return name
	}
	return fmt.Sprintf("$%d", id)
}

func binOpString(op BinOp) string {
	names := map[BinOp]string{
		BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinMod: "%", BinPow: "**",
		BinEq: "==", BinStrictEq: "===", BinNotEq: "!=", BinStrictNotEq: "!==",
		BinLt: "<", BinLtEq: "<=", BinGt: ">", BinGtEq: ">=",
		BinBitAnd: "&", BinBitOr: "|", BinBitXor: "^", BinShl: "<<", BinShr: ">>", BinUShr: ">>>",
		BinInstanceof: "instanceof", BinIn: "in", BinDivideAndTrunc: "divtrunc",
	}
	if s, ok := names[op]; ok {
		return s
	}
	return "?"
}

func unaryOpString(op UnaryOp) string {
	names := map[UnaryOp]string{
		UnaryNeg: "-", UnaryPos: "+", UnaryNot: "!", UnaryBitNot: "~",
	}
	if s, ok := names[op]; ok {
		return s
	}
	return "?"
}
