package ast

import "microvium/internal/source"

// Exprs owns the Expr arena plus one payload arena per expression kind.
type Exprs struct {
	Arena        *Arena[Expr]
	Idents       *Arena[ExprIdentData]
	Literals     *Arena[ExprLiteralData]
	Templates    *Arena[ExprTemplateData]
	Arrays       *Arena[ExprArrayData]
	Objects      *Arena[ExprObjectData]
	Functions    *Arena[FunctionData]
	Calls        *Arena[ExprCallData]
	News         *Arena[ExprNewData]
	Members      *Arena[ExprMemberData]
	Unaries      *Arena[ExprUnaryData]
	Updates      *Arena[ExprUpdateData]
	Binaries     *Arena[ExprBinaryData]
	Logicals     *Arena[ExprLogicalData]
	Assigns      *Arena[ExprAssignData]
	Conditionals *Arena[ExprConditionalData]
	Sequences    *Arena[ExprSequenceData]
}

func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena:        NewArena[Expr](capHint),
		Idents:       NewArena[ExprIdentData](capHint),
		Literals:     NewArena[ExprLiteralData](capHint),
		Templates:    NewArena[ExprTemplateData](capHint / 4),
		Arrays:       NewArena[ExprArrayData](capHint / 4),
		Objects:      NewArena[ExprObjectData](capHint / 4),
		Functions:    NewArena[FunctionData](capHint / 4),
		Calls:        NewArena[ExprCallData](capHint),
		News:         NewArena[ExprNewData](capHint / 8),
		Members:      NewArena[ExprMemberData](capHint),
		Unaries:      NewArena[ExprUnaryData](capHint / 4),
		Updates:      NewArena[ExprUpdateData](capHint / 8),
		Binaries:     NewArena[ExprBinaryData](capHint),
		Logicals:     NewArena[ExprLogicalData](capHint / 4),
		Assigns:      NewArena[ExprAssignData](capHint / 4),
		Conditionals: NewArena[ExprConditionalData](capHint / 8),
		Sequences:    NewArena[ExprSequenceData](capHint / 16),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload PayloadID) ExprID {
	return ExprID(e.Arena.Allocate(Expr{Kind: kind, Span: span, Payload: payload}))
}

// Get returns the expression header for id.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	p := e.Idents.Allocate(ExprIdentData{Name: name})
	return e.new(ExprIdent, span, PayloadID(p))
}

func (e *Exprs) Ident(id ExprID) *ExprIdentData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprIdent {
		return nil
	}
	return e.Idents.Get(uint32(expr.Payload))
}

func (e *Exprs) NewLiteral(kind ExprKind, span source.Span, value source.StringID) ExprID {
	p := e.Literals.Allocate(ExprLiteralData{Value: value})
	return e.new(kind, span, PayloadID(p))
}

func (e *Exprs) Literal(id ExprID) *ExprLiteralData {
	expr := e.Get(id)
	if expr == nil {
		return nil
	}
	switch expr.Kind {
	case ExprNumberLit, ExprStringLit, ExprBoolLit:
		return e.Literals.Get(uint32(expr.Payload))
	default:
		return nil
	}
}

func (e *Exprs) NewTemplate(span source.Span, parts []TemplatePart) ExprID {
	p := e.Templates.Allocate(ExprTemplateData{Parts: parts})
	return e.new(ExprTemplate, span, PayloadID(p))
}

func (e *Exprs) Template(id ExprID) *ExprTemplateData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprTemplate {
		return nil
	}
	return e.Templates.Get(uint32(expr.Payload))
}

func (e *Exprs) NewArray(span source.Span, elements []ExprID) ExprID {
	p := e.Arrays.Allocate(ExprArrayData{Elements: elements})
	return e.new(ExprArray, span, PayloadID(p))
}

func (e *Exprs) Array(id ExprID) *ExprArrayData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprArray {
		return nil
	}
	return e.Arrays.Get(uint32(expr.Payload))
}

func (e *Exprs) NewObject(span source.Span, props []ObjectProp) ExprID {
	p := e.Objects.Allocate(ExprObjectData{Props: props})
	return e.new(ExprObject, span, PayloadID(p))
}

func (e *Exprs) Object(id ExprID) *ExprObjectData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprObject {
		return nil
	}
	return e.Objects.Get(uint32(expr.Payload))
}

func (e *Exprs) NewFunction(kind ExprKind, span source.Span, fn FunctionData) ExprID {
	p := e.Functions.Allocate(fn)
	return e.new(kind, span, PayloadID(p))
}

func (e *Exprs) Function(id ExprID) *FunctionData {
	expr := e.Get(id)
	if expr == nil || (expr.Kind != ExprFunction && expr.Kind != ExprArrow) {
		return nil
	}
	return e.Functions.Get(uint32(expr.Payload))
}

func (e *Exprs) NewCall(span source.Span, callee ExprID, args []ExprID) ExprID {
	p := e.Calls.Allocate(ExprCallData{Callee: callee, Args: args})
	return e.new(ExprCall, span, PayloadID(p))
}

func (e *Exprs) Call(id ExprID) *ExprCallData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCall {
		return nil
	}
	return e.Calls.Get(uint32(expr.Payload))
}

func (e *Exprs) NewNew(span source.Span, callee ExprID, args []ExprID) ExprID {
	p := e.News.Allocate(ExprNewData{Callee: callee, Args: args})
	return e.new(ExprNew, span, PayloadID(p))
}

func (e *Exprs) New_(id ExprID) *ExprNewData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprNew {
		return nil
	}
	return e.News.Get(uint32(expr.Payload))
}

func (e *Exprs) NewMember(span source.Span, d ExprMemberData) ExprID {
	p := e.Members.Allocate(d)
	return e.new(ExprMember, span, PayloadID(p))
}

func (e *Exprs) Member(id ExprID) *ExprMemberData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprMember {
		return nil
	}
	return e.Members.Get(uint32(expr.Payload))
}

func (e *Exprs) NewUnary(span source.Span, op UnaryOp, operand ExprID) ExprID {
	p := e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand})
	return e.new(ExprUnary, span, PayloadID(p))
}

func (e *Exprs) Unary(id ExprID) *ExprUnaryData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprUnary {
		return nil
	}
	return e.Unaries.Get(uint32(expr.Payload))
}

func (e *Exprs) NewUpdate(span source.Span, op UpdateOp, operand ExprID, prefix bool) ExprID {
	p := e.Updates.Allocate(ExprUpdateData{Op: op, Operand: operand, Prefix: prefix})
	return e.new(ExprUpdate, span, PayloadID(p))
}

func (e *Exprs) Update(id ExprID) *ExprUpdateData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprUpdate {
		return nil
	}
	return e.Updates.Get(uint32(expr.Payload))
}

func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	p := e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right})
	return e.new(ExprBinary, span, PayloadID(p))
}

func (e *Exprs) Binary(id ExprID) *ExprBinaryData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprBinary {
		return nil
	}
	return e.Binaries.Get(uint32(expr.Payload))
}

func (e *Exprs) NewLogical(span source.Span, op LogicalOp, left, right ExprID) ExprID {
	p := e.Logicals.Allocate(ExprLogicalData{Op: op, Left: left, Right: right})
	return e.new(ExprLogical, span, PayloadID(p))
}

func (e *Exprs) Logical(id ExprID) *ExprLogicalData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprLogical {
		return nil
	}
	return e.Logicals.Get(uint32(expr.Payload))
}

func (e *Exprs) NewAssign(span source.Span, op AssignOp, target, value ExprID) ExprID {
	p := e.Assigns.Allocate(ExprAssignData{Op: op, Target: target, Value: value})
	return e.new(ExprAssign, span, PayloadID(p))
}

func (e *Exprs) Assign(id ExprID) *ExprAssignData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprAssign {
		return nil
	}
	return e.Assigns.Get(uint32(expr.Payload))
}

func (e *Exprs) NewConditional(span source.Span, test, cons, alt ExprID) ExprID {
	p := e.Conditionals.Allocate(ExprConditionalData{Test: test, Consequent: cons, Alternate: alt})
	return e.new(ExprConditional, span, PayloadID(p))
}

func (e *Exprs) Conditional(id ExprID) *ExprConditionalData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprConditional {
		return nil
	}
	return e.Conditionals.Get(uint32(expr.Payload))
}

func (e *Exprs) NewSequence(span source.Span, exprs []ExprID) ExprID {
	p := e.Sequences.Allocate(ExprSequenceData{Exprs: exprs})
	return e.new(ExprSequence, span, PayloadID(p))
}

func (e *Exprs) Sequence(id ExprID) *ExprSequenceData {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprSequence {
		return nil
	}
	return e.Sequences.Get(uint32(expr.Payload))
}

// NewNullLit, NewUndefinedLit, and NewThis take no payload: ExprNullLit,
// ExprUndefinedLit, and ExprThis carry all their meaning in Kind.
func (e *Exprs) NewNullLit(span source.Span) ExprID      { return e.new(ExprNullLit, span, NoPayloadID) }
func (e *Exprs) NewUndefinedLit(span source.Span) ExprID { return e.new(ExprUndefinedLit, span, NoPayloadID) }
func (e *Exprs) NewThis(span source.Span) ExprID         { return e.new(ExprThis, span, NoPayloadID) }
