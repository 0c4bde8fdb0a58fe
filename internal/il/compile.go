package il

import (
	"fmt"
	"strconv"
	"strings"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/ilvalue"
	"microvium/internal/scope"
	"microvium/internal/source"
)

// compiler lowers one parsed module plus its resolved scope Model into an
// IL Unit (spec.md §4.2). It never re-derives binding/slot information the
// Scope Analyzer already computed; every accessor decision below reads
// straight from a scope.Binding's assigned Slot.
type compiler struct {
	arenas   *ast.Builder
	model    *scope.Model
	reporter diag.Reporter

	unit *Unit
	err  error

	exprScopeOf map[ast.ExprID]scope.ScopeID
	stmtScopeOf map[ast.StmtID]scope.ScopeID
	refBinding  map[ast.ExprID]scope.BindingID

	thisModuleName source.StringID
}

// funcCtx is the per-function compilation state: the Cursor, the scope
// this function's body resolves names against, and the argument-index
// each parameter binding physically arrives in.
type funcCtx struct {
	cur        *Cursor
	fn         *Function
	scope      *scope.Scope
	curScope   scope.ScopeID // the lexical block/for/for-of/switch scope presently being compiled
	paramIndex map[scope.BindingID]uint32
	nextHidden uint32
}

// enterScope switches fc.curScope to id and runs its own Prologue (the
// block/for/for-of/switch scopes each carry their own lexical/function
// declarations, distinct from the enclosing function's Prologue already
// run once at function entry). It returns a restore func the caller must
// defer or call explicitly once the scope's body has been compiled.
func (c *compiler) enterScope(fc *funcCtx, id scope.ScopeID, span source.Span) func() {
	old := fc.curScope
	if id.IsValid() {
		fc.curScope = id
		c.emitPrologue(fc, span, c.model.Scopes.Get(id).Prologue)
	}
	return func() { fc.curScope = old }
}

// Compile lowers prog into an IL Unit. model must be the result of
// scope.Resolve followed by scope.AssignSlots over the same program.
func Compile(prog ast.ProgramID, arenas *ast.Builder, model *scope.Model, reporter diag.Reporter) (*Unit, error) {
	c := &compiler{
		arenas:      arenas,
		model:       model,
		reporter:    reporter,
		unit:        &Unit{},
		exprScopeOf: make(map[ast.ExprID]scope.ScopeID),
		stmtScopeOf: make(map[ast.StmtID]scope.ScopeID),
		refBinding:  make(map[ast.ExprID]scope.BindingID),
	}
	c.thisModuleName = arenas.StringsInterner.Intern("thisModule")

	for i := 1; i <= model.Scopes.Len(); i++ {
		id := scope.ScopeID(i)
		sc := model.Scopes.Get(id)
		if sc.OwnerExpr.IsValid() {
			c.exprScopeOf[sc.OwnerExpr] = id
		}
		if sc.OwnerStmt.IsValid() {
			c.stmtScopeOf[sc.OwnerStmt] = id
		}
	}
	for _, ref := range model.References {
		c.refBinding[ref.Expr] = ref.Binding
	}

	program := arenas.Programs.Get(prog)
	entryID := c.newFunction("#entry", program.Span)
	c.compileFunc(entryID, model.Root, program.Body, ast.NoExprID, true)
	c.unit.EntryFn = entryID

	if c.err != nil {
		return nil, c.err
	}
	if err := Validate(c.unit); err != nil {
		return nil, fmt.Errorf("internal: lowering produced an invalid unit: %w", err)
	}
	return c.unit, nil
}

func (c *compiler) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
}

func (c *compiler) diagAt(code diag.Code, span source.Span, msg string) {
	if c.reporter != nil {
		c.reporter.Report(code, diag.SevError, span, msg, nil, nil)
	}
}

func (c *compiler) newFunction(name string, span source.Span) FuncID {
	id := FuncID(len(c.unit.Funcs))
	c.unit.Funcs = append(c.unit.Funcs, Function{ID: id, Name: name, Span: span})
	return id
}

// localHighWaterMark scans a function-or-module scope and every descendant
// block scope (stopping at nested function boundaries, exactly like pass
// 2's own traversal in scope/slots.go) for the highest SlotLocal index in
// use, so compiler-synthesized temporaries (for-of counters, member
// compound-assignment scratch slots) never collide with a declared local.
func (c *compiler) localHighWaterMark(scopeID scope.ScopeID) uint32 {
	sc := c.model.Scopes.Get(scopeID)
	max := uint32(0)
	bump := func(bid scope.BindingID) {
		b := c.model.Bindings.Get(bid)
		if b != nil && b.Slot.Kind == scope.SlotLocal && b.Slot.Index+1 > max {
			max = b.Slot.Index + 1
		}
	}
	if sc.ThisBinding.IsValid() {
		bump(sc.ThisBinding)
	}
	for _, bid := range sc.ParameterBindings {
		bump(bid)
	}
	for _, bid := range sc.VarDeclarations {
		bump(bid)
	}
	for _, bid := range sc.NestedFunctionDeclarations {
		bump(bid)
	}
	for _, bid := range sc.LexicalDeclarations {
		bump(bid)
	}
	var walkBlock func(id scope.ScopeID)
	walkBlock = func(id scope.ScopeID) {
		child := c.model.Scopes.Get(id)
		if child.Kind == scope.ScopeFunction {
			return
		}
		for _, bid := range child.LexicalDeclarations {
			bump(bid)
		}
		for _, gc := range child.Children {
			walkBlock(gc)
		}
	}
	for _, child := range sc.Children {
		walkBlock(child)
	}
	return max
}

func (c *compiler) allocHidden(fc *funcCtx) uint32 {
	idx := fc.nextHidden
	fc.nextHidden++
	if idx+1 > uint32(fc.fn.LocalSlotCount) {
		fc.fn.LocalSlotCount = int(idx + 1)
	}
	return idx
}

func (c *compiler) name(id source.StringID) string {
	s, _ := c.arenas.StringsInterner.Lookup(id)
	return s
}

// compileFunc compiles one function body (or, for an arrow with a concise
// body, exprBody) into a freshly started IL Function. isEntry marks the
// distinguished module-body function (spec.md §4.2's "entry function"),
// which receives the module's namespace object as argument 0 and must
// store it into the thisModule global slot before anything else runs.
func (c *compiler) compileFunc(fnID FuncID, scopeID scope.ScopeID, stmts []ast.StmtID, exprBody ast.ExprID, isEntry bool) {
	sc := c.model.Scopes.Get(scopeID)
	fn := c.unit.Func(fnID)
	fn.IsClosure = sc.IsClosure
	fn.ParamCount = len(sc.ParameterBindings)
	if watermark := c.localHighWaterMark(scopeID); int(watermark) > fn.LocalSlotCount {
		fn.LocalSlotCount = int(watermark)
	}

	cur := NewCursor(c.unit, fn)
	entry := cur.PredeclareBlock()
	cur.StartBlock(entry, 0)
	fn.Entry = entry

	paramIndex := make(map[scope.BindingID]uint32, len(sc.ParameterBindings))
	for i, pid := range sc.ParameterBindings {
		paramIndex[pid] = uint32(i + 1)
	}
	fc := &funcCtx{cur: cur, fn: fn, scope: sc, curScope: scopeID, paramIndex: paramIndex, nextHidden: uint32(fn.LocalSlotCount)}

	if isEntry {
		cur.Emit(fn.Span, Operation{Code: OpLoadArg, Index: 0})
		cur.Emit(fn.Span, Operation{Code: OpStoreGlobal, Name: c.thisModuleName})
		cur.Emit(fn.Span, Operation{Code: OpPop})
	}

	c.emitPrologue(fc, fn.Span, sc.Prologue)

	if exprBody.IsValid() {
		c.compileExpr(fc, exprBody)
		cur.Emit(c.arenas.Exprs.Get(exprBody).Span, Operation{Code: OpReturn})
	} else {
		for _, id := range stmts {
			c.compileStmt(fc, id)
		}
		if cur.Reachable() {
			cur.Emit(fn.Span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
			cur.Emit(fn.Span, Operation{Code: OpReturn})
		}
	}

	if err := cur.Err(); err != nil {
		c.fail("compiling %s: %w", fn.Name, err)
	}
}

// compileFunctionValue allocates and compiles a new IL function for a
// function declaration or function/arrow expression, returning its ID so
// the caller can emit FunctionLiteral/ClosureNew for it.
func (c *compiler) compileFunctionValue(fnScope scope.ScopeID, name string, span source.Span, fn ast.FunctionData) FuncID {
	id := c.newFunction(name, span)
	var stmts []ast.StmtID
	if fn.Body.IsValid() {
		stmts = c.arenas.Stmts.Block(fn.Body).Body
	}
	c.compileFunc(id, fnScope, stmts, fn.ExprBody, false)
	return id
}

func (c *compiler) emitPrologue(fc *funcCtx, span source.Span, ops []scope.PrologueOp) {
	for _, op := range ops {
		switch op.Kind {
		case scope.OpScopePush:
			fc.cur.Emit(span, Operation{Code: OpScopePush, Count: op.SlotCount})

		case scope.OpInitVarDeclaration, scope.OpInitLexicalDeclaration:
			b := c.model.Bindings.Get(op.Binding)
			c.compileStoreTo(fc, b, span, func() {
				fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
			})
			fc.cur.Emit(span, Operation{Code: OpPop})

		case scope.OpInitFunctionDeclaration:
			b := c.model.Bindings.Get(op.Binding)
			fd := c.arenas.Stmts.FunctionDecl(b.Decl)
			fnScope, ok := c.stmtScopeOf[b.Decl]
			if !ok {
				c.fail("internal: no scope recorded for function declaration %q", c.name(fd.Fn.Name))
				continue
			}
			nestedSc := c.model.Scopes.Get(fnScope)
			name := "function"
			if fd.Fn.Name != source.NoStringID {
				name = c.name(fd.Fn.Name)
			}
			funcID := c.compileFunctionValue(fnScope, name, c.arenas.Stmts.Get(b.Decl).Span, fd.Fn)
			c.compileStoreTo(fc, b, span, func() {
				fc.cur.Emit(span, Operation{Code: OpFunctionLiteral, Index: uint32(funcID)})
				if nestedSc.IsClosure {
					fc.cur.Emit(span, Operation{Code: OpClosureNew, Count: 1})
				}
			})
			fc.cur.Emit(span, Operation{Code: OpPop})

		case scope.OpInitParameter, scope.OpInitThis:
			b := c.model.Bindings.Get(op.Binding)
			argIdx := uint32(0)
			if op.Kind == scope.OpInitParameter {
				argIdx = fc.paramIndex[op.Binding]
			}
			c.compileStoreTo(fc, b, span, func() {
				fc.cur.Emit(span, Operation{Code: OpLoadArg, Index: argIdx})
			})
			fc.cur.Emit(span, Operation{Code: OpPop})
		}
	}
}

// emitLoad reads a binding's current value onto the stack, dispatching on
// its assigned Slot kind (spec.md §4.1's accessor table).
func (c *compiler) emitLoad(fc *funcCtx, b *scope.Binding, span source.Span) {
	switch b.Slot.Kind {
	case scope.SlotLocal:
		fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: b.Slot.Index})
	case scope.SlotArgument:
		fc.cur.Emit(span, Operation{Code: OpLoadArg, Index: b.Slot.ArgIndex})
	case scope.SlotClosure:
		fc.cur.Emit(span, Operation{Code: OpLoadScoped, Index: b.Slot.Index})
	case scope.SlotGlobal:
		fc.cur.Emit(span, Operation{Code: OpLoadGlobal, Name: b.Slot.Name})
	case scope.SlotModuleImportExport:
		c.emitNamespaceLoad(fc, b.Slot, span)
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(b.Slot.PropertyName)})
		fc.cur.Emit(span, Operation{Code: OpObjectGet})
	default:
		c.fail("internal: binding %q has no assigned slot", c.name(b.Name))
	}
}

func (c *compiler) emitNamespaceLoad(fc *funcCtx, slot scope.Slot, span source.Span) {
	if slot.Namespace.IsValid() {
		ns := c.model.Bindings.Get(slot.Namespace)
		fc.cur.Emit(span, Operation{Code: OpLoadGlobal, Name: ns.Name})
		return
	}
	fc.cur.Emit(span, Operation{Code: OpLoadGlobal, Name: c.thisModuleName})
}

// emitStore writes the value already on top of the stack into a
// single-slot binding, leaving it there (spec.md §4.1: "writes do not
// pop; the written value remains as the expression's result"). It does
// not handle SlotModuleImportExport, whose write needs the namespace and
// key pushed *before* the value; compileStoreTo handles that ordering.
func (c *compiler) emitStore(fc *funcCtx, b *scope.Binding, span source.Span) {
	switch b.Slot.Kind {
	case scope.SlotLocal:
		fc.cur.Emit(span, Operation{Code: OpStoreVar, Index: b.Slot.Index})
	case scope.SlotClosure:
		fc.cur.Emit(span, Operation{Code: OpStoreScoped, Index: b.Slot.Index})
	case scope.SlotGlobal:
		fc.cur.Emit(span, Operation{Code: OpStoreGlobal, Name: b.Slot.Name})
	case scope.SlotArgument:
		c.fail("internal: store to an argument slot (binding %q)", c.name(b.Name))
	default:
		c.fail("internal: binding %q has no assigned slot for store", c.name(b.Name))
	}
}

// compileStoreTo compiles a store to b whose new value is produced by
// compileValue. For a plain slot this is just "compileValue then emitStore".
// For SlotModuleImportExport, the namespace object and property key are
// pushed first and compileValue runs afterward, since ObjectSet needs
// [object, key, value] with value on top; emitLoad calls compileValue may
// itself issue (nested, self-cancelling) namespace/key pushes and that's
// fine — they net to zero around the pair pushed here.
func (c *compiler) compileStoreTo(fc *funcCtx, b *scope.Binding, span source.Span, compileValue func()) {
	if b.Slot.Kind == scope.SlotModuleImportExport {
		c.emitNamespaceLoad(fc, b.Slot, span)
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(b.Slot.PropertyName)})
		compileValue()
		fc.cur.Emit(span, Operation{Code: OpObjectSet})
		return
	}
	compileValue()
	c.emitStore(fc, b, span)
}

// bindingFor resolves an identifier or `this` expression's Binding, as
// recorded by the Scope Analyzer's Reference list.
func (c *compiler) bindingFor(id ast.ExprID) *scope.Binding {
	bid, ok := c.refBinding[id]
	if !ok || !bid.IsValid() {
		return nil
	}
	return c.model.Bindings.Get(bid)
}

// resolveWriteTarget mirrors resolveByName's lookup for assignment targets
// that never went through resolveIdentExpr (only for-of's plain
// `for (x of xs)` form, which resolve.go resolves but does not record as
// a Reference).
func (c *compiler) resolveWriteTarget(startScope scope.ScopeID, name source.StringID) *scope.Binding {
	p := startScope
	for p.IsValid() {
		sc := c.model.Scopes.Get(p)
		if bid, ok := sc.Bindings[name]; ok {
			return c.model.Bindings.Get(bid)
		}
		p = sc.Parent
	}
	return nil
}

func mapAssignOpToBinOp(op ast.AssignOp) (BinOp, bool) {
	switch op {
	case ast.AssignAdd:
		return BinAdd, true
	case ast.AssignSub:
		return BinSub, true
	case ast.AssignMul:
		return BinMul, true
	case ast.AssignDiv:
		return BinDiv, true
	case ast.AssignMod:
		return BinMod, true
	case ast.AssignPow:
		return BinPow, true
	case ast.AssignBitAnd:
		return BinBitAnd, true
	case ast.AssignBitOr:
		return BinBitOr, true
	case ast.AssignBitXor:
		return BinBitXor, true
	case ast.AssignShl:
		return BinShl, true
	case ast.AssignShr:
		return BinShr, true
	case ast.AssignUShr:
		return BinUShr, true
	default:
		return 0, false
	}
}

func mapBinaryOp(op ast.BinaryOp) BinOp {
	switch op {
	case ast.OpAdd:
		return BinAdd
	case ast.OpSub:
		return BinSub
	case ast.OpMul:
		return BinMul
	case ast.OpDiv:
		return BinDiv
	case ast.OpMod:
		return BinMod
	case ast.OpPow:
		return BinPow
	case ast.OpEq:
		return BinEq
	case ast.OpStrictEq:
		return BinStrictEq
	case ast.OpNotEq:
		return BinNotEq
	case ast.OpStrictNotEq:
		return BinStrictNotEq
	case ast.OpLt:
		return BinLt
	case ast.OpLtEq:
		return BinLtEq
	case ast.OpGt:
		return BinGt
	case ast.OpGtEq:
		return BinGtEq
	case ast.OpBitAnd:
		return BinBitAnd
	case ast.OpBitOr:
		return BinBitOr
	case ast.OpBitXor:
		return BinBitXor
	case ast.OpShl:
		return BinShl
	case ast.OpShr:
		return BinShr
	case ast.OpUShr:
		return BinUShr
	case ast.OpInstanceof:
		return BinInstanceof
	case ast.OpIn:
		return BinIn
	default:
		return BinAdd
	}
}

func mapUnaryOp(op ast.UnaryOp) (UnaryOp, bool) {
	switch op {
	case ast.OpNeg:
		return UnaryNeg, true
	case ast.OpPos:
		return UnaryPos, true
	case ast.OpNot:
		return UnaryNot, true
	case ast.OpBitNot:
		return UnaryBitNot, true
	default:
		return 0, false // typeof/void/delete: already diagnosed at parse time
	}
}

// parseNumberLiteral interprets a number literal's raw source text.
// The restricted grammar's lexer accepts decimal and 0x/0o/0b integer
// forms; anything stdlib float parsing rejects falls back to 0 (the
// lexer already validated the token shape, so this should not happen on
// a diagnostic-free parse).
func parseNumberLiteral(text string) float64 {
	if len(text) > 1 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			if n, err := strconv.ParseUint(text[2:], 16, 64); err == nil {
				return float64(n)
			}
		case 'o', 'O':
			if n, err := strconv.ParseUint(text[2:], 8, 64); err == nil {
				return float64(n)
			}
		case 'b', 'B':
			if n, err := strconv.ParseUint(text[2:], 2, 64); err == nil {
				return float64(n)
			}
		}
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return n
}

// unescapeStringLiteral strips the surrounding quotes from a string
// literal's raw source text and resolves the small set of escapes the
// lexer accepts.
func unescapeStringLiteral(text string) string {
	if len(text) < 2 {
		return ""
	}
	body := text[1 : len(text)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"', '`':
			b.WriteByte(body[i])
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// isNumericZeroLiteral reports whether id is a number literal whose value
// is exactly 0, used to recognize the `x|0` integer-truncation idiom.
func (c *compiler) isNumericZeroLiteral(id ast.ExprID) bool {
	e := c.arenas.Exprs.Get(id)
	if e == nil || e.Kind != ast.ExprNumberLit {
		return false
	}
	lit := c.arenas.Exprs.Literal(id)
	return parseNumberLiteral(c.name(lit.Value)) == 0
}

// ---- statements ----

func (c *compiler) compileStmt(fc *funcCtx, id ast.StmtID) {
	if !fc.cur.Reachable() {
		return
	}
	st := c.arenas.Stmts.Get(id)
	switch st.Kind {
	case ast.StmtExpression:
		span := st.Span
		c.compileExpr(fc, c.arenas.Stmts.Expression(id).Expr)
		fc.cur.Emit(span, Operation{Code: OpPop})

	case ast.StmtBlock:
		restore := c.enterScope(fc, c.stmtScopeOf[id], st.Span)
		for _, inner := range c.arenas.Stmts.Block(id).Body {
			c.compileStmt(fc, inner)
		}
		restore()

	case ast.StmtVarDecl:
		c.compileVarDecl(fc, id, st)

	case ast.StmtFunctionDecl:
		// Materialized entirely by OpInitFunctionDeclaration in the
		// owning scope's prologue; nothing to do at this position.

	case ast.StmtReturn:
		v := c.arenas.Stmts.Return(id).Value
		if v.IsValid() {
			c.compileExpr(fc, v)
		} else {
			fc.cur.Emit(st.Span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
		}
		fc.cur.Emit(st.Span, Operation{Code: OpReturn})

	case ast.StmtIf:
		c.compileIf(fc, id, st)

	case ast.StmtWhile:
		c.compileWhile(fc, id, st)

	case ast.StmtDoWhile:
		c.compileDoWhile(fc, id, st)

	case ast.StmtFor:
		c.compileFor(fc, id, st)

	case ast.StmtForIn:
		c.diagAt(diag.FeatForIn, st.Span, "'for...in' is not supported")

	case ast.StmtForOf:
		c.compileForOf(fc, id, st)

	case ast.StmtBreak:
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{fc.cur.BreakTarget(), NoBlockID}})

	case ast.StmtContinue:
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{fc.cur.ContinueTarget(), NoBlockID}})

	case ast.StmtSwitch:
		c.compileSwitch(fc, id, st)

	case ast.StmtImport:
		// Fully resolved by the Scope Analyzer; no IL for the statement
		// itself, only for the identifiers it introduced.

	case ast.StmtExportNamed:
		d := c.arenas.Stmts.ExportNamed(id)
		if d.Decl.IsValid() {
			c.compileStmt(fc, d.Decl)
		}

	case ast.StmtExportDefault:
		c.compileExpr(fc, c.arenas.Stmts.ExportDefault(id).Value)
		fc.cur.Emit(st.Span, Operation{Code: OpPop})

	case ast.StmtEmpty:
		// no-op
	}
}

func (c *compiler) compileVarDecl(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.VarDecl(id)
	for _, decl := range d.Declarators {
		if !decl.Init.IsValid() {
			continue // OpInitVarDeclaration/OpInitLexicalDeclaration already zeroed the slot
		}
		b := c.resolveWriteTarget(fc.curScope, decl.Name)
		if b == nil {
			c.fail("internal: no binding for declared name %q", c.name(decl.Name))
			continue
		}
		c.compileStoreTo(fc, b, st.Span, func() {
			c.compileExpr(fc, decl.Init)
		})
		fc.cur.Emit(st.Span, Operation{Code: OpPop})
	}
}

func (c *compiler) compileIf(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.If(id)
	c.compileExpr(fc, d.Test)
	thenBlk := fc.cur.PredeclareBlock()
	elseBlk := fc.cur.PredeclareBlock()
	joinBlk := fc.cur.PredeclareBlock()
	fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{thenBlk, elseBlk}})
	base := fc.cur.Depth()

	fc.cur.StartBlock(thenBlk, base)
	c.compileStmt(fc, d.Then)
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})
	}

	fc.cur.StartBlock(elseBlk, base)
	if d.Else.IsValid() {
		c.compileStmt(fc, d.Else)
	}
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})
	}

	fc.cur.StartBlock(joinBlk, base)
}

func (c *compiler) compileWhile(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.While(id)
	base := fc.cur.Depth()
	testBlk := fc.cur.PredeclareBlock()
	bodyBlk := fc.cur.PredeclareBlock()
	exitBlk := fc.cur.PredeclareBlock()

	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})
	fc.cur.StartBlock(testBlk, base)
	c.compileExpr(fc, d.Test)
	fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{bodyBlk, exitBlk}})

	fc.cur.StartBlock(bodyBlk, base)
	fc.cur.PushLoop(exitBlk, testBlk)
	c.compileStmt(fc, d.Body)
	fc.cur.PopLoop()
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})
	}

	fc.cur.StartBlock(exitBlk, base)
}

func (c *compiler) compileDoWhile(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.DoWhile(id)
	base := fc.cur.Depth()
	bodyBlk := fc.cur.PredeclareBlock()
	testBlk := fc.cur.PredeclareBlock()
	exitBlk := fc.cur.PredeclareBlock()

	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{bodyBlk, NoBlockID}})
	fc.cur.StartBlock(bodyBlk, base)
	fc.cur.PushLoop(exitBlk, testBlk)
	c.compileStmt(fc, d.Body)
	fc.cur.PopLoop()
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})
	}

	fc.cur.StartBlock(testBlk, base)
	c.compileExpr(fc, d.Test)
	fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{bodyBlk, exitBlk}})

	fc.cur.StartBlock(exitBlk, base)
}

func (c *compiler) compileFor(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.For(id)
	defer c.enterScope(fc, c.stmtScopeOf[id], st.Span)()
	if d.Init.IsValid() {
		c.compileStmt(fc, d.Init)
	}
	base := fc.cur.Depth()
	testBlk := fc.cur.PredeclareBlock()
	bodyBlk := fc.cur.PredeclareBlock()
	updateBlk := fc.cur.PredeclareBlock()
	exitBlk := fc.cur.PredeclareBlock()

	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})
	fc.cur.StartBlock(testBlk, base)
	if d.Test.IsValid() {
		c.compileExpr(fc, d.Test)
		fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{bodyBlk, exitBlk}})
	} else {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{bodyBlk, NoBlockID}})
	}

	fc.cur.StartBlock(bodyBlk, base)
	fc.cur.PushLoop(exitBlk, updateBlk)
	c.compileStmt(fc, d.Body)
	fc.cur.PopLoop()
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{updateBlk, NoBlockID}})
	}

	fc.cur.StartBlock(updateBlk, base)
	if d.Update.IsValid() {
		c.compileExpr(fc, d.Update)
		fc.cur.Emit(st.Span, Operation{Code: OpPop})
	}
	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})

	fc.cur.StartBlock(exitBlk, base)
}

// compileForOf lowers `for (x of xs) body` over array-shaped xs by
// counting an index against the array's virtual "length" property; this
// covers the common case without a full iterator protocol, which the
// language subset doesn't otherwise expose (DESIGN.md).
func (c *compiler) compileForOf(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.ForInOf(id)
	c.compileExpr(fc, d.Object)
	defer c.enterScope(fc, c.stmtScopeOf[id], st.Span)()
	hArr := c.allocHidden(fc)
	fc.cur.Emit(st.Span, Operation{Code: OpStoreVar, Index: hArr})
	fc.cur.Emit(st.Span, Operation{Code: OpPop})

	fc.cur.Emit(st.Span, Operation{Code: OpLiteral, Literal: ilvalue.Number(0)})
	hIdx := c.allocHidden(fc)
	fc.cur.Emit(st.Span, Operation{Code: OpStoreVar, Index: hIdx})
	fc.cur.Emit(st.Span, Operation{Code: OpPop})

	base := fc.cur.Depth()
	testBlk := fc.cur.PredeclareBlock()
	bodyBlk := fc.cur.PredeclareBlock()
	incBlk := fc.cur.PredeclareBlock()
	exitBlk := fc.cur.PredeclareBlock()

	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})
	fc.cur.StartBlock(testBlk, base)
	fc.cur.Emit(st.Span, Operation{Code: OpLoadVar, Index: hIdx})
	fc.cur.Emit(st.Span, Operation{Code: OpLoadVar, Index: hArr})
	fc.cur.Emit(st.Span, Operation{Code: OpLiteral, Literal: ilvalue.Str(c.arenas.StringsInterner.Intern("length"))})
	fc.cur.Emit(st.Span, Operation{Code: OpObjectGet})
	fc.cur.Emit(st.Span, Operation{Code: OpBinOp, Bin: BinLt})
	fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{bodyBlk, exitBlk}})

	fc.cur.StartBlock(bodyBlk, base)
	fc.cur.Emit(st.Span, Operation{Code: OpLoadVar, Index: hArr})
	fc.cur.Emit(st.Span, Operation{Code: OpLoadVar, Index: hIdx})
	fc.cur.Emit(st.Span, Operation{Code: OpObjectGet})
	c.storeLoopVariable(fc, d, st.Span)
	fc.cur.Emit(st.Span, Operation{Code: OpPop})

	fc.cur.PushLoop(exitBlk, incBlk)
	c.compileStmt(fc, d.Body)
	fc.cur.PopLoop()
	if fc.cur.Reachable() {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{incBlk, NoBlockID}})
	}

	fc.cur.StartBlock(incBlk, base)
	fc.cur.Emit(st.Span, Operation{Code: OpLoadVar, Index: hIdx})
	fc.cur.Emit(st.Span, Operation{Code: OpLiteral, Literal: ilvalue.Number(1)})
	fc.cur.Emit(st.Span, Operation{Code: OpBinOp, Bin: BinAdd})
	fc.cur.Emit(st.Span, Operation{Code: OpStoreVar, Index: hIdx})
	fc.cur.Emit(st.Span, Operation{Code: OpPop})
	fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{testBlk, NoBlockID}})

	fc.cur.StartBlock(exitBlk, base)
}

// storeLoopVariable stores the value on top of the stack into a for-of
// loop's per-iteration binding, leaving the caller's single subsequent
// Pop valid regardless of slot kind: plain slots peek-store (net +0, so
// the caller's Pop removes the original value); an exported binding
// round-trips the value through a hidden local so compileStoreTo's
// namespace/key push can precede it (net +1, so the caller's Pop still
// balances to the same depth). The loop variable — declared or a plain
// assignment target — always resolves starting from the loop's own
// scope, whether its binding lives there directly (let/const) or was
// hoisted to an ancestor (var, or a pre-existing outer binding).
func (c *compiler) storeLoopVariable(fc *funcCtx, d *ast.StmtForInOfData, span source.Span) {
	b := c.resolveWriteTarget(fc.curScope, d.Name)
	if b == nil {
		c.fail("internal: no binding for for-of loop variable %q", c.name(d.Name))
		return
	}
	if b.Slot.Kind == scope.SlotModuleImportExport {
		hVal := c.allocHidden(fc)
		fc.cur.Emit(span, Operation{Code: OpStoreVar, Index: hVal})
		fc.cur.Emit(span, Operation{Code: OpPop})
		c.compileStoreTo(fc, b, span, func() {
			fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hVal})
		})
		return
	}
	c.emitStore(fc, b, span)
}

func (c *compiler) compileSwitch(fc *funcCtx, id ast.StmtID, st *ast.Stmt) {
	d := c.arenas.Stmts.Switch(id)
	c.compileExpr(fc, d.Discriminant)
	defer c.enterScope(fc, c.stmtScopeOf[id], st.Span)()
	base := fc.cur.Depth() // depth with discriminant live, kept on the stack for every case test

	bodies := make([]BlockID, len(d.Cases))
	for i := range d.Cases {
		bodies[i] = fc.cur.PredeclareBlock()
	}
	exitBlk := fc.cur.PredeclareBlock()
	defaultIdx := -1
	for i, cs := range d.Cases {
		if !cs.Test.IsValid() {
			defaultIdx = i
			continue
		}
		fc.cur.Emit(st.Span, Operation{Code: OpDup})
		c.compileExpr(fc, cs.Test)
		fc.cur.Emit(st.Span, Operation{Code: OpBinOp, Bin: BinStrictEq})
		nextTest := fc.cur.PredeclareBlock()
		fc.cur.Emit(st.Span, Operation{Code: OpBranch, Targets: [2]BlockID{bodies[i], nextTest}})
		fc.cur.StartBlock(nextTest, base)
	}
	if defaultIdx >= 0 {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{bodies[defaultIdx], NoBlockID}})
	} else {
		fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{exitBlk, NoBlockID}})
	}

	fc.cur.PushLoop(exitBlk, NoBlockID)
	for i, cs := range d.Cases {
		fc.cur.StartBlock(bodies[i], base)
		for _, inner := range cs.Body {
			c.compileStmt(fc, inner)
		}
		if fc.cur.Reachable() {
			next := exitBlk
			if i+1 < len(bodies) {
				next = bodies[i+1]
			}
			fc.cur.Emit(st.Span, Operation{Code: OpJump, Targets: [2]BlockID{next, NoBlockID}})
		}
	}
	fc.cur.PopLoop()

	fc.cur.StartBlock(exitBlk, base)
	fc.cur.Emit(st.Span, Operation{Code: OpPop}) // discard the discriminant
}

// ---- expressions ----

// compileExpr lowers id, leaving exactly one value on the operand stack.
func (c *compiler) compileExpr(fc *funcCtx, id ast.ExprID) {
	e := c.arenas.Exprs.Get(id)
	span := e.Span
	switch e.Kind {
	case ast.ExprIdent:
		b := c.bindingFor(id)
		if b == nil {
			name := c.arenas.Exprs.Ident(id).Name
			fc.cur.Emit(span, Operation{Code: OpLoadGlobal, Name: name})
			return
		}
		c.emitLoad(fc, b, span)

	case ast.ExprThis:
		b := c.bindingFor(id)
		if b == nil {
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
			return
		}
		c.emitLoad(fc, b, span)

	case ast.ExprNumberLit:
		text := c.name(c.arenas.Exprs.Literal(id).Value)
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Number(parseNumberLiteral(text))})

	case ast.ExprStringLit:
		// The lexer already stripped the quotes and resolved escapes, so the
		// interned literal value is the string's contents.
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(c.arenas.Exprs.Literal(id).Value)})

	case ast.ExprBoolLit:
		text := c.name(c.arenas.Exprs.Literal(id).Value)
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Bool(text == "true")})

	case ast.ExprNullLit:
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Null()})

	case ast.ExprUndefinedLit:
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})

	case ast.ExprTemplate:
		c.compileTemplate(fc, id, span)

	case ast.ExprArray:
		c.compileArray(fc, id, span)

	case ast.ExprObject:
		c.compileObject(fc, id, span)

	case ast.ExprFunction, ast.ExprArrow:
		c.compileFunctionExpr(fc, id, e)

	case ast.ExprCall:
		c.compileCall(fc, id, span)

	case ast.ExprNew:
		c.compileNew(fc, id, span)

	case ast.ExprMember:
		d := c.arenas.Exprs.Member(id)
		c.compileExpr(fc, d.Object)
		if d.Computed {
			c.compileExpr(fc, d.PropertyExpr)
		} else {
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(d.Property)})
		}
		fc.cur.Emit(span, Operation{Code: OpObjectGet})

	case ast.ExprUnary:
		c.compileUnary(fc, id, span)

	case ast.ExprUpdate:
		c.compileUpdate(fc, id, span)

	case ast.ExprBinary:
		c.compileBinary(fc, id, span)

	case ast.ExprLogical:
		c.compileLogical(fc, id, span)

	case ast.ExprAssign:
		c.compileAssign(fc, id, span)

	case ast.ExprConditional:
		c.compileConditional(fc, id, span)

	case ast.ExprSequence:
		exprs := c.arenas.Exprs.Sequence(id).Exprs
		for i, sub := range exprs {
			c.compileExpr(fc, sub)
			if i+1 < len(exprs) {
				fc.cur.Emit(span, Operation{Code: OpPop})
			}
		}

	default:
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
	}
}

func (c *compiler) compileTemplate(fc *funcCtx, id ast.ExprID, span source.Span) {
	parts := c.arenas.Exprs.Template(id).Parts
	if len(parts) == 0 {
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(source.NoStringID)})
		return
	}
	emitPart := func(p ast.TemplatePart) {
		if p.Expr.IsValid() {
			c.compileExpr(fc, p.Expr)
			return
		}
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(p.Literal)})
	}
	emitPart(parts[0])
	for _, p := range parts[1:] {
		emitPart(p)
		fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: BinAdd})
	}
}

func (c *compiler) compileArray(fc *funcCtx, id ast.ExprID, span source.Span) {
	fc.cur.Emit(span, Operation{Code: OpArrayNew})
	for i, el := range c.arenas.Exprs.Array(id).Elements {
		fc.cur.Emit(span, Operation{Code: OpDup})
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Number(float64(i))})
		c.compileExpr(fc, el)
		fc.cur.Emit(span, Operation{Code: OpObjectSet})
		fc.cur.Emit(span, Operation{Code: OpPop})
	}
}

func (c *compiler) compileObject(fc *funcCtx, id ast.ExprID, span source.Span) {
	fc.cur.Emit(span, Operation{Code: OpObjectNew})
	for _, prop := range c.arenas.Exprs.Object(id).Props {
		fc.cur.Emit(span, Operation{Code: OpDup})
		if prop.Computed {
			c.compileExpr(fc, prop.KeyExpr)
		} else {
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(prop.Key)})
		}
		c.compileExpr(fc, prop.Value)
		fc.cur.Emit(span, Operation{Code: OpObjectSet})
		fc.cur.Emit(span, Operation{Code: OpPop})
	}
}

func (c *compiler) compileFunctionExpr(fc *funcCtx, id ast.ExprID, e *ast.Expr) {
	fn := c.arenas.Exprs.Function(id)
	fnScope, ok := c.exprScopeOf[id]
	if !ok {
		c.fail("internal: no scope recorded for function expression")
		return
	}
	nestedSc := c.model.Scopes.Get(fnScope)
	name := "anonymous"
	if fn.Name != source.NoStringID {
		name = c.name(fn.Name)
	}
	funcID := c.compileFunctionValue(fnScope, name, e.Span, *fn)
	fc.cur.Emit(e.Span, Operation{Code: OpFunctionLiteral, Index: uint32(funcID)})
	if nestedSc.IsClosure {
		fc.cur.Emit(e.Span, Operation{Code: OpClosureNew, Count: 1})
	}
}

// compileCall lowers callee(args...) with the calling convention (this,
// callee, args...), an order the member-call form produces without any
// extra stack shuffling (DESIGN.md's il ledger entry).
func (c *compiler) compileCall(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Call(id)
	calleeExpr := c.arenas.Exprs.Get(d.Callee)
	if calleeExpr.Kind == ast.ExprMember {
		m := c.arenas.Exprs.Member(d.Callee)
		c.compileExpr(fc, m.Object)
		fc.cur.Emit(span, Operation{Code: OpDup})
		if m.Computed {
			c.compileExpr(fc, m.PropertyExpr)
		} else {
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(m.Property)})
		}
		fc.cur.Emit(span, Operation{Code: OpObjectGet})
	} else {
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
		c.compileExpr(fc, d.Callee)
	}
	for _, a := range d.Args {
		c.compileExpr(fc, a)
	}
	fc.cur.Emit(span, Operation{Code: OpCall, Count: uint32(len(d.Args))})
}

// compileNew lowers `new Callee(args)` as a plain-object `this` passed
// through the ordinary call convention, ignoring the constructor's return
// value and any prototype chain (a deliberate simplification: the
// restricted grammar has no `class`/prototype surface to honor anyway).
func (c *compiler) compileNew(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.New_(id)
	fc.cur.Emit(span, Operation{Code: OpObjectNew})
	fc.cur.Emit(span, Operation{Code: OpDup})
	c.compileExpr(fc, d.Callee)
	for _, a := range d.Args {
		c.compileExpr(fc, a)
	}
	fc.cur.Emit(span, Operation{Code: OpCall, Count: uint32(len(d.Args))})
	fc.cur.Emit(span, Operation{Code: OpPop})
}

func (c *compiler) compileUnary(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Unary(id)
	if d.Op == ast.OpNeg {
		if operand := c.arenas.Exprs.Get(d.Operand); operand.Kind == ast.ExprNumberLit {
			text := c.name(c.arenas.Exprs.Literal(d.Operand).Value)
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Number(-parseNumberLiteral(text))})
			return
		}
	}
	c.compileExpr(fc, d.Operand)
	op, ok := mapUnaryOp(d.Op)
	if !ok {
		// typeof/void/delete: rejected at parse time (CompTypeofNotSupported
		// et al.); keep the stack well-formed by discarding the operand.
		fc.cur.Emit(span, Operation{Code: OpPop})
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
		return
	}
	fc.cur.Emit(span, Operation{Code: OpUnaryOp, Unary: op})
}

// compileUpdate lowers ++/-- per spec.md §4.2: accessor load, Dup if
// postfix, Literal 1, BinOp, accessor store, Pop if postfix. A
// SlotModuleImportExport target always takes the prefix path (returns the
// post-update value even when written postfix) since preserving the
// pre-update value there would need a scratch object/key/value triple the
// same shape the plain-slot case doesn't need — documented in DESIGN.md.
func (c *compiler) compileUpdate(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Update(id)
	b := c.targetBinding(fc, d.Operand)
	if b == nil {
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Undefined()})
		return
	}
	delta := BinAdd
	if d.Op == ast.OpDecrement {
		delta = BinSub
	}
	if d.Prefix || b.Slot.Kind == scope.SlotModuleImportExport {
		c.compileStoreTo(fc, b, span, func() {
			c.emitLoad(fc, b, span)
			fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Number(1)})
			fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: delta})
		})
		return
	}
	c.emitLoad(fc, b, span)
	fc.cur.Emit(span, Operation{Code: OpDup})
	fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Number(1)})
	fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: delta})
	c.emitStore(fc, b, span)
	fc.cur.Emit(span, Operation{Code: OpPop})
}

func (c *compiler) targetBinding(fc *funcCtx, exprID ast.ExprID) *scope.Binding {
	e := c.arenas.Exprs.Get(exprID)
	if e.Kind != ast.ExprIdent {
		c.fail("internal: non-identifier update/assignment target")
		return nil
	}
	if b := c.bindingFor(exprID); b != nil {
		return b
	}
	return c.resolveWriteTarget(fc.scope.ID, c.arenas.Exprs.Ident(exprID).Name)
}

// compileBinary folds the `(a/b)|0` integer-truncation idiom into a
// single DIVIDE_AND_TRUNC operator (spec.md §4.2), and otherwise lowers
// left, right, BinOp.
func (c *compiler) compileBinary(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Binary(id)
	if d.Op == ast.OpBitOr && c.isNumericZeroLiteral(d.Right) {
		if left := c.arenas.Exprs.Get(d.Left); left.Kind == ast.ExprBinary {
			ld := c.arenas.Exprs.Binary(d.Left)
			if ld.Op == ast.OpDiv {
				c.compileExpr(fc, ld.Left)
				c.compileExpr(fc, ld.Right)
				fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: BinDivideAndTrunc})
				return
			}
		}
	}
	c.compileExpr(fc, d.Left)
	c.compileExpr(fc, d.Right)
	fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: mapBinaryOp(d.Op)})
}

// compileLogical lowers && and || per spec.md §4.2: left, Dup, Branch to
// either the short-circuit result or the right-hand evaluation. `??`'s
// lowering was left an open question (DESIGN.md); it degrades to `||`
// once flagged.
func (c *compiler) compileLogical(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Logical(id)
	op := d.Op
	if op == ast.OpNullish {
		c.diagAt(diag.FeatNullishCoalescing, span, "'??' lowering is not defined; treating as '||'")
		op = ast.OpOrOr
	}
	c.compileExpr(fc, d.Left)
	fc.cur.Emit(span, Operation{Code: OpDup})
	rhsBlk := fc.cur.PredeclareBlock()
	shortCircuitBlk := fc.cur.PredeclareBlock()
	joinBlk := fc.cur.PredeclareBlock()
	if op == ast.OpAndAnd {
		fc.cur.Emit(span, Operation{Code: OpBranch, Targets: [2]BlockID{rhsBlk, shortCircuitBlk}})
	} else {
		fc.cur.Emit(span, Operation{Code: OpBranch, Targets: [2]BlockID{shortCircuitBlk, rhsBlk}})
	}
	base := fc.cur.Depth()

	fc.cur.StartBlock(shortCircuitBlk, base)
	fc.cur.Emit(span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})

	fc.cur.StartBlock(rhsBlk, base)
	fc.cur.Emit(span, Operation{Code: OpPop})
	c.compileExpr(fc, d.Right)
	fc.cur.Emit(span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})

	fc.cur.StartBlock(joinBlk, base)
}

func (c *compiler) compileConditional(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Conditional(id)
	c.compileExpr(fc, d.Test)
	consBlk := fc.cur.PredeclareBlock()
	altBlk := fc.cur.PredeclareBlock()
	joinBlk := fc.cur.PredeclareBlock()
	fc.cur.Emit(span, Operation{Code: OpBranch, Targets: [2]BlockID{consBlk, altBlk}})
	base := fc.cur.Depth()

	fc.cur.StartBlock(consBlk, base)
	c.compileExpr(fc, d.Consequent)
	fc.cur.Emit(span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})

	fc.cur.StartBlock(altBlk, base)
	c.compileExpr(fc, d.Alternate)
	fc.cur.Emit(span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})

	fc.cur.StartBlock(joinBlk, base+1)
}

// compileAssign lowers `target op= value`, dispatching on whether target
// is a bound identifier or a member expression (spec.md §4.2's generic
// accessor rule only covers the former; member writes always go through
// ObjectSet directly since resolve.go never binds them to a Slot).
func (c *compiler) compileAssign(fc *funcCtx, id ast.ExprID, span source.Span) {
	d := c.arenas.Exprs.Assign(id)
	target := c.arenas.Exprs.Get(d.Target)
	if target.Kind == ast.ExprMember {
		c.compileMemberAssign(fc, d, span)
		return
	}
	b := c.targetBinding(fc, d.Target)
	if b == nil {
		c.compileExpr(fc, d.Value)
		return
	}
	c.compileAssignToBinding(fc, b, d, span)
}

func (c *compiler) compileAssignToBinding(fc *funcCtx, b *scope.Binding, d *ast.ExprAssignData, span source.Span) {
	switch d.Op {
	case ast.AssignPlain:
		c.compileStoreTo(fc, b, span, func() { c.compileExpr(fc, d.Value) })
	case ast.AssignAndAnd, ast.AssignOrOr, ast.AssignNullish:
		c.compileLogicalAssign(fc, b, d, span)
	default:
		binOp, ok := mapAssignOpToBinOp(d.Op)
		if !ok {
			c.compileStoreTo(fc, b, span, func() { c.compileExpr(fc, d.Value) })
			return
		}
		c.compileStoreTo(fc, b, span, func() {
			c.emitLoad(fc, b, span)
			c.compileExpr(fc, d.Value)
			fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: binOp})
		})
	}
}

func (c *compiler) compileLogicalAssign(fc *funcCtx, b *scope.Binding, d *ast.ExprAssignData, span source.Span) {
	op := d.Op
	if op == ast.AssignNullish {
		c.diagAt(diag.FeatNullishCoalescing, span, "'??=' lowering is not defined; treating as '||='")
		op = ast.AssignOrOr
	}
	assignBlk := fc.cur.PredeclareBlock()
	joinBlk := fc.cur.PredeclareBlock()
	c.emitLoad(fc, b, span)
	fc.cur.Emit(span, Operation{Code: OpDup})
	if op == ast.AssignAndAnd {
		fc.cur.Emit(span, Operation{Code: OpBranch, Targets: [2]BlockID{assignBlk, joinBlk}})
	} else {
		fc.cur.Emit(span, Operation{Code: OpBranch, Targets: [2]BlockID{joinBlk, assignBlk}})
	}
	base := fc.cur.Depth()

	fc.cur.StartBlock(assignBlk, base)
	fc.cur.Emit(span, Operation{Code: OpPop})
	c.compileStoreTo(fc, b, span, func() { c.compileExpr(fc, d.Value) })
	fc.cur.Emit(span, Operation{Code: OpJump, Targets: [2]BlockID{joinBlk, NoBlockID}})

	fc.cur.StartBlock(joinBlk, base)
}

// compileMemberAssign lowers `o[k] = v` / `o[k] op= v` via three hidden
// scratch locals holding the object, key, and final value, since the
// object/key must be evaluated exactly once but ObjectSet needs them
// pushed *below* the value being written.
func (c *compiler) compileMemberAssign(fc *funcCtx, d *ast.ExprAssignData, span source.Span) {
	m := c.arenas.Exprs.Member(d.Target)
	c.compileExpr(fc, m.Object)
	hObj := c.allocHidden(fc)
	fc.cur.Emit(span, Operation{Code: OpStoreVar, Index: hObj})
	if m.Computed {
		c.compileExpr(fc, m.PropertyExpr)
	} else {
		fc.cur.Emit(span, Operation{Code: OpLiteral, Literal: ilvalue.Str(m.Property)})
	}
	hKey := c.allocHidden(fc)
	fc.cur.Emit(span, Operation{Code: OpStoreVar, Index: hKey})
	fc.cur.Emit(span, Operation{Code: OpPop})
	fc.cur.Emit(span, Operation{Code: OpPop})

	if d.Op == ast.AssignPlain {
		c.compileExpr(fc, d.Value)
	} else {
		binOp, ok := mapAssignOpToBinOp(d.Op)
		if !ok {
			binOp = BinAdd
		}
		fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hObj})
		fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hKey})
		fc.cur.Emit(span, Operation{Code: OpObjectGet})
		c.compileExpr(fc, d.Value)
		fc.cur.Emit(span, Operation{Code: OpBinOp, Bin: binOp})
	}
	hVal := c.allocHidden(fc)
	fc.cur.Emit(span, Operation{Code: OpStoreVar, Index: hVal})
	fc.cur.Emit(span, Operation{Code: OpPop})

	fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hObj})
	fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hKey})
	fc.cur.Emit(span, Operation{Code: OpLoadVar, Index: hVal})
	fc.cur.Emit(span, Operation{Code: OpObjectSet})
}
