package scope

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/source"
)

// resolver drives pass 1: scope construction, binding classification, and
// reference resolution (spec.md §4.1 "Pass 1").
type resolver struct {
	arenas   *ast.Builder
	model    *Model
	reporter diag.Reporter

	scopeStack []ScopeID
	funcStack  []ScopeID // enclosing function/module scopes, innermost last

	importNamespaces map[source.StringID]BindingID
}

// Resolve runs pass 1 over a parsed program and returns the resulting
// (not yet slot-assigned) scope Model. Call AssignSlots on the result to
// complete pass 2.
func Resolve(prog ast.ProgramID, arenas *ast.Builder, reporter diag.Reporter) *Model {
	program := arenas.Programs.Get(prog)
	model := &Model{
		Scopes:          NewScopes(16),
		Bindings:        NewBindings(32),
		freeVariableSet: make(map[source.StringID]bool),
	}
	r := &resolver{
		arenas:           arenas,
		model:            model,
		reporter:         reporter,
		importNamespaces: make(map[source.StringID]BindingID),
	}

	moduleScope := model.Scopes.New(ScopeModule, NoScopeID, program.Span)
	model.Root = moduleScope
	r.push(moduleScope, moduleScope)

	// The entry function's `this` is the module's namespace object
	// (spec.md §4.2 "receives the current module's namespace object as
	// argument 0"); model it as a Binding like any other `this`.
	thisB := model.Bindings.New(Binding{Name: source.NoStringID, Kind: BindThis, Scope: moduleScope})
	model.Scopes.Get(moduleScope).ThisBinding = thisB

	r.hoist(program.Body, moduleScope)
	r.walkStmts(program.Body)
	r.pop()

	return model
}

func (r *resolver) push(scope, funcBoundary ScopeID) {
	r.scopeStack = append(r.scopeStack, scope)
	r.funcStack = append(r.funcStack, funcBoundary)
}

func (r *resolver) pop() {
	r.scopeStack = r.scopeStack[:len(r.scopeStack)-1]
	r.funcStack = r.funcStack[:len(r.funcStack)-1]
}

func (r *resolver) current() ScopeID { return r.scopeStack[len(r.scopeStack)-1] }
func (r *resolver) currentFunc() ScopeID { return r.funcStack[len(r.funcStack)-1] }

func (r *resolver) err(code diag.Code, sp source.Span, msg string) {
	if r.reporter != nil {
		r.reporter.Report(code, diag.SevError, sp, msg, nil, nil)
	}
}

// declare registers a new binding directly in scope, reporting a duplicate
// binding diagnostic instead of overwriting an existing one.
func (r *resolver) declare(scope ScopeID, name source.StringID, kind BindingKind, span source.Span, decl ast.StmtID) BindingID {
	sc := r.model.Scopes.Get(scope)
	if existing, ok := sc.Bindings[name]; ok {
		r.err(diag.ScopeDuplicateBinding, span, "duplicate binding in this scope")
		return existing
	}
	id := r.model.Bindings.New(Binding{Name: name, Kind: kind, Span: span, Decl: decl, Scope: scope})
	sc.Bindings[name] = id
	return id
}

// hoist implements the "var hoists to the enclosing function or module
// scope; function declarations hoist similarly" rule, recursing into
// nested blocks and control-flow bodies but never into nested function or
// arrow bodies.
func (r *resolver) hoist(body []ast.StmtID, target ScopeID) {
	for _, id := range body {
		r.hoistStmt(id, target)
	}
}

func (r *resolver) hoistStmt(id ast.StmtID, target ScopeID) {
	st := r.arenas.Stmts.Get(id)
	switch st.Kind {
	case ast.StmtVarDecl:
		d := r.arenas.Stmts.VarDecl(id)
		if d.Kind != ast.VarVar {
			return
		}
		sc := r.model.Scopes.Get(target)
		for _, decl := range d.Declarators {
			if _, ok := sc.Bindings[decl.Name]; ok {
				continue
			}
			bid := r.declare(target, decl.Name, BindVar, st.Span, id)
			sc.VarDeclarations = append(sc.VarDeclarations, bid)
		}
	case ast.StmtFunctionDecl:
		fd := r.arenas.Stmts.FunctionDecl(id)
		if fd.Fn.Name == source.NoStringID {
			return
		}
		sc := r.model.Scopes.Get(target)
		if _, ok := sc.Bindings[fd.Fn.Name]; ok {
			return
		}
		bid := r.declare(target, fd.Fn.Name, BindVar, st.Span, id)
		sc.NestedFunctionDeclarations = append(sc.NestedFunctionDeclarations, bid)
	case ast.StmtBlock:
		r.hoist(r.arenas.Stmts.Block(id).Body, target)
	case ast.StmtIf:
		d := r.arenas.Stmts.If(id)
		r.hoistStmt(d.Then, target)
		if d.Else.IsValid() {
			r.hoistStmt(d.Else, target)
		}
	case ast.StmtWhile:
		r.hoistStmt(r.arenas.Stmts.While(id).Body, target)
	case ast.StmtDoWhile:
		r.hoistStmt(r.arenas.Stmts.DoWhile(id).Body, target)
	case ast.StmtFor:
		d := r.arenas.Stmts.For(id)
		if d.Init.IsValid() {
			r.hoistStmt(d.Init, target)
		}
		r.hoistStmt(d.Body, target)
	case ast.StmtForIn, ast.StmtForOf:
		d := r.arenas.Stmts.ForInOf(id)
		if d.HasDecl && d.DeclKind == ast.VarVar {
			sc := r.model.Scopes.Get(target)
			if _, ok := sc.Bindings[d.Name]; !ok {
				bid := r.declare(target, d.Name, BindVar, st.Span, id)
				sc.VarDeclarations = append(sc.VarDeclarations, bid)
			}
		}
		r.hoistStmt(d.Body, target)
	case ast.StmtSwitch:
		d := r.arenas.Stmts.Switch(id)
		for _, c := range d.Cases {
			for _, inner := range c.Body {
				r.hoistStmt(inner, target)
			}
		}
	case ast.StmtExportNamed:
		d := r.arenas.Stmts.ExportNamed(id)
		if d.Decl.IsValid() {
			r.hoistStmt(d.Decl, target)
		}
	}
}

func (r *resolver) walkStmts(body []ast.StmtID) {
	for _, id := range body {
		r.walkStmt(id)
	}
}

func (r *resolver) walkStmt(id ast.StmtID) {
	st := r.arenas.Stmts.Get(id)
	switch st.Kind {
	case ast.StmtExpression:
		r.walkExpr(r.arenas.Stmts.Expression(id).Expr)
	case ast.StmtBlock:
		block := r.model.Scopes.New(ScopeBlock, r.current(), st.Span)
		r.model.Scopes.Get(block).OwnerStmt = id
		r.push(block, r.currentFunc())
		r.walkStmts(r.arenas.Stmts.Block(id).Body)
		r.pop()
	case ast.StmtVarDecl:
		r.walkVarDecl(id, st)
	case ast.StmtFunctionDecl:
		r.walkFunctionDeclStmt(id, st)
	case ast.StmtReturn:
		v := r.arenas.Stmts.Return(id).Value
		if v.IsValid() {
			r.walkExpr(v)
		}
	case ast.StmtIf:
		d := r.arenas.Stmts.If(id)
		r.walkExpr(d.Test)
		r.walkStmt(d.Then)
		if d.Else.IsValid() {
			r.walkStmt(d.Else)
		}
	case ast.StmtWhile:
		d := r.arenas.Stmts.While(id)
		r.walkExpr(d.Test)
		r.walkStmt(d.Body)
	case ast.StmtDoWhile:
		d := r.arenas.Stmts.DoWhile(id)
		r.walkStmt(d.Body)
		r.walkExpr(d.Test)
	case ast.StmtFor:
		r.walkFor(id, st)
	case ast.StmtForIn, ast.StmtForOf:
		r.walkForInOf(id, st)
	case ast.StmtBreak, ast.StmtContinue, ast.StmtEmpty:
		// no bindings involved; restricted-subset label rejection already
		// happened at parse time.
	case ast.StmtSwitch:
		r.walkSwitch(id, st)
	case ast.StmtImport:
		r.walkImport(id)
	case ast.StmtExportNamed:
		r.walkExportNamed(id)
	case ast.StmtExportDefault:
		r.walkExpr(r.arenas.Stmts.ExportDefault(id).Value)
	}
}

func (r *resolver) walkVarDecl(id ast.StmtID, st *ast.Stmt) {
	d := r.arenas.Stmts.VarDecl(id)
	target := r.current()
	if d.Kind == ast.VarVar {
		target = r.currentFunc()
	}
	sc := r.model.Scopes.Get(target)
	for _, decl := range d.Declarators {
		var bid BindingID
		if d.Kind == ast.VarVar {
			bid = sc.Bindings[decl.Name] // already hoisted
			r.model.Scopes.Get(r.currentFunc()).Prologue = append(
				r.model.Scopes.Get(r.currentFunc()).Prologue,
				PrologueOp{Kind: OpInitVarDeclaration, Binding: bid},
			)
		} else {
			kind := BindLet
			if d.Kind == ast.VarConst {
				kind = BindConst
			}
			bid = r.declare(r.current(), decl.Name, kind, st.Span, id)
			curSc := r.model.Scopes.Get(r.current())
			curSc.LexicalDeclarations = append(curSc.LexicalDeclarations, bid)
			curSc.Prologue = append(curSc.Prologue, PrologueOp{Kind: OpInitLexicalDeclaration, Binding: bid})
		}
		if decl.Init.IsValid() {
			r.walkExpr(decl.Init)
		}
	}
}

func (r *resolver) walkFunctionDeclStmt(id ast.StmtID, st *ast.Stmt) {
	fd := r.arenas.Stmts.FunctionDecl(id)
	funcScope := r.currentFunc()
	sc := r.model.Scopes.Get(funcScope)
	bid := sc.Bindings[fd.Fn.Name] // hoisted in the pre-pass
	// Function declarations initialize ahead of every var default and
	// lexical zeroing in the same prologue, after earlier function
	// declarations in source order.
	cur := r.model.Scopes.Get(r.current())
	at := 0
	for at < len(cur.Prologue) && cur.Prologue[at].Kind == OpInitFunctionDeclaration {
		at++
	}
	op := PrologueOp{Kind: OpInitFunctionDeclaration, Binding: bid}
	cur.Prologue = append(cur.Prologue[:at], append([]PrologueOp{op}, cur.Prologue[at:]...)...)
	r.walkFunction(fd.Fn, ast.NoExprID, id, st.Span)
}

func (r *resolver) walkFor(id ast.StmtID, st *ast.Stmt) {
	d := r.arenas.Stmts.For(id)
	loopScope := r.model.Scopes.New(ScopeBlock, r.current(), st.Span)
	r.model.Scopes.Get(loopScope).OwnerStmt = id
	r.push(loopScope, r.currentFunc())
	if d.Init.IsValid() {
		r.walkStmt(d.Init)
	}
	if d.Test.IsValid() {
		r.walkExpr(d.Test)
	}
	if d.Update.IsValid() {
		r.walkExpr(d.Update)
	}
	r.walkStmt(d.Body)
	r.pop()
}

func (r *resolver) walkForInOf(id ast.StmtID, st *ast.Stmt) {
	d := r.arenas.Stmts.ForInOf(id)
	r.walkExpr(d.Object)
	loopScope := r.model.Scopes.New(ScopeBlock, r.current(), st.Span)
	r.model.Scopes.Get(loopScope).OwnerStmt = id
	r.push(loopScope, r.currentFunc())
	if d.HasDecl {
		kind := BindLet
		switch d.DeclKind {
		case ast.VarVar:
			kind = BindVar
		case ast.VarConst:
			kind = BindConst
		}
		if kind == BindVar {
			// Already hoisted to the function/module scope; this scope only
			// needs the per-iteration initializer binding recorded.
			fsc := r.model.Scopes.Get(r.currentFunc())
			if bid, ok := fsc.Bindings[d.Name]; ok {
				r.model.Scopes.Get(loopScope).Prologue = append(
					r.model.Scopes.Get(loopScope).Prologue,
					PrologueOp{Kind: OpInitVarDeclaration, Binding: bid},
				)
			}
		} else {
			bid := r.declare(loopScope, d.Name, kind, st.Span, id)
			lsc := r.model.Scopes.Get(loopScope)
			lsc.LexicalDeclarations = append(lsc.LexicalDeclarations, bid)
			lsc.Prologue = append(lsc.Prologue, PrologueOp{Kind: OpInitLexicalDeclaration, Binding: bid})
		}
	} else {
		// Plain assignment target `for (x of xs)`; resolve as a write.
		r.resolveByName(d.Name, st.Span, true)
	}
	r.walkStmt(d.Body)
	r.pop()
}

func (r *resolver) walkSwitch(id ast.StmtID, st *ast.Stmt) {
	d := r.arenas.Stmts.Switch(id)
	r.walkExpr(d.Discriminant)
	sw := r.model.Scopes.New(ScopeBlock, r.current(), st.Span)
	r.model.Scopes.Get(sw).OwnerStmt = id
	r.push(sw, r.currentFunc())
	for _, c := range d.Cases {
		if c.Test.IsValid() {
			r.walkExpr(c.Test)
		}
		r.walkStmts(c.Body)
	}
	r.pop()
}

func (r *resolver) walkImport(id ast.StmtID) {
	d := r.arenas.Stmts.Import(id)
	ns, ok := r.importNamespaces[d.Source]
	if !ok {
		ns = r.model.Bindings.New(Binding{Name: d.Source, Kind: BindImport, Scope: r.model.Root})
		r.importNamespaces[d.Source] = ns
	}
	for _, spec := range d.Specifiers {
		bid := r.declare(r.model.Root, spec.Local, BindImport, source.Span{}, id)
		b := r.model.Bindings.Get(bid)
		b.Slot = Slot{Kind: SlotModuleImportExport, Namespace: ns, PropertyName: spec.Imported}
	}
}

func (r *resolver) walkExportNamed(id ast.StmtID) {
	d := r.arenas.Stmts.ExportNamed(id)
	if d.Decl.IsValid() {
		r.walkStmt(d.Decl)
		r.markExported(d.Decl)
		return
	}
	sc := r.model.Scopes.Get(r.model.Root)
	for _, spec := range d.Specifiers {
		if bid, ok := sc.Bindings[spec.Local]; ok {
			r.model.Bindings.Get(bid).IsExported = true
		}
	}
}

func (r *resolver) markExported(declStmt ast.StmtID) {
	st := r.arenas.Stmts.Get(declStmt)
	sc := r.model.Scopes.Get(r.model.Root)
	switch st.Kind {
	case ast.StmtVarDecl:
		for _, decl := range r.arenas.Stmts.VarDecl(declStmt).Declarators {
			if bid, ok := sc.Bindings[decl.Name]; ok {
				r.model.Bindings.Get(bid).IsExported = true
			}
		}
	case ast.StmtFunctionDecl:
		name := r.arenas.Stmts.FunctionDecl(declStmt).Fn.Name
		if bid, ok := sc.Bindings[name]; ok {
			r.model.Bindings.Get(bid).IsExported = true
		}
	}
}

// walkFunction resolves a function's parameters and body in a fresh
// function scope. ownerExpr is set for function/arrow expressions,
// ownerStmt for function declarations.
func (r *resolver) walkFunction(fn ast.FunctionData, ownerExpr ast.ExprID, ownerStmt ast.StmtID, span source.Span) {
	fnScope := r.model.Scopes.New(ScopeFunction, r.current(), span)
	sc := r.model.Scopes.Get(fnScope)
	sc.OwnerExpr = ownerExpr
	sc.OwnerStmt = ownerStmt
	r.push(fnScope, fnScope)

	if !fn.IsArrow {
		thisB := r.model.Bindings.New(Binding{Name: source.NoStringID, Kind: BindThis, Scope: fnScope})
		sc.ThisBinding = thisB
	}

	for _, p := range fn.Params {
		bid := r.declare(fnScope, p, BindParam, span, ownerStmt)
		sc.ParameterBindings = append(sc.ParameterBindings, bid)
	}

	if fn.Body.IsValid() {
		r.hoist(r.arenas.Stmts.Block(fn.Body).Body, fnScope)
		r.walkStmts(r.arenas.Stmts.Block(fn.Body).Body)
	} else if fn.ExprBody.IsValid() {
		r.walkExpr(fn.ExprBody)
	}

	r.pop()
}

func (r *resolver) walkExpr(id ast.ExprID) {
	e := r.arenas.Exprs.Get(id)
	switch e.Kind {
	case ast.ExprIdent:
		name := r.arenas.Exprs.Ident(id).Name
		r.resolveIdentExpr(id, name, false)
	case ast.ExprNumberLit, ast.ExprStringLit, ast.ExprBoolLit, ast.ExprNullLit, ast.ExprUndefinedLit:
		// literal
	case ast.ExprTemplate:
		for _, part := range r.arenas.Exprs.Template(id).Parts {
			if part.Expr.IsValid() {
				r.walkExpr(part.Expr)
			}
		}
	case ast.ExprArray:
		for _, el := range r.arenas.Exprs.Array(id).Elements {
			r.walkExpr(el)
		}
	case ast.ExprObject:
		for _, prop := range r.arenas.Exprs.Object(id).Props {
			if prop.Computed {
				r.walkExpr(prop.KeyExpr)
			}
			r.walkExpr(prop.Value)
		}
	case ast.ExprFunction, ast.ExprArrow:
		fn := r.arenas.Exprs.Function(id)
		r.walkFunction(*fn, id, ast.NoStmtID, e.Span)
	case ast.ExprThis:
		r.resolveThis(id, e.Span)
	case ast.ExprCall:
		d := r.arenas.Exprs.Call(id)
		r.walkExpr(d.Callee)
		for _, a := range d.Args {
			r.walkExpr(a)
		}
	case ast.ExprNew:
		d := r.arenas.Exprs.New_(id)
		r.walkExpr(d.Callee)
		for _, a := range d.Args {
			r.walkExpr(a)
		}
	case ast.ExprMember:
		d := r.arenas.Exprs.Member(id)
		r.walkExpr(d.Object)
		if d.Computed {
			r.walkExpr(d.PropertyExpr)
		}
	case ast.ExprUnary:
		r.walkExpr(r.arenas.Exprs.Unary(id).Operand)
	case ast.ExprUpdate:
		d := r.arenas.Exprs.Update(id)
		r.walkAssignTarget(d.Operand)
	case ast.ExprBinary:
		d := r.arenas.Exprs.Binary(id)
		r.walkExpr(d.Left)
		r.walkExpr(d.Right)
	case ast.ExprLogical:
		d := r.arenas.Exprs.Logical(id)
		r.walkExpr(d.Left)
		r.walkExpr(d.Right)
	case ast.ExprAssign:
		d := r.arenas.Exprs.Assign(id)
		r.walkAssignTarget(d.Target)
		r.walkExpr(d.Value)
	case ast.ExprConditional:
		d := r.arenas.Exprs.Conditional(id)
		r.walkExpr(d.Test)
		r.walkExpr(d.Consequent)
		r.walkExpr(d.Alternate)
	case ast.ExprSequence:
		for _, sub := range r.arenas.Exprs.Sequence(id).Exprs {
			r.walkExpr(sub)
		}
	}
}

// walkAssignTarget resolves the LHS of an assignment or update expression.
// Only a bare identifier binds as a write; member-expression targets are
// walked as ordinary reads of their object/key.
func (r *resolver) walkAssignTarget(id ast.ExprID) {
	e := r.arenas.Exprs.Get(id)
	if e.Kind == ast.ExprIdent {
		name := r.arenas.Exprs.Ident(id).Name
		r.resolveIdentExpr(id, name, true)
		return
	}
	r.walkExpr(id)
}

func (r *resolver) resolveIdentExpr(exprID ast.ExprID, name source.StringID, isWrite bool) {
	span := r.arenas.Exprs.Get(exprID).Span
	bid := r.resolveByName(name, span, isWrite)
	r.model.References = append(r.model.References, Reference{Expr: exprID, Binding: bid, IsWrite: isWrite})
}

// resolveByName walks the scope chain outward from the current scope,
// marking capture and write flags, and falls back to treating an
// unresolved name as a free (host global) variable.
func (r *resolver) resolveByName(name source.StringID, span source.Span, isWrite bool) BindingID {
	crossed := false
	p := r.current()
	for p.IsValid() {
		sc := r.model.Scopes.Get(p)
		if bid, ok := sc.Bindings[name]; ok {
			b := r.model.Bindings.Get(bid)
			if crossed {
				b.IsAccessedByNestedFunction = true
			}
			if isWrite {
				if b.Kind == BindConst {
					r.err(diag.CompAssignToConst, span, "assignment to a const binding")
				}
				b.IsWrittenTo = true
			}
			return bid
		}
		if sc.Kind == ScopeFunction {
			crossed = true
		}
		p = sc.Parent
	}
	if isWrite {
		r.err(diag.ScopeUnresolvedReference, span, "assignment to an undeclared name")
	}
	if !r.model.freeVariableSet[name] {
		r.model.freeVariableSet[name] = true
		r.model.FreeVariables = append(r.model.FreeVariables, name)
	}
	return NoBindingID
}

// resolveThis finds the nearest enclosing non-arrow function's (or the
// module's) `this` binding, since arrow functions don't introduce their
// own (spec.md §4.1).
func (r *resolver) resolveThis(exprID ast.ExprID, span source.Span) {
	crossed := false
	p := r.current()
	for p.IsValid() {
		sc := r.model.Scopes.Get(p)
		isArrowFn := sc.Kind == ScopeFunction && sc.OwnerExpr.IsValid() &&
			r.arenas.Exprs.Get(sc.OwnerExpr).Kind == ast.ExprArrow
		if sc.ThisBinding.IsValid() && !isArrowFn {
			b := r.model.Bindings.Get(sc.ThisBinding)
			if crossed {
				b.IsAccessedByNestedFunction = true
			}
			r.model.References = append(r.model.References, Reference{Expr: exprID, Binding: sc.ThisBinding})
			return
		}
		if sc.Kind == ScopeFunction && !isArrowFn {
			crossed = true
		}
		p = sc.Parent
	}
	r.err(diag.ScopeInvalidThisUse, span, "'this' used outside a function")
}
