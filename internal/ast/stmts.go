package ast

import "microvium/internal/source"

// Stmts owns the Stmt arena plus one payload arena per statement kind.
type Stmts struct {
	Arena          *Arena[Stmt]
	VarDecls       *Arena[StmtVarDeclData]
	Expressions    *Arena[StmtExpressionData]
	Blocks         *Arena[StmtBlockData]
	Returns        *Arena[StmtReturnData]
	Ifs            *Arena[StmtIfData]
	Whiles         *Arena[StmtWhileData]
	DoWhiles       *Arena[StmtDoWhileData]
	Fors           *Arena[StmtForData]
	ForInOfs       *Arena[StmtForInOfData]
	Breaks         *Arena[StmtBreakData]
	Continues      *Arena[StmtContinueData]
	Switches       *Arena[StmtSwitchData]
	Imports        *Arena[StmtImportData]
	ExportsNamed   *Arena[StmtExportNamedData]
	ExportsDefault *Arena[StmtExportDefaultData]
	Functions      *Arena[StmtFunctionDeclData]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Stmts{
		Arena:          NewArena[Stmt](capHint),
		VarDecls:       NewArena[StmtVarDeclData](capHint / 4),
		Expressions:    NewArena[StmtExpressionData](capHint),
		Blocks:         NewArena[StmtBlockData](capHint / 4),
		Returns:        NewArena[StmtReturnData](capHint / 8),
		Ifs:            NewArena[StmtIfData](capHint / 8),
		Whiles:         NewArena[StmtWhileData](capHint / 16),
		DoWhiles:       NewArena[StmtDoWhileData](capHint / 32),
		Fors:           NewArena[StmtForData](capHint / 16),
		ForInOfs:       NewArena[StmtForInOfData](capHint / 32),
		Breaks:         NewArena[StmtBreakData](capHint / 32),
		Continues:      NewArena[StmtContinueData](capHint / 32),
		Switches:       NewArena[StmtSwitchData](capHint / 32),
		Imports:        NewArena[StmtImportData](capHint / 32),
		ExportsNamed:   NewArena[StmtExportNamedData](capHint / 32),
		ExportsDefault: NewArena[StmtExportDefaultData](capHint / 32),
		Functions:      NewArena[StmtFunctionDeclData](capHint / 8),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload PayloadID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: kind, Span: span, Payload: payload}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) NewVarDecl(span source.Span, kind VarKind, decls []VarDeclarator) StmtID {
	p := s.VarDecls.Allocate(StmtVarDeclData{Kind: kind, Declarators: decls})
	return s.new(StmtVarDecl, span, PayloadID(p))
}

func (s *Stmts) VarDecl(id StmtID) *StmtVarDeclData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtVarDecl {
		return nil
	}
	return s.VarDecls.Get(uint32(st.Payload))
}

func (s *Stmts) NewExpression(span source.Span, expr ExprID) StmtID {
	p := s.Expressions.Allocate(StmtExpressionData{Expr: expr})
	return s.new(StmtExpression, span, PayloadID(p))
}

func (s *Stmts) Expression(id StmtID) *StmtExpressionData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtExpression {
		return nil
	}
	return s.Expressions.Get(uint32(st.Payload))
}

func (s *Stmts) NewBlock(span source.Span, body []StmtID) StmtID {
	p := s.Blocks.Allocate(StmtBlockData{Body: body})
	return s.new(StmtBlock, span, PayloadID(p))
}

func (s *Stmts) Block(id StmtID) *StmtBlockData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtBlock {
		return nil
	}
	return s.Blocks.Get(uint32(st.Payload))
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	p := s.Returns.Allocate(StmtReturnData{Value: value})
	return s.new(StmtReturn, span, PayloadID(p))
}

func (s *Stmts) Return(id StmtID) *StmtReturnData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtReturn {
		return nil
	}
	return s.Returns.Get(uint32(st.Payload))
}

func (s *Stmts) NewIf(span source.Span, test ExprID, then, els StmtID) StmtID {
	p := s.Ifs.Allocate(StmtIfData{Test: test, Then: then, Else: els})
	return s.new(StmtIf, span, PayloadID(p))
}

func (s *Stmts) If(id StmtID) *StmtIfData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtIf {
		return nil
	}
	return s.Ifs.Get(uint32(st.Payload))
}

func (s *Stmts) NewWhile(span source.Span, test ExprID, body StmtID) StmtID {
	p := s.Whiles.Allocate(StmtWhileData{Test: test, Body: body})
	return s.new(StmtWhile, span, PayloadID(p))
}

func (s *Stmts) While(id StmtID) *StmtWhileData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtWhile {
		return nil
	}
	return s.Whiles.Get(uint32(st.Payload))
}

func (s *Stmts) NewDoWhile(span source.Span, body StmtID, test ExprID) StmtID {
	p := s.DoWhiles.Allocate(StmtDoWhileData{Body: body, Test: test})
	return s.new(StmtDoWhile, span, PayloadID(p))
}

func (s *Stmts) DoWhile(id StmtID) *StmtDoWhileData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtDoWhile {
		return nil
	}
	return s.DoWhiles.Get(uint32(st.Payload))
}

func (s *Stmts) NewFor(span source.Span, d StmtForData) StmtID {
	p := s.Fors.Allocate(d)
	return s.new(StmtFor, span, PayloadID(p))
}

func (s *Stmts) For(id StmtID) *StmtForData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtFor {
		return nil
	}
	return s.Fors.Get(uint32(st.Payload))
}

func (s *Stmts) NewForInOf(kind StmtKind, span source.Span, d StmtForInOfData) StmtID {
	p := s.ForInOfs.Allocate(d)
	return s.new(kind, span, PayloadID(p))
}

func (s *Stmts) ForInOf(id StmtID) *StmtForInOfData {
	st := s.Get(id)
	if st == nil || (st.Kind != StmtForIn && st.Kind != StmtForOf) {
		return nil
	}
	return s.ForInOfs.Get(uint32(st.Payload))
}

func (s *Stmts) NewBreak(span source.Span, label source.StringID) StmtID {
	p := s.Breaks.Allocate(StmtBreakData{Label: label})
	return s.new(StmtBreak, span, PayloadID(p))
}

func (s *Stmts) Break(id StmtID) *StmtBreakData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtBreak {
		return nil
	}
	return s.Breaks.Get(uint32(st.Payload))
}

func (s *Stmts) NewContinue(span source.Span, label source.StringID) StmtID {
	p := s.Continues.Allocate(StmtContinueData{Label: label})
	return s.new(StmtContinue, span, PayloadID(p))
}

func (s *Stmts) Continue(id StmtID) *StmtContinueData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtContinue {
		return nil
	}
	return s.Continues.Get(uint32(st.Payload))
}

func (s *Stmts) NewSwitch(span source.Span, disc ExprID, cases []SwitchCase) StmtID {
	p := s.Switches.Allocate(StmtSwitchData{Discriminant: disc, Cases: cases})
	return s.new(StmtSwitch, span, PayloadID(p))
}

func (s *Stmts) Switch(id StmtID) *StmtSwitchData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtSwitch {
		return nil
	}
	return s.Switches.Get(uint32(st.Payload))
}

func (s *Stmts) NewImport(span source.Span, d StmtImportData) StmtID {
	p := s.Imports.Allocate(d)
	return s.new(StmtImport, span, PayloadID(p))
}

func (s *Stmts) Import(id StmtID) *StmtImportData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtImport {
		return nil
	}
	return s.Imports.Get(uint32(st.Payload))
}

func (s *Stmts) NewExportNamed(span source.Span, d StmtExportNamedData) StmtID {
	p := s.ExportsNamed.Allocate(d)
	return s.new(StmtExportNamed, span, PayloadID(p))
}

func (s *Stmts) ExportNamed(id StmtID) *StmtExportNamedData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtExportNamed {
		return nil
	}
	return s.ExportsNamed.Get(uint32(st.Payload))
}

func (s *Stmts) NewExportDefault(span source.Span, value ExprID) StmtID {
	p := s.ExportsDefault.Allocate(StmtExportDefaultData{Value: value})
	return s.new(StmtExportDefault, span, PayloadID(p))
}

func (s *Stmts) ExportDefault(id StmtID) *StmtExportDefaultData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtExportDefault {
		return nil
	}
	return s.ExportsDefault.Get(uint32(st.Payload))
}

func (s *Stmts) NewFunctionDecl(span source.Span, fn FunctionData) StmtID {
	p := s.Functions.Allocate(StmtFunctionDeclData{Fn: fn})
	return s.new(StmtFunctionDecl, span, PayloadID(p))
}

func (s *Stmts) FunctionDecl(id StmtID) *StmtFunctionDeclData {
	st := s.Get(id)
	if st == nil || st.Kind != StmtFunctionDecl {
		return nil
	}
	return s.Functions.Get(uint32(st.Payload))
}

func (s *Stmts) NewEmpty(span source.Span) StmtID {
	return s.new(StmtEmpty, span, NoPayloadID)
}
