package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/source"
	"microvium/internal/token"
)

func (p *Parser) parseReturn() ast.StmtID {
	kw := p.advance()
	value := ast.NoExprID
	next := p.lx.Peek()
	if !next.NewlineBefore && next.Kind != token.Semicolon && next.Kind != token.RBrace && next.Kind != token.EOF {
		value = p.parseExpr()
	}
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewReturn(kw.Span.Cover(end), value)
}

func (p *Parser) parseIf() ast.StmtID {
	kw := p.advance()
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	test := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	then := p.parseStatement()
	els := ast.NoStmtID
	end := p.arenas.Stmts.Get(then).Span
	if p.at(token.KwElse) {
		p.advance()
		els = p.parseStatement()
		end = p.arenas.Stmts.Get(els).Span
	}
	return p.arenas.Stmts.NewIf(kw.Span.Cover(end), test, then, els)
}

func (p *Parser) parseWhile() ast.StmtID {
	kw := p.advance()
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	test := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	body := p.parseStatement()
	end := p.arenas.Stmts.Get(body).Span
	return p.arenas.Stmts.NewWhile(kw.Span.Cover(end), test, body)
}

func (p *Parser) parseDoWhile() ast.StmtID {
	kw := p.advance()
	body := p.parseStatement()
	p.expect(token.KwWhile, diag.SynExpectExpression, "expected 'while'")
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	test := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewDoWhile(kw.Span.Cover(end), body, test)
}

// parseFor handles the classic C-style for, and for-in / for-of loops,
// disambiguating by scanning past the loop variable declaration.
func (p *Parser) parseFor() ast.StmtID {
	kw := p.advance()
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")

	declKind := ast.VarVar
	hasDecl := false
	if p.atAny(token.KwVar, token.KwLet, token.KwConst) {
		hasDecl = true
		switch p.advance().Kind {
		case token.KwLet:
			declKind = ast.VarLet
		case token.KwConst:
			declKind = ast.VarConst
		}
	}

	if hasDecl || p.at(token.Ident) {
		nameSave := p.lx.Peek()
		if p.at(token.Ident) {
			// Look ahead for `in` / `of` without permanently consuming on failure.
			name, _, ok := p.parseIdentName()
			if ok && p.atAny(token.KwIn, token.KwOf) {
				isOf := p.advance().Kind == token.KwOf
				object := p.parseExpr()
				p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
				body := p.parseStatement()
				end := p.arenas.Stmts.Get(body).Span
				kind := ast.StmtForIn
				if isOf {
					kind = ast.StmtForOf
				}
				return p.arenas.Stmts.NewForInOf(kind, kw.Span.Cover(end), ast.StmtForInOfData{
					DeclKind: declKind, HasDecl: hasDecl, Name: name, Object: object, Body: body,
				})
			}
			// Not a for-in/of: fall through to classic for, reconstructing the
			// declarator(s) we already consumed the first identifier of.
			return p.parseClassicForTail(kw.Span, hasDecl, declKind, name, nameSave.Span)
		}
	}
	return p.parseClassicForTail(kw.Span, hasDecl, declKind, source.NoStringID, source.Span{})
}

func (p *Parser) parseClassicForTail(kwSpan source.Span, hasDecl bool, declKind ast.VarKind, firstName source.StringID, firstNameSpan source.Span) ast.StmtID {
	var initStmt ast.StmtID = ast.NoStmtID
	if hasDecl {
		var decls []ast.VarDeclarator
		if firstName != source.NoStringID {
			init := ast.NoExprID
			if p.at(token.Assign) {
				p.advance()
				init = p.parseAssignExpr()
			}
			decls = append(decls, ast.VarDeclarator{Name: firstName, Init: init})
			for p.at(token.Comma) {
				p.advance()
				more := p.parseVarDeclarators()
				decls = append(decls, more...)
			}
		} else {
			decls = p.parseVarDeclarators()
		}
		initStmt = p.arenas.Stmts.NewVarDecl(firstNameSpan, declKind, decls)
	} else if firstName != source.NoStringID {
		expr := p.arenas.Exprs.NewIdent(firstNameSpan, firstName)
		expr = p.parseBinaryExprCont(expr, 0)
		expr = p.maybeParseAssign(expr)
		initStmt = p.arenas.Stmts.NewExpression(firstNameSpan, expr)
	} else if !p.at(token.Semicolon) {
		expr := p.parseExpr()
		initStmt = p.arenas.Stmts.NewExpression(p.arenas.Exprs.Get(expr).Span, expr)
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'")

	test := ast.NoExprID
	if !p.at(token.Semicolon) {
		test = p.parseExpr()
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'")

	update := ast.NoExprID
	if !p.at(token.RParen) {
		update = p.parseExpr()
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")

	body := p.parseStatement()
	end := p.arenas.Stmts.Get(body).Span
	return p.arenas.Stmts.NewFor(kwSpan.Cover(end), ast.StmtForData{
		Init: initStmt, Test: test, Update: update, Body: body,
	})
}

func (p *Parser) parseBreak() ast.StmtID {
	kw := p.advance()
	label := source.NoStringID
	if p.at(token.Ident) && !p.lx.Peek().NewlineBefore {
		label, _, _ = p.parseIdentName()
		p.err(diag.CompLabelledBreak, kw.Span, "labelled break is not supported")
	}
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewBreak(kw.Span.Cover(end), label)
}

func (p *Parser) parseContinue() ast.StmtID {
	kw := p.advance()
	label := source.NoStringID
	if p.at(token.Ident) && !p.lx.Peek().NewlineBefore {
		label, _, _ = p.parseIdentName()
		p.err(diag.CompLabelledBreak, kw.Span, "labelled continue is not supported")
	}
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewContinue(kw.Span.Cover(end), label)
}

func (p *Parser) parseSwitch() ast.StmtID {
	kw := p.advance()
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	disc := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")

	var cases []ast.SwitchCase
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		test := ast.NoExprID
		if p.at(token.KwCase) {
			p.advance()
			test = p.parseExpr()
		} else {
			p.expect(token.KwDefault, diag.SynUnexpectedToken, "expected 'case' or 'default'")
		}
		p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':'")
		var body []ast.StmtID
		for !p.atAny(token.KwCase, token.KwDefault, token.RBrace) && !p.at(token.EOF) {
			body = append(body, p.parseStatement())
		}
		cases = append(cases, ast.SwitchCase{Test: test, Body: body})
	}
	end, _ := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "unclosed '{'")
	return p.arenas.Stmts.NewSwitch(kw.Span.Cover(end.Span), disc, cases)
}

func (p *Parser) parseExpressionStatement() ast.StmtID {
	expr := p.parseExpr()
	start := p.arenas.Exprs.Get(expr).Span
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewExpression(start.Cover(end), expr)
}
