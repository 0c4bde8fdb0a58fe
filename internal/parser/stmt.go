package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/token"
)

func (p *Parser) parseStatementList(stop token.Kind) []ast.StmtID {
	var body []ast.StmtID
	for !p.at(stop) && !p.at(token.EOF) {
		body = append(body, p.parseStatement())
	}
	return body
}

func (p *Parser) parseStatement() ast.StmtID {
	switch p.lx.Peek().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwVar, token.KwLet, token.KwConst:
		return p.parseVarDeclStatement()
	case token.KwFunction:
		return p.parseFunctionDeclStatement()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwBreak:
		return p.parseBreak()
	case token.KwContinue:
		return p.parseContinue()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwImport:
		return p.parseImport()
	case token.KwExport:
		return p.parseExport()
	case token.Semicolon:
		tok := p.advance()
		return p.arenas.Stmts.NewEmpty(tok.Span)
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlock() ast.StmtID {
	open, _ := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	body := p.parseStatementList(token.RBrace)
	close_, _ := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "unclosed '{'")
	return p.arenas.Stmts.NewBlock(open.Span.Cover(close_.Span), body)
}

func (p *Parser) parseVarDeclStatement() ast.StmtID {
	kindTok := p.advance()
	kind := ast.VarVar
	switch kindTok.Kind {
	case token.KwLet:
		kind = ast.VarLet
	case token.KwConst:
		kind = ast.VarConst
	}
	decls := p.parseVarDeclarators()
	last := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewVarDecl(kindTok.Span.Cover(last), kind, decls)
}

func (p *Parser) parseVarDeclarators() []ast.VarDeclarator {
	var decls []ast.VarDeclarator
	for {
		name, _, ok := p.parseIdentName()
		if !ok {
			p.syncTo(token.Semicolon, token.Comma)
		}
		init := ast.NoExprID
		if p.at(token.Assign) {
			p.advance()
			init = p.parseAssignExpr()
		}
		decls = append(decls, ast.VarDeclarator{Name: name, Init: init})
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	return decls
}

func (p *Parser) parseFunctionDeclStatement() ast.StmtID {
	kw := p.advance() // 'function'
	fn, span := p.parseFunctionRest(kw.Span, false)
	return p.arenas.Stmts.NewFunctionDecl(span, fn)
}
