package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/source"
	"microvium/internal/token"
)

// parseFunctionRest parses the shared tail of a function declaration or
// function expression: an optional name, a parameter list, and a block
// body. startSpan anchors the leading 'function' keyword.
func (p *Parser) parseFunctionRest(startSpan source.Span, anonymousOK bool) (ast.FunctionData, source.Span) {
	name := source.NoStringID
	if p.at(token.Ident) {
		name, _, _ = p.parseIdentName()
	} else if !anonymousOK {
		p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected function name")
	}
	params := p.parseParamList()
	body := p.parseBlock()
	end := p.arenas.Stmts.Get(body).Span
	return ast.FunctionData{Name: name, Params: params, Body: body, ExprBody: ast.NoExprID}, startSpan.Cover(end)
}

func (p *Parser) parseParamList() []source.StringID {
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	var params []source.StringID
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if p.at(token.LBrace) || p.at(token.LBracket) {
			p.err(diag.CompPatternParam, p.diagSpan(), "destructuring parameters are not supported")
			p.syncTo(token.Comma, token.RParen)
		} else {
			name, _, ok := p.parseIdentName()
			if ok {
				params = append(params, name)
			}
		}
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	return params
}
