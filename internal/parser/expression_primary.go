package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/source"
	"microvium/internal/token"
)

func (p *Parser) parsePrimary() ast.ExprID {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.Ident:
		if arrow, ok := p.tryBareArrow(); ok {
			return arrow
		}
		p.advance()
		return p.arenas.Exprs.NewIdent(tok.Span, p.intern(tok.Text))
	case token.NumberLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(ast.ExprNumberLit, tok.Span, p.intern(tok.Text))
	case token.StringLit:
		p.advance()
		return p.arenas.Exprs.NewLiteral(ast.ExprStringLit, tok.Span, p.intern(tok.Text))
	case token.TemplateStringLit:
		p.advance()
		return p.parseTemplateLiteral(tok)
	case token.KwTrue, token.KwFalse:
		p.advance()
		return p.arenas.Exprs.NewLiteral(ast.ExprBoolLit, tok.Span, p.intern(tok.Text))
	case token.KwNull:
		p.advance()
		return p.arenas.Exprs.NewNullLit(tok.Span)
	case token.KwUndefined:
		p.advance()
		return p.arenas.Exprs.NewUndefinedLit(tok.Span)
	case token.KwThis:
		p.advance()
		return p.arenas.Exprs.NewThis(tok.Span)
	case token.KwSuper:
		p.advance()
		p.err(diag.CompSuperNotSupported, tok.Span, "'super' is not supported")
		return p.arenas.Exprs.NewThis(tok.Span)
	case token.KwFunction:
		return p.parseFunctionExpr()
	case token.KwNew:
		return p.parseNewExpr()
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	case token.LParen:
		if params, span, ok := p.tryParseArrowFunctionParams(); ok {
			return p.parseArrowBody(params, span)
		}
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
		return inner
	default:
		p.err(diag.SynExpectExpression, tok.Span, "expected expression")
		p.advance()
		return p.arenas.Exprs.NewUndefinedLit(tok.Span)
	}
}

// tryBareArrow speculatively parses `ident => body`, rewinding if the
// arrow token is not found.
func (p *Parser) tryBareArrow() (ast.ExprID, bool) {
	cp := p.mark()
	nameTok := p.advance()
	if p.at(token.Arrow) {
		p.advance()
		return p.parseArrowBody([]source.StringID{p.intern(nameTok.Text)}, nameTok.Span), true
	}
	p.reset(cp)
	return ast.NoExprID, false
}

// tryParseArrowFunctionParams speculatively scans `(ident, ident, ...) =>`,
// rewinding on any shape it can't confirm as an arrow parameter list.
func (p *Parser) tryParseArrowFunctionParams() ([]source.StringID, source.Span, bool) {
	cp := p.mark()
	open := p.advance() // '('
	var params []source.StringID
	ok := true
	for !p.at(token.RParen) {
		if !p.at(token.Ident) {
			ok = false
			break
		}
		tok := p.advance()
		params = append(params, p.intern(tok.Text))
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if ok && p.at(token.RParen) {
		p.advance()
		if p.at(token.Arrow) {
			arrow := p.advance()
			return params, open.Span.Cover(arrow.Span), true
		}
	}
	p.reset(cp)
	return nil, source.Span{}, false
}

func (p *Parser) parseArrowBody(params []source.StringID, headSpan source.Span) ast.ExprID {
	fn := ast.FunctionData{Params: params, IsArrow: true, Body: ast.NoStmtID, ExprBody: ast.NoExprID}
	span := headSpan
	if p.at(token.LBrace) {
		fn.Body = p.parseBlock()
		span = span.Cover(p.arenas.Stmts.Get(fn.Body).Span)
	} else {
		fn.ExprBody = p.parseAssignExpr()
		span = span.Cover(p.arenas.Exprs.Get(fn.ExprBody).Span)
	}
	return p.arenas.Exprs.NewFunction(ast.ExprArrow, span, fn)
}

func (p *Parser) parseFunctionExpr() ast.ExprID {
	kw := p.advance() // 'function'
	fn, span := p.parseFunctionRest(kw.Span, true)
	return p.arenas.Exprs.NewFunction(ast.ExprFunction, span, fn)
}

func (p *Parser) parseNewExpr() ast.ExprID {
	kw := p.advance()
	callee := p.parsePrimaryNoCall()
	var args []ast.ExprID
	end := p.arenas.Exprs.Get(callee).Span
	if p.at(token.LParen) {
		var argsSpan source.Span
		args, argsSpan = p.parseArgs()
		end = argsSpan
	}
	return p.arenas.Exprs.NewNew(kw.Span.Cover(end), callee, args)
}

// parsePrimaryNoCall parses a primary expression for use as a `new` target,
// where member access binds but a trailing '(' belongs to `new`, not to a
// nested call on the callee.
func (p *Parser) parsePrimaryNoCall() ast.ExprID {
	expr := p.parsePrimary()
	for p.at(token.Dot) || p.at(token.LBracket) {
		member := ast.ExprMemberData{Object: expr}
		var end source.Span
		if p.advance().Kind == token.Dot {
			member.Property, end, _ = p.parseIdentName()
		} else {
			member.PropertyExpr, member.Computed = p.parseExpr(), true
			tok, _ := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "unclosed '['")
			end = tok.Span
		}
		expr = p.arenas.Exprs.NewMember(p.arenas.Exprs.Get(expr).Span.Cover(end), member)
	}
	return expr
}

func (p *Parser) parseArrayLiteral() ast.ExprID {
	open := p.advance()
	var elements []ast.ExprID
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		elements = append(elements, p.parseAssignExpr())
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	end, _ := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "unclosed '['")
	return p.arenas.Exprs.NewArray(open.Span.Cover(end.Span), elements)
}

func (p *Parser) parseObjectLiteral() ast.ExprID {
	open := p.advance()
	var props []ast.ObjectProp
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		prop := p.parseObjectProp()
		props = append(props, prop)
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	end, _ := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "unclosed '{'")
	return p.arenas.Exprs.NewObject(open.Span.Cover(end.Span), props)
}

func (p *Parser) parseObjectProp() ast.ObjectProp {
	if p.at(token.LBracket) {
		p.advance()
		keyExpr := p.parseAssignExpr()
		p.expect(token.RBracket, diag.SynUnclosedDelimiter, "unclosed '['")
		p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':'")
		value := p.parseAssignExpr()
		return ast.ObjectProp{Computed: true, KeyExpr: keyExpr, Value: value}
	}

	var key source.StringID
	switch tok := p.lx.Peek(); tok.Kind {
	case token.StringLit, token.NumberLit:
		p.advance()
		key = p.intern(tok.Text)
	default:
		name, _, _ := p.parseIdentName()
		key = name
	}

	if p.at(token.Colon) {
		p.advance()
		value := p.parseAssignExpr()
		return ast.ObjectProp{Key: key, Value: value}
	}
	// Shorthand `{ x }` desugars to `{ x: x }`.
	value := p.arenas.Exprs.NewIdent(p.lastSpan, key)
	return ast.ObjectProp{Key: key, Value: value}
}

// parseTemplateLiteral splits a template literal's raw text into literal
// chunks and `${...}` substitutions, re-parsing each substitution through a
// fresh sub-parser over a virtual file threaded through the shared FileSet
// and string interner.
func (p *Parser) parseTemplateLiteral(tok token.Token) ast.ExprID {
	raw := tok.Text
	// Strip surrounding backticks.
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	var parts []ast.TemplatePart
	i := 0
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, ast.TemplatePart{Literal: p.intern(string(lit)), Expr: ast.NoExprID})
			lit = nil
		}
	}
	for i < len(raw) {
		if raw[i] == '\\' && i+1 < len(raw) {
			lit = append(lit, raw[i+1])
			i += 2
			continue
		}
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			flush()
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			exprText := raw[i+2 : j]
			parts = append(parts, ast.TemplatePart{Expr: p.parseSubExpression(exprText)})
			i = j + 1
			continue
		}
		lit = append(lit, raw[i])
		i++
	}
	flush()
	return p.arenas.Exprs.NewTemplate(tok.Span, parts)
}

// parseSubExpression re-lexes and parses an interpolation's source text as
// an independent expression, using a virtual file minted from the shared
// FileSet so its spans remain addressable for diagnostics.
func (p *Parser) parseSubExpression(text string) ast.ExprID {
	fid := p.fs.AddVirtual("<template>", []byte(text))
	file := p.fs.Get(fid)
	sub := &Parser{
		lx:     lexer.New(file, lexer.Options{Reporter: p.opts.Reporter}),
		arenas: p.arenas,
		fs:     p.fs,
		fileID: fid,
		opts:   p.opts,
	}
	sub.lastSpan = sub.lx.EmptySpan()
	expr := sub.parseExpr()
	p.opts.CurrentErrors = sub.opts.CurrentErrors
	return expr
}
