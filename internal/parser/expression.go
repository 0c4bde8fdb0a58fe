package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/source"
	"microvium/internal/token"
)

// parseExpr parses a full expression, including the comma (sequence) operator.
func (p *Parser) parseExpr() ast.ExprID {
	first := p.parseAssignExpr()
	if !p.at(token.Comma) {
		return first
	}
	exprs := []ast.ExprID{first}
	for p.at(token.Comma) {
		p.advance()
		exprs = append(exprs, p.parseAssignExpr())
	}
	span := p.arenas.Exprs.Get(first).Span.Cover(p.arenas.Exprs.Get(exprs[len(exprs)-1]).Span)
	return p.arenas.Exprs.NewSequence(span, exprs)
}

// parseAssignExpr parses a right-associative assignment expression, or
// falls through to the conditional (ternary) grammar level.
func (p *Parser) parseAssignExpr() ast.ExprID {
	left := p.parseConditional()
	return p.maybeParseAssign(left)
}

func (p *Parser) maybeParseAssign(left ast.ExprID) ast.ExprID {
	op, ok := assignOpFor(p.lx.Peek().Kind)
	if !ok {
		return left
	}
	p.advance()
	right := p.parseAssignExpr()
	span := p.arenas.Exprs.Get(left).Span.Cover(p.arenas.Exprs.Get(right).Span)
	return p.arenas.Exprs.NewAssign(span, op, left, right)
}

func assignOpFor(k token.Kind) (ast.AssignOp, bool) {
	switch k {
	case token.Assign:
		return ast.AssignPlain, true
	case token.PlusAssign:
		return ast.AssignAdd, true
	case token.MinusAssign:
		return ast.AssignSub, true
	case token.StarAssign:
		return ast.AssignMul, true
	case token.SlashAssign:
		return ast.AssignDiv, true
	case token.PercentAssign:
		return ast.AssignMod, true
	case token.StarStarAssign:
		return ast.AssignPow, true
	case token.AmpAssign:
		return ast.AssignBitAnd, true
	case token.PipeAssign:
		return ast.AssignBitOr, true
	case token.CaretAssign:
		return ast.AssignBitXor, true
	case token.ShlAssign:
		return ast.AssignShl, true
	case token.ShrAssign:
		return ast.AssignShr, true
	case token.UShrAssign:
		return ast.AssignUShr, true
	case token.AndAndAssign:
		return ast.AssignAndAnd, true
	case token.OrOrAssign:
		return ast.AssignOrOr, true
	case token.QuestionQuestionAssign:
		return ast.AssignNullish, true
	default:
		return 0, false
	}
}

func (p *Parser) parseConditional() ast.ExprID {
	test := p.parseBinaryExprCont(p.parseUnary(), 1)
	if !p.at(token.Question) {
		return test
	}
	p.advance()
	cons := p.parseAssignExpr()
	p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' in conditional expression")
	alt := p.parseAssignExpr()
	span := p.arenas.Exprs.Get(test).Span.Cover(p.arenas.Exprs.Get(alt).Span)
	return p.arenas.Exprs.NewConditional(span, test, cons, alt)
}

// binOpInfo describes one binary-operator precedence level. Level 11 (**)
// is right-associative; everything else is left-associative.
type binOpInfo struct {
	level    int
	binary   ast.BinaryOp
	logical  ast.LogicalOp
	isLogic  bool
}

func opInfo(k token.Kind) (binOpInfo, bool) {
	switch k {
	case token.OrOr:
		return binOpInfo{level: 1, logical: ast.OpOrOr, isLogic: true}, true
	case token.QuestionQuestion:
		return binOpInfo{level: 1, logical: ast.OpNullish, isLogic: true}, true
	case token.AndAnd:
		return binOpInfo{level: 2, logical: ast.OpAndAnd, isLogic: true}, true
	case token.Pipe:
		return binOpInfo{level: 3, binary: ast.OpBitOr}, true
	case token.Caret:
		return binOpInfo{level: 4, binary: ast.OpBitXor}, true
	case token.Amp:
		return binOpInfo{level: 5, binary: ast.OpBitAnd}, true
	case token.EqEq:
		return binOpInfo{level: 6, binary: ast.OpEq}, true
	case token.EqEqEq:
		return binOpInfo{level: 6, binary: ast.OpStrictEq}, true
	case token.BangEq:
		return binOpInfo{level: 6, binary: ast.OpNotEq}, true
	case token.BangEqEq:
		return binOpInfo{level: 6, binary: ast.OpStrictNotEq}, true
	case token.Lt:
		return binOpInfo{level: 7, binary: ast.OpLt}, true
	case token.LtEq:
		return binOpInfo{level: 7, binary: ast.OpLtEq}, true
	case token.Gt:
		return binOpInfo{level: 7, binary: ast.OpGt}, true
	case token.GtEq:
		return binOpInfo{level: 7, binary: ast.OpGtEq}, true
	case token.KwInstanceof:
		return binOpInfo{level: 7, binary: ast.OpInstanceof}, true
	case token.KwIn:
		return binOpInfo{level: 7, binary: ast.OpIn}, true
	case token.Shl:
		return binOpInfo{level: 8, binary: ast.OpShl}, true
	case token.Shr:
		return binOpInfo{level: 8, binary: ast.OpShr}, true
	case token.UShr:
		return binOpInfo{level: 8, binary: ast.OpUShr}, true
	case token.Plus:
		return binOpInfo{level: 9, binary: ast.OpAdd}, true
	case token.Minus:
		return binOpInfo{level: 9, binary: ast.OpSub}, true
	case token.Star:
		return binOpInfo{level: 10, binary: ast.OpMul}, true
	case token.Slash:
		return binOpInfo{level: 10, binary: ast.OpDiv}, true
	case token.Percent:
		return binOpInfo{level: 10, binary: ast.OpMod}, true
	case token.StarStar:
		return binOpInfo{level: 11, binary: ast.OpPow}, true
	default:
		return binOpInfo{}, false
	}
}

// parseBinaryExprCont climbs operator precedence starting from an
// already-parsed left operand, consuming operators with level >= minLevel.
func (p *Parser) parseBinaryExprCont(left ast.ExprID, minLevel int) ast.ExprID {
	for {
		info, ok := opInfo(p.lx.Peek().Kind)
		if !ok || info.level < minLevel {
			return left
		}
		p.advance()
		nextMin := info.level + 1
		if info.level == 11 { // ** is right-associative
			nextMin = info.level
		}
		right := p.parseBinaryExprCont(p.parseUnary(), nextMin)
		span := p.arenas.Exprs.Get(left).Span.Cover(p.arenas.Exprs.Get(right).Span)
		if info.isLogic {
			left = p.arenas.Exprs.NewLogical(span, info.logical, left, right)
		} else {
			left = p.arenas.Exprs.NewBinary(span, info.binary, left, right)
		}
	}
}

func (p *Parser) parseUnary() ast.ExprID {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.Bang, token.Tilde, token.Plus, token.Minus:
		p.advance()
		operand := p.parseUnary()
		return p.arenas.Exprs.NewUnary(tok.Span.Cover(p.arenas.Exprs.Get(operand).Span), unaryOpFor(tok.Kind), operand)
	case token.KwTypeof:
		p.advance()
		p.err(diag.CompTypeofNotSupported, tok.Span, "'typeof' is not supported")
		operand := p.parseUnary()
		return p.arenas.Exprs.NewUnary(tok.Span.Cover(p.arenas.Exprs.Get(operand).Span), ast.OpTypeof, operand)
	case token.KwVoid:
		p.advance()
		p.err(diag.CompVoidNotSupported, tok.Span, "'void' is not supported")
		operand := p.parseUnary()
		return p.arenas.Exprs.NewUnary(tok.Span.Cover(p.arenas.Exprs.Get(operand).Span), ast.OpVoid, operand)
	case token.KwDelete:
		p.advance()
		p.err(diag.CompDeleteNotSupported, tok.Span, "'delete' is not supported")
		operand := p.parseUnary()
		return p.arenas.Exprs.NewUnary(tok.Span.Cover(p.arenas.Exprs.Get(operand).Span), ast.OpDelete, operand)
	case token.PlusPlus, token.MinusMinus:
		p.advance()
		operand := p.parseUnary()
		op := ast.OpIncrement
		if tok.Kind == token.MinusMinus {
			op = ast.OpDecrement
		}
		return p.arenas.Exprs.NewUpdate(tok.Span.Cover(p.arenas.Exprs.Get(operand).Span), op, operand, true)
	default:
		return p.parsePostfix()
	}
}

func unaryOpFor(k token.Kind) ast.UnaryOp {
	switch k {
	case token.Bang:
		return ast.OpNot
	case token.Tilde:
		return ast.OpBitNot
	case token.Plus:
		return ast.OpPos
	default:
		return ast.OpNeg
	}
}

func (p *Parser) parsePostfix() ast.ExprID {
	expr := p.parseCallOrMember(p.parsePrimary())
	tok := p.lx.Peek()
	if (tok.Kind == token.PlusPlus || tok.Kind == token.MinusMinus) && !tok.NewlineBefore {
		p.advance()
		op := ast.OpIncrement
		if tok.Kind == token.MinusMinus {
			op = ast.OpDecrement
		}
		return p.arenas.Exprs.NewUpdate(p.arenas.Exprs.Get(expr).Span.Cover(tok.Span), op, expr, false)
	}
	return expr
}

// parseCallOrMember chains member access, computed index, optional chaining,
// and call expressions onto a primary expression.
func (p *Parser) parseCallOrMember(expr ast.ExprID) ast.ExprID {
	for {
		switch p.lx.Peek().Kind {
		case token.Dot:
			p.advance()
			field, sp, _ := p.parseIdentName()
			expr = p.arenas.Exprs.NewMember(p.arenas.Exprs.Get(expr).Span.Cover(sp), ast.ExprMemberData{
				Object: expr, Property: field,
			})
		case token.Optional:
			p.advance()
			if p.at(token.LParen) {
				args, end := p.parseArgs()
				expr = p.arenas.Exprs.NewCall(p.arenas.Exprs.Get(expr).Span.Cover(end), expr, args)
				continue
			}
			field, sp, _ := p.parseIdentName()
			expr = p.arenas.Exprs.NewMember(p.arenas.Exprs.Get(expr).Span.Cover(sp), ast.ExprMemberData{
				Object: expr, Property: field, Optional: true,
			})
		case token.LBracket:
			p.advance()
			index := p.parseExpr()
			end, _ := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "unclosed '['")
			expr = p.arenas.Exprs.NewMember(p.arenas.Exprs.Get(expr).Span.Cover(end.Span), ast.ExprMemberData{
				Object: expr, PropertyExpr: index, Computed: true,
			})
		case token.LParen:
			args, end := p.parseArgs()
			expr = p.arenas.Exprs.NewCall(p.arenas.Exprs.Get(expr).Span.Cover(end), expr, args)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() ([]ast.ExprID, source.Span) {
	open, _ := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	var args []ast.ExprID
	for !p.at(token.RParen) && !p.at(token.EOF) {
		args = append(args, p.parseAssignExpr())
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	end, _ := p.expect(token.RParen, diag.SynUnclosedDelimiter, "unclosed '('")
	return args, open.Span.Cover(end.Span)
}
