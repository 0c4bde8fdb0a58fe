package lexer

import (
	"microvium/internal/diag"
	"microvium/internal/token"
)

func (lx *Lexer) scanOperator(start uint32) token.Token {
	ch := lx.cursor.Advance()

	mk := func(k token.Kind) token.Token {
		return token.Token{Kind: k, Span: lx.span(start), Text: string(lx.file.Content[start:lx.cursor.Off])}
	}

	switch ch {
	case '(':
		return mk(token.LParen)
	case ')':
		return mk(token.RParen)
	case '{':
		return mk(token.LBrace)
	case '}':
		return mk(token.RBrace)
	case '[':
		return mk(token.LBracket)
	case ']':
		return mk(token.RBracket)
	case ';':
		return mk(token.Semicolon)
	case ',':
		return mk(token.Comma)
	case ':':
		return mk(token.Colon)
	case '~':
		return mk(token.Tilde)
	case '.':
		if lx.cursor.Peek() == '.' {
			if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '.' && b1 == '.' {
				lx.cursor.Advance()
				lx.cursor.Advance()
				return mk(token.DotDotDot)
			}
		}
		return mk(token.Dot)
	case '+':
		if lx.cursor.Match('+') {
			return mk(token.PlusPlus)
		}
		if lx.cursor.Match('=') {
			return mk(token.PlusAssign)
		}
		return mk(token.Plus)
	case '-':
		if lx.cursor.Match('-') {
			return mk(token.MinusMinus)
		}
		if lx.cursor.Match('=') {
			return mk(token.MinusAssign)
		}
		return mk(token.Minus)
	case '*':
		if lx.cursor.Match('*') {
			if lx.cursor.Match('=') {
				return mk(token.StarStarAssign)
			}
			return mk(token.StarStar)
		}
		if lx.cursor.Match('=') {
			return mk(token.StarAssign)
		}
		return mk(token.Star)
	case '/':
		if lx.cursor.Match('=') {
			return mk(token.SlashAssign)
		}
		return mk(token.Slash)
	case '%':
		if lx.cursor.Match('=') {
			return mk(token.PercentAssign)
		}
		return mk(token.Percent)
	case '=':
		if lx.cursor.Peek() == '=' {
			lx.cursor.Advance()
			if lx.cursor.Match('=') {
				return mk(token.EqEqEq)
			}
			return mk(token.EqEq)
		}
		if lx.cursor.Match('>') {
			return mk(token.Arrow)
		}
		return mk(token.Assign)
	case '!':
		if lx.cursor.Peek() == '=' {
			lx.cursor.Advance()
			if lx.cursor.Match('=') {
				return mk(token.BangEqEq)
			}
			return mk(token.BangEq)
		}
		return mk(token.Bang)
	case '<':
		if lx.cursor.Match('=') {
			return mk(token.LtEq)
		}
		if lx.cursor.Match('<') {
			if lx.cursor.Match('=') {
				return mk(token.ShlAssign)
			}
			return mk(token.Shl)
		}
		return mk(token.Lt)
	case '>':
		if lx.cursor.Match('=') {
			return mk(token.GtEq)
		}
		if lx.cursor.Peek() == '>' {
			lx.cursor.Advance()
			if lx.cursor.Peek() == '>' {
				lx.cursor.Advance()
				if lx.cursor.Match('=') {
					return mk(token.UShrAssign)
				}
				return mk(token.UShr)
			}
			if lx.cursor.Match('=') {
				return mk(token.ShrAssign)
			}
			return mk(token.Shr)
		}
		return mk(token.Gt)
	case '&':
		if lx.cursor.Match('&') {
			if lx.cursor.Match('=') {
				return mk(token.AndAndAssign)
			}
			return mk(token.AndAnd)
		}
		if lx.cursor.Match('=') {
			return mk(token.AmpAssign)
		}
		return mk(token.Amp)
	case '|':
		if lx.cursor.Match('|') {
			if lx.cursor.Match('=') {
				return mk(token.OrOrAssign)
			}
			return mk(token.OrOr)
		}
		if lx.cursor.Match('=') {
			return mk(token.PipeAssign)
		}
		return mk(token.Pipe)
	case '^':
		if lx.cursor.Match('=') {
			return mk(token.CaretAssign)
		}
		return mk(token.Caret)
	case '?':
		if lx.cursor.Match('?') {
			if lx.cursor.Match('=') {
				return mk(token.QuestionQuestionAssign)
			}
			return mk(token.QuestionQuestion)
		}
		if lx.cursor.Match('.') {
			return mk(token.Optional)
		}
		return mk(token.Question)
	default:
		lx.report(diag.LexUnknownChar, lx.span(start), "unknown character")
		return mk(token.Invalid)
	}
}
