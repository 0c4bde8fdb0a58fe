package lexer

import (
	"strings"

	"microvium/internal/diag"
	"microvium/internal/token"
)

// scanString scans a single- or double-quoted string literal, resolving
// escape sequences into Text so downstream stages never see raw escapes.
func (lx *Lexer) scanString(start uint32, quote byte) token.Token {
	lx.cursor.Advance() // opening quote
	var sb strings.Builder
	closed := false
	for !lx.cursor.EOF() {
		ch := lx.cursor.Peek()
		if ch == quote {
			lx.cursor.Advance()
			closed = true
			break
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' {
			lx.cursor.Advance()
			sb.WriteByte(lx.resolveEscape())
			continue
		}
		sb.WriteByte(ch)
		lx.cursor.Advance()
	}
	if !closed {
		lx.report(diag.LexUnterminatedString, lx.span(start), "unterminated string literal")
	}
	return token.Token{Kind: token.StringLit, Span: lx.span(start), Text: sb.String()}
}

// scanTemplate scans a template literal. Substitutions (`${...}`) are kept
// verbatim in Text; the parser re-lexes the expression portions.
func (lx *Lexer) scanTemplate(start uint32) token.Token {
	lx.cursor.Advance() // opening backtick
	closed := false
	for !lx.cursor.EOF() {
		ch := lx.cursor.Peek()
		if ch == '`' {
			lx.cursor.Advance()
			closed = true
			break
		}
		if ch == '\\' {
			lx.cursor.Advance()
			if !lx.cursor.EOF() {
				lx.cursor.Advance()
			}
			continue
		}
		if ch == '$' {
			if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '$' && b1 == '{' {
				lx.cursor.Advance()
				lx.cursor.Advance()
				depth := 1
				for !lx.cursor.EOF() && depth > 0 {
					switch lx.cursor.Peek() {
					case '{':
						depth++
					case '}':
						depth--
					}
					lx.cursor.Advance()
				}
				continue
			}
		}
		lx.cursor.Advance()
	}
	if !closed {
		lx.report(diag.LexUnterminatedString, lx.span(start), "unterminated template literal")
	}
	text := string(lx.file.Content[start:lx.cursor.Off])
	return token.Token{Kind: token.TemplateStringLit, Span: lx.span(start), Text: text}
}

func (lx *Lexer) resolveEscape() byte {
	if lx.cursor.EOF() {
		return '\\'
	}
	ch := lx.cursor.Advance()
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\', '\'', '"', '`':
		return ch
	default:
		return ch
	}
}
