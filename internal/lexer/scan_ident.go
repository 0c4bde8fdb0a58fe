package lexer

import "microvium/internal/token"

func (lx *Lexer) scanIdentOrKeyword(start uint32) token.Token {
	for !lx.cursor.EOF() && isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Advance()
	}
	text := string(lx.file.Content[start:lx.cursor.Off])
	kind := token.Ident
	if kw, ok := token.LookupKeyword(text); ok {
		kind = kw
	}
	return token.Token{Kind: kind, Span: lx.span(start), Text: text}
}
