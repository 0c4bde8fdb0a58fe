package lexer

import (
	"microvium/internal/diag"
	"microvium/internal/token"
)

// scanNumber scans a decimal, hex, octal, or binary numeric literal,
// including a fractional part and exponent. Microvium numbers are IEEE-754
// doubles; the lexer only validates shape, not range.
func (lx *Lexer) scanNumber(start uint32) token.Token {
	if lx.cursor.Peek() == '0' {
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '0' && (b1 == 'x' || b1 == 'X') {
			return lx.scanRadixInt(start, isHexByte)
		}
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '0' && (b1 == 'o' || b1 == 'O') {
			return lx.scanRadixInt(start, isOctalByte)
		}
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '0' && (b1 == 'b' || b1 == 'B') {
			return lx.scanRadixInt(start, isBinaryByte)
		}
	}

	for !lx.cursor.EOF() && isDigitByte(lx.cursor.Peek()) {
		lx.cursor.Advance()
	}
	if !lx.cursor.EOF() && lx.cursor.Peek() == '.' {
		if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '.' && isDigitByte(b1) {
			lx.cursor.Advance()
			for !lx.cursor.EOF() && isDigitByte(lx.cursor.Peek()) {
				lx.cursor.Advance()
			}
		}
	}
	if !lx.cursor.EOF() && (lx.cursor.Peek() == 'e' || lx.cursor.Peek() == 'E') {
		save := lx.cursor.Off
		lx.cursor.Advance()
		if !lx.cursor.EOF() && (lx.cursor.Peek() == '+' || lx.cursor.Peek() == '-') {
			lx.cursor.Advance()
		}
		if !lx.cursor.EOF() && isDigitByte(lx.cursor.Peek()) {
			for !lx.cursor.EOF() && isDigitByte(lx.cursor.Peek()) {
				lx.cursor.Advance()
			}
		} else {
			lx.cursor.Off = save
		}
	}

	text := string(lx.file.Content[start:lx.cursor.Off])
	return token.Token{Kind: token.NumberLit, Span: lx.span(start), Text: text}
}

func (lx *Lexer) scanRadixInt(start uint32, digit func(byte) bool) token.Token {
	lx.cursor.Advance() // '0'
	lx.cursor.Advance() // x/o/b
	count := 0
	for !lx.cursor.EOF() && digit(lx.cursor.Peek()) {
		lx.cursor.Advance()
		count++
	}
	if count == 0 {
		lx.report(diag.LexBadNumber, lx.span(start), "malformed numeric literal")
	}
	text := string(lx.file.Content[start:lx.cursor.Off])
	return token.Token{Kind: token.NumberLit, Span: lx.span(start), Text: text}
}

func isHexByte(b byte) bool {
	return isDigitByte(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isOctalByte(b byte) bool { return b >= '0' && b <= '7' }

func isBinaryByte(b byte) bool { return b == '0' || b == '1' }
