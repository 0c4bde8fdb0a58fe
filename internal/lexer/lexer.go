package lexer

import (
	"microvium/internal/diag"
	"microvium/internal/source"
	"microvium/internal/token"
)

// Lexer scans a source file into a stream of tokens for the restricted
// JavaScript-subset grammar.
type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   *token.Token
}

// New creates a Lexer over the given file.
func New(file *source.File, opts Options) *Lexer {
	return &Lexer{file: file, cursor: NewCursor(file), opts: opts}
}

func (lx *Lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.cursor.Off}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

// EmptySpan returns a zero-length span at the lexer's current position,
// used by the parser to seed spans before any token has been consumed.
func (lx *Lexer) EmptySpan() source.Span {
	return lx.emptySpan()
}

// Next returns the next significant token, with NewlineBefore recording
// whether a line terminator was skipped to reach it.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		t := *lx.look
		lx.look = nil
		return t
	}
	return lx.scan()
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	if lx.look == nil {
		t := lx.scan()
		lx.look = &t
	}
	return *lx.look
}

func (lx *Lexer) scan() token.Token {
	newline := lx.skipTrivia()

	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan(), NewlineBefore: newline}
	}

	start := lx.cursor.Off
	ch := lx.cursor.Peek()

	var tok token.Token
	switch {
	case isIdentStartByte(ch):
		tok = lx.scanIdentOrKeyword(start)
	case isDigitByte(ch):
		tok = lx.scanNumber(start)
	case ch == '"' || ch == '\'':
		tok = lx.scanString(start, ch)
	case ch == '`':
		tok = lx.scanTemplate(start)
	default:
		tok = lx.scanOperator(start)
	}
	tok.NewlineBefore = newline
	return tok
}

// skipTrivia consumes whitespace and comments, reporting whether a line
// terminator was seen along the way (needed for automatic semicolon
// insertion in the parser).
func (lx *Lexer) skipTrivia() bool {
	sawNewline := false
	for !lx.cursor.EOF() {
		ch := lx.cursor.Peek()
		switch {
		case ch == '\n':
			sawNewline = true
			lx.cursor.Advance()
		case ch == ' ' || ch == '\t' || ch == '\r':
			lx.cursor.Advance()
		case ch == '/' && lx.peekIs2('/'):
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Advance()
			}
		case ch == '/' && lx.peekIs2('*'):
			start := lx.cursor.Off
			lx.cursor.Advance()
			lx.cursor.Advance()
			closed := false
			for !lx.cursor.EOF() {
				if lx.cursor.Peek() == '\n' {
					sawNewline = true
				}
				if lx.cursor.Peek() == '*' {
					b0, b1, ok := lx.cursor.Peek2()
					if ok && b0 == '*' && b1 == '/' {
						lx.cursor.Advance()
						lx.cursor.Advance()
						closed = true
						break
					}
				}
				lx.cursor.Advance()
			}
			if !closed {
				lx.report(diag.LexUnterminatedBlock, lx.span(start), "unterminated block comment")
			}
		default:
			return sawNewline
		}
	}
	return sawNewline
}

func (lx *Lexer) peekIs2(want byte) bool {
	b0, b1, ok := lx.cursor.Peek2()
	return ok && b0 == '/' && b1 == want
}

func isIdentStartByte(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentContinueByte(b byte) bool {
	return isIdentStartByte(b) || isDigitByte(b)
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}
