package token

import "microvium/internal/source"

// Token represents a single source token with its location and text.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
	// NewlineBefore records whether a line terminator appeared between this
	// token and the previous one, which the parser needs for automatic
	// semicolon insertion.
	NewlineBefore bool
}

// IsLiteral reports whether the token is a numeric, string, template,
// boolean, null, or undefined literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case NumberLit, StringLit, TemplateStringLit, KwTrue, KwFalse, KwNull, KwUndefined:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is a plain identifier (not a keyword).
func (t Token) IsIdent() bool { return t.Kind == Ident }
