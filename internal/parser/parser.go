package parser

import (
	"slices"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/source"
	"microvium/internal/token"
)

// Options configures a parse pass.
type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough reports whether the error budget has been exhausted.
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

// Result is the outcome of parsing one file.
type Result struct {
	Program ast.ProgramID
}

// Parser holds the state for parsing a single source file into arenas
// shared across a whole compilation (ast.Builder).
type Parser struct {
	lx       *lexer.Lexer
	arenas   *ast.Builder
	fs       *source.FileSet
	fileID   source.FileID
	opts     Options
	lastSpan source.Span
}

// ParseFile is the entry point: parse one file's token stream into a Program.
// fs is used to mint virtual sub-files for template-literal interpolations.
func ParseFile(fs *source.FileSet, fileID source.FileID, lx *lexer.Lexer, arenas *ast.Builder, opts Options) Result {
	p := &Parser{
		lx:       lx,
		arenas:   arenas,
		fs:       fs,
		fileID:   fileID,
		opts:     opts,
		lastSpan: lx.EmptySpan(),
	}
	start := p.lx.Peek().Span
	body := p.parseStatementList(token.EOF)
	end := p.lastSpan
	prog := arenas.Programs.New(fileID, start.Cover(end), body)
	return Result{Program: prog}
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) atAny(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.lx.Peek().Kind)
}

func (p *Parser) advance() token.Token {
	tok := p.lx.Next()
	if tok.Kind != token.EOF && tok.Kind != token.Invalid {
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) diagSpan() source.Span {
	peek := p.lx.Peek()
	if peek.Kind == token.EOF && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return peek.Span
}

// expect consumes k or reports a syntax error and returns ok=false without
// advancing, so callers can attempt recovery.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.diagSpan()
	p.err(code, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp}, false
}

func (p *Parser) err(code diag.Code, sp source.Span, msg string) {
	if p.opts.Reporter == nil {
		return
	}
	p.opts.CurrentErrors++
	if !p.opts.Enough() {
		p.opts.Reporter.Report(code, diag.SevError, sp, msg, nil, nil)
	}
}

func (p *Parser) intern(text string) source.StringID {
	return p.arenas.StringsInterner.Intern(text)
}

func (p *Parser) parseIdentName() (source.StringID, source.Span, bool) {
	tok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected identifier")
	if !ok {
		return source.NoStringID, tok.Span, false
	}
	return p.intern(tok.Text), tok.Span, true
}

// consumeSemicolon implements automatic semicolon insertion: an explicit
// ';' is consumed; otherwise a newline, '}', or EOF before the next token
// is accepted silently, matching the restricted grammar's ASI rule.
func (p *Parser) consumeSemicolon() {
	if p.at(token.Semicolon) {
		p.advance()
		return
	}
	next := p.lx.Peek()
	if next.NewlineBefore || next.Kind == token.RBrace || next.Kind == token.EOF {
		return
	}
	p.err(diag.SynExpectSemicolon, p.diagSpan(), "expected ';'")
}

// syncTo skips tokens until one of the given kinds (or EOF) is reached,
// used to resynchronize after a statement-level parse error.
func (p *Parser) syncTo(kinds ...token.Kind) {
	for !p.at(token.EOF) && !p.atAny(kinds...) {
		p.advance()
	}
}

// checkpoint captures enough state to rewind the token stream, used to
// disambiguate a parenthesized expression from an arrow function's
// parameter list without a multi-token lookahead grammar.
type checkpoint struct {
	lx       lexer.Lexer
	lastSpan source.Span
	errs     uint
}

func (p *Parser) mark() checkpoint {
	return checkpoint{lx: *p.lx, lastSpan: p.lastSpan, errs: p.opts.CurrentErrors}
}

func (p *Parser) reset(c checkpoint) {
	*p.lx = c.lx
	p.lastSpan = c.lastSpan
	p.opts.CurrentErrors = c.errs
}
