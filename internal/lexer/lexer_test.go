package lexer_test

import (
	"testing"

	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/source"
	"microvium/internal/token"
)

func lexAll(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	fid := fs.AddVirtual("test.mvms", []byte(src))
	f := fs.Get(fid)
	bag := diag.NewBag(100)
	lx := lexer.New(f, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})

	var toks []token.Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, bag
}

func TestLexKeywordsAndIdents(t *testing.T) {
	toks, bag := lexAll(t, "let x = foo;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []token.Kind{token.KwLet, token.Ident, token.Assign, token.Ident, token.Semicolon, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestLexNumbers(t *testing.T) {
	toks, bag := lexAll(t, "1 3.14 0xFF 0b101 1e10")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	for i := 0; i < 5; i++ {
		if toks[i].Kind != token.NumberLit {
			t.Errorf("token %d: got %s, want number", i, toks[i].Kind)
		}
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, bag := lexAll(t, `"a\nb"`)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if toks[0].Text != "a\nb" {
		t.Errorf("got %q, want %q", toks[0].Text, "a\nb")
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, bag := lexAll(t, `"unterminated`)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	if bag.Items()[0].Code != diag.LexUnterminatedString {
		t.Errorf("got code %v, want LexUnterminatedString", bag.Items()[0].Code)
	}
}

func TestLexOperators(t *testing.T) {
	toks, bag := lexAll(t, "=> === !== ??= ** >>> ?.")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := []token.Kind{
		token.Arrow, token.EqEqEq, token.BangEqEq, token.QuestionQuestionAssign,
		token.StarStar, token.UShr, token.Optional, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestLexLineComment(t *testing.T) {
	toks, bag := lexAll(t, "1 // comment\n2")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if !toks[1].NewlineBefore {
		t.Error("expected NewlineBefore on token after line comment")
	}
}
