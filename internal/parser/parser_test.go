package parser

import (
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/source"
	"microvium/internal/token"
)

func parseTestInput(t *testing.T, input string) (ast.ProgramID, *ast.Builder, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.mvm", []byte(input))
	file := fs.Get(fileID)

	bag := diag.NewBag(100)
	reporter := diag.BagReporter{Bag: bag}

	lx := lexer.New(file, lexer.Options{Reporter: reporter})
	arenas := ast.NewBuilder(ast.Hints{})

	result := ParseFile(fs, fileID, lx, arenas, Options{MaxErrors: 100, Reporter: reporter})
	return result.Program, arenas, bag
}

func firstStmt(t *testing.T, prog ast.ProgramID, arenas *ast.Builder) *ast.Stmt {
	t.Helper()
	p := arenas.Programs.Get(prog)
	if len(p.Body) == 0 {
		t.Fatal("expected at least one statement")
	}
	return arenas.Stmts.Get(p.Body[0])
}

func TestParseVarDeclLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"number", "let x = 42;"},
		{"float", "let x = 3.14;"},
		{"string", "let x = \"hello\";"},
		{"true", "let x = true;"},
		{"false", "let x = false;"},
		{"null", "let x = null;"},
		{"undefined", "let x = undefined;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, arenas, bag := parseTestInput(t, tt.input)
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %d", bag.Len())
			}
			st := firstStmt(t, prog, arenas)
			if st.Kind != ast.StmtVarDecl {
				t.Fatalf("expected var decl, got %v", st.Kind)
			}
			decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
			if decl.Declarators[0].Init == ast.NoExprID {
				t.Fatal("expected initializer")
			}
		})
	}
}

func firstProgStmt(arenas *ast.Builder, prog ast.ProgramID) ast.StmtID {
	return arenas.Programs.Get(prog).Body[0]
}

func TestParseBinaryPrecedence(t *testing.T) {
	// `a + b * c` must parse as `a + (b * c)`.
	prog, arenas, bag := parseTestInput(t, "let x = a + b * c;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	top := arenas.Exprs.Binary(decl.Declarators[0].Init)
	if top == nil || top.Op != ast.OpAdd {
		t.Fatalf("expected top-level '+'")
	}
	rhs := arenas.Exprs.Binary(top.Right)
	if rhs == nil || rhs.Op != ast.OpMul {
		t.Fatalf("expected '*' nested on the right of '+'")
	}
}

func TestParseExponentIsRightAssociative(t *testing.T) {
	// `a ** b ** c` must parse as `a ** (b ** c)`.
	prog, arenas, bag := parseTestInput(t, "let x = a ** b ** c;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	top := arenas.Exprs.Binary(decl.Declarators[0].Init)
	if top == nil || top.Op != ast.OpPow {
		t.Fatalf("expected top-level '**'")
	}
	rhs := arenas.Exprs.Binary(top.Right)
	if rhs == nil || rhs.Op != ast.OpPow {
		t.Fatalf("expected '**' nested on the right")
	}
}

func TestParseArrowFunctionBareParam(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let f = x => x + 1;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	fn := arenas.Exprs.Function(decl.Declarators[0].Init)
	if fn == nil || !fn.IsArrow {
		t.Fatal("expected arrow function")
	}
	if len(fn.Params) != 1 || fn.ExprBody == ast.NoExprID {
		t.Fatal("expected one param and an expression body")
	}
}

func TestParseArrowFunctionParenParams(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let f = (a, b) => { return a + b; };")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	fn := arenas.Exprs.Function(decl.Declarators[0].Init)
	if fn == nil || !fn.IsArrow {
		t.Fatal("expected arrow function")
	}
	if len(fn.Params) != 2 || fn.Body == ast.NoStmtID {
		t.Fatal("expected two params and a block body")
	}
}

func TestParseParenthesizedExpressionIsNotArrow(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let x = (a + b) * c;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	top := arenas.Exprs.Binary(decl.Declarators[0].Init)
	if top == nil || top.Op != ast.OpMul {
		t.Fatalf("expected top-level '*'")
	}
	lhs := arenas.Exprs.Binary(top.Left)
	if lhs == nil || lhs.Op != ast.OpAdd {
		t.Fatalf("expected '(a + b)' to parse as a binary '+' node")
	}
}

func TestParseTemplateLiteralInterpolation(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let x = `hello ${a + 1}!`;")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	tmpl := arenas.Exprs.Template(decl.Declarators[0].Init)
	if tmpl == nil || len(tmpl.Parts) != 3 {
		t.Fatalf("expected 3 template parts, got %v", tmpl)
	}
	if tmpl.Parts[1].Expr == ast.NoExprID {
		t.Fatal("expected the interpolation to hold a parsed expression")
	}
	mid := arenas.Exprs.Binary(tmpl.Parts[1].Expr)
	if mid == nil || mid.Op != ast.OpAdd {
		t.Fatal("expected the interpolation to parse 'a + 1' as a binary expression")
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "if (a) { b(); } else { c(); } while (d) { e(); }")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	p := arenas.Programs.Get(prog)
	if len(p.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(p.Body))
	}
	ifStmt := arenas.Stmts.Get(p.Body[0])
	if ifStmt.Kind != ast.StmtIf {
		t.Fatalf("expected if statement, got %v", ifStmt.Kind)
	}
	whileStmt := arenas.Stmts.Get(p.Body[1])
	if whileStmt.Kind != ast.StmtWhile {
		t.Fatalf("expected while statement, got %v", whileStmt.Kind)
	}
}

func TestParseForOfLoop(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "for (let item of items) { use(item); }")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	st := firstStmt(t, prog, arenas)
	if st.Kind != ast.StmtForOf {
		t.Fatalf("expected for-of statement, got %v", st.Kind)
	}
}

func TestParseClassicForLoop(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "for (let i = 0; i < 10; i++) { sum += i; }")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	st := firstStmt(t, prog, arenas)
	if st.Kind != ast.StmtFor {
		t.Fatalf("expected classic for statement, got %v", st.Kind)
	}
}

func TestParseNewExpression(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let x = new Foo(1, 2);")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	n := arenas.Exprs.New_(decl.Declarators[0].Init)
	if n == nil || len(n.Args) != 2 {
		t.Fatalf("expected a new-expression with 2 args")
	}
}

func TestParseObjectAndArrayLiterals(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let x = { a: 1, b };")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	decl := arenas.Stmts.VarDecl(firstProgStmt(arenas, prog))
	obj := arenas.Exprs.Object(decl.Declarators[0].Init)
	if obj == nil || len(obj.Props) != 2 {
		t.Fatalf("expected 2 object properties")
	}

	prog2, arenas2, bag2 := parseTestInput(t, "let y = [1, 2, 3];")
	if bag2.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag2.Len())
	}
	decl2 := arenas2.Stmts.VarDecl(firstProgStmt(arenas2, prog2))
	arr := arenas2.Exprs.Array(decl2.Declarators[0].Init)
	if arr == nil || len(arr.Elements) != 3 {
		t.Fatalf("expected 3 array elements")
	}
}

func TestRestrictedSubsetRejectsTypeof(t *testing.T) {
	_, _, bag := parseTestInput(t, "let x = typeof a;")
	if bag.Len() == 0 {
		t.Fatal("expected a diagnostic for 'typeof'")
	}
	if bag.Items()[0].Code != diag.CompTypeofNotSupported {
		t.Fatalf("expected CompTypeofNotSupported, got %v", bag.Items()[0].Code)
	}
}

func TestRestrictedSubsetRejectsLabelledBreak(t *testing.T) {
	_, _, bag := parseTestInput(t, "while (true) { break loop; }")
	if bag.Len() == 0 {
		t.Fatal("expected a diagnostic for labelled break")
	}
}

func TestRestrictedSubsetRejectsDestructuringParam(t *testing.T) {
	_, _, bag := parseTestInput(t, "function f({a, b}) { return a; }")
	if bag.Len() == 0 {
		t.Fatal("expected a diagnostic for a destructuring parameter")
	}
	if bag.Items()[0].Code != diag.CompPatternParam {
		t.Fatalf("expected CompPatternParam, got %v", bag.Items()[0].Code)
	}
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "let x = 1\nlet y = 2\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	p := arenas.Programs.Get(prog)
	if len(p.Body) != 2 {
		t.Fatalf("expected ASI to split into 2 statements, got %d", len(p.Body))
	}
}

func TestUnclosedParenReportsDiagnostic(t *testing.T) {
	_, _, bag := parseTestInput(t, "let x = (1 + 2;")
	if bag.Len() == 0 {
		t.Fatal("expected a diagnostic for the unclosed '('")
	}
}

// Sanity check that the lexer/parser boundary threads token.EOF correctly
// at the very end of a file with no trailing newline.
func TestParseEmptyProgram(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	p := arenas.Programs.Get(prog)
	if len(p.Body) != 0 {
		t.Fatalf("expected empty body, got %d statements", len(p.Body))
	}
	if p.Span.Start != p.Span.End {
		t.Fatalf("expected zero-length span for empty program")
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "function add(a, b) { return a + b; }")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	st := firstStmt(t, prog, arenas)
	if st.Kind != ast.StmtFunctionDecl {
		t.Fatalf("expected function declaration, got %v", st.Kind)
	}
	decl := arenas.Stmts.FunctionDecl(firstProgStmt(arenas, prog))
	if len(decl.Fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(decl.Fn.Params))
	}
}

func TestParseImportExport(t *testing.T) {
	prog, arenas, bag := parseTestInput(t, "import { a, b as c } from \"mod\";\nexport { a };\n")
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %d", bag.Len())
	}
	p := arenas.Programs.Get(prog)
	if len(p.Body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(p.Body))
	}
	imp := arenas.Stmts.Import(p.Body[0])
	if imp == nil || len(imp.Specifiers) != 2 {
		t.Fatalf("expected 2 import specifiers")
	}
	exp := arenas.Stmts.ExportNamed(p.Body[1])
	if exp == nil || len(exp.Specifiers) != 1 {
		t.Fatalf("expected 1 export specifier")
	}
}

var _ = token.EOF // keep the token import meaningful if test cases above shrink
