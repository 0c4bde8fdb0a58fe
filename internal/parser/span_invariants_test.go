package parser

import (
	"testing"

	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/lexer"
	"microvium/internal/source"
	"microvium/internal/testkit"
)

func TestParsedProgramsSatisfySpanInvariants(t *testing.T) {
	fixtures := []string{
		"let x = 1 + 2 * 3;\n",
		"function add(a, b) { return a + b; }\n",
		"if (x) { y(); } else { z(); }\nwhile (x) { x = x - 1; }\n",
		"import { helper } from \"./lib.mvms\";\nexport function run() { return helper(); }\n",
		"",
	}

	for _, src := range fixtures {
		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fixture.mvms", []byte(src))
		file := fs.Get(fileID)

		bag := diag.NewBag(100)
		reporter := diag.BagReporter{Bag: bag}
		lx := lexer.New(file, lexer.Options{Reporter: reporter})
		arenas := ast.NewBuilder(ast.Hints{})

		result := ParseFile(fs, fileID, lx, arenas, Options{MaxErrors: 100, Reporter: reporter})
		if err := testkit.CheckSpanInvariants(arenas, result.Program, file); err != nil {
			t.Errorf("span invariants failed for %q: %v", src, err)
		}
	}
}
