// Package testkit collects small invariant checkers shared across this
// repository's own test suites, so each package's tests don't reimplement
// the same span-bounds arithmetic.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"microvium/internal/ast"
	"microvium/internal/source"
)

// CheckSpanInvariants runs a minimal set of span sanity checks on a parsed
// module:
//  1. the program's own span is well-formed (and non-empty when it has
//     statements) and within the file's content
//  2. every top-level statement's span is non-empty and fully contained in
//     the program's span
//  3. the program's span covers the union of its statements' spans, if any
func CheckSpanInvariants(arenas *ast.Builder, programID ast.ProgramID, file *source.File) error {
	if arenas == nil || file == nil {
		return fmt.Errorf("nil builder or file")
	}
	prog := arenas.Programs.Get(programID)
	if prog == nil {
		return fmt.Errorf("program node not found")
	}

	if prog.Span.End < prog.Span.Start {
		return fmt.Errorf("program span is inverted: %v", prog.Span)
	}
	if len(prog.Body) > 0 && prog.Span.End == prog.Span.Start {
		return fmt.Errorf("program span is empty but has statements: %v", prog.Span)
	}
	if prog.Span.File != file.ID {
		return fmt.Errorf("program span points to different file id: got=%d want=%d", prog.Span.File, file.ID)
	}
	lenContent, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if prog.Span.End > lenContent {
		return fmt.Errorf("program span end beyond content: %d > %d", prog.Span.End, lenContent)
	}

	var union source.Span
	var haveStmt bool
	for _, stmtID := range prog.Body {
		stmt := arenas.Stmts.Get(stmtID)
		if stmt == nil {
			return fmt.Errorf("nil statement for id=%d", stmtID)
		}
		sp := stmt.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("empty statement span: %v", sp)
		}
		if sp.File != file.ID {
			return fmt.Errorf("statement span file mismatch: got=%d want=%d", sp.File, file.ID)
		}
		if sp.Start < prog.Span.Start || sp.End > prog.Span.End {
			return fmt.Errorf("statement span %v is outside program span %v", sp, prog.Span)
		}
		if !haveStmt {
			union = sp
			haveStmt = true
		} else {
			union = union.Cover(sp)
		}
	}

	if haveStmt {
		if union.Start < prog.Span.Start || union.End > prog.Span.End {
			return fmt.Errorf("program span %v does not cover union of statements %v", prog.Span, union)
		}
	}
	return nil
}
