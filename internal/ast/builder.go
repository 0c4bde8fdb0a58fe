package ast

import "microvium/internal/source"

// Hints preallocates arena capacity; all fields are optional.
type Hints struct{ Programs, Stmts, Exprs uint }

// Builder owns every arena needed to hold one or more parsed modules.
// A single Builder is normally shared across all files compiled together
// so that cross-module identifiers still resolve through one source.Interner.
type Builder struct {
	Programs        *Programs
	Stmts           *Stmts
	Exprs           *Exprs
	StringsInterner *source.Interner
}

func NewBuilder(hints Hints) *Builder {
	if hints.Programs == 0 {
		hints.Programs = 1 << 4
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	return &Builder{
		Programs:        NewPrograms(hints.Programs),
		Stmts:           NewStmts(hints.Stmts),
		Exprs:           NewExprs(hints.Exprs),
		StringsInterner: source.NewInterner(),
	}
}
