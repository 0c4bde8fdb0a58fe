package ast

import "microvium/internal/source"

// ProgramID identifies a parsed module (one per source file).
type ProgramID uint32

const NoProgramID ProgramID = 0

func (id ProgramID) IsValid() bool { return id != NoProgramID }

// Program is the root node of a parsed module.
type Program struct {
	File source.FileID
	Span source.Span
	Body []StmtID
}

type Programs struct {
	Arena *Arena[Program]
}

func NewPrograms(capHint uint) *Programs {
	return &Programs{Arena: NewArena[Program](capHint)}
}

func (p *Programs) New(file source.FileID, span source.Span, body []StmtID) ProgramID {
	return ProgramID(p.Arena.Allocate(Program{File: file, Span: span, Body: body}))
}

func (p *Programs) Get(id ProgramID) *Program {
	return p.Arena.Get(uint32(id))
}
