package scope

import (
	"microvium/internal/ast"
	"microvium/internal/source"
)

// BindingKind classifies how a name was declared.
type BindingKind uint8

const (
	BindInvalid BindingKind = iota
	BindVar
	BindLet
	BindConst
	BindParam
	BindThis
	BindImport
	BindExport
)

func (k BindingKind) String() string {
	switch k {
	case BindVar:
		return "var"
	case BindLet:
		return "let"
	case BindConst:
		return "const"
	case BindParam:
		return "param"
	case BindThis:
		return "this"
	case BindImport:
		return "import"
	case BindExport:
		return "export"
	default:
		return "invalid"
	}
}

// SlotKind enumerates the storage locations a Binding can resolve to,
// assigned during pass 2.
type SlotKind uint8

const (
	SlotUnassigned SlotKind = iota
	SlotLocal
	SlotArgument
	SlotClosure
	SlotGlobal
	SlotModuleImportExport
)

// Slot records where a Binding's value physically lives. Only the fields
// relevant to Kind are meaningful.
type Slot struct {
	Kind SlotKind

	Index    uint32 // LocalSlot / ClosureSlot
	ArgIndex uint32 // ArgumentSlot; 0 == this

	Name source.StringID // GlobalSlot

	Namespace    BindingID       // ModuleImportExportSlot: the imported module's binding
	PropertyName source.StringID // ModuleImportExportSlot
}

// Binding is one declared name, per spec.md's data model.
type Binding struct {
	ID   BindingID
	Name source.StringID
	Kind BindingKind
	Span source.Span
	Decl ast.StmtID // NoStmtID for `this` and synthetic bindings

	IsWrittenTo                bool
	IsAccessedByNestedFunction bool
	IsExported                 bool

	Scope ScopeID
	Slot  Slot
}

// PrologueOpKind enumerates scope-initialization pseudo-ops, emitted at
// pass 2 into a scope's prologue in the order the IL compiler must run them.
type PrologueOpKind uint8

const (
	OpScopePush PrologueOpKind = iota
	OpInitVarDeclaration
	OpInitLexicalDeclaration
	OpInitFunctionDeclaration
	OpInitParameter
	OpInitThis
)

// PrologueOp is one scope-initialization step. SlotCount is meaningful only
// for OpScopePush; Binding is meaningful for every other kind.
type PrologueOp struct {
	Kind      PrologueOpKind
	Binding   BindingID
	SlotCount uint32
}

// ScopeKind enumerates the three lexical scope categories from spec.md §3.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	ScopeModule
	ScopeFunction
	ScopeBlock
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope is one lexical scope. The function-like fields (ParameterBindings,
// ThisBinding, ClosureSlotCount, IsClosure) are zero/invalid on block
// scopes; the module scope has no parameters but does carry ThisBinding
// and the closure fields.
type Scope struct {
	ID     ScopeID
	Kind   ScopeKind
	Parent ScopeID
	Span   source.Span

	Bindings                   map[source.StringID]BindingID
	VarDeclarations            []BindingID
	LexicalDeclarations        []BindingID
	NestedFunctionDeclarations []BindingID
	Children                   []ScopeID
	Prologue                   []PrologueOp

	// EpiloguePopCount stays zero: pass 2 does not compute it and the IL
	// compiler does not read it, since block-scoped locals get slots in
	// their function's frame rather than being pushed and popped per block.
	EpiloguePopCount uint32

	// Function-like scopes only (see above).
	ParameterBindings []BindingID
	ThisBinding       BindingID
	ClosureSlotCount  uint32
	IsClosure         bool
	OwnerExpr         ast.ExprID // NoExprID for the module scope and function declarations
	OwnerStmt         ast.StmtID // NoStmtID unless this is a function-declaration scope
}

// Reference is one identifier use, resolved to exactly one Binding
// (spec.md §3 invariant) or left free (Binding == NoBindingID) when it
// escapes every function/module scope.
type Reference struct {
	Expr    ast.ExprID
	Binding BindingID
	IsWrite bool
}

// Model is the full scope-analysis result for one compiled module.
type Model struct {
	Scopes     *Scopes
	Bindings   *Bindings
	References []Reference

	Root ScopeID // the module scope

	// FreeVariables collects every name that resolved outside all scopes
	// (host globals), in first-use order, deduplicated.
	FreeVariables   []source.StringID
	freeVariableSet map[source.StringID]bool
}
