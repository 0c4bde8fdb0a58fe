package diag

import "fmt"

// Code identifies a specific diagnostic. Codes are grouped into numeric
// ranges by the pipeline stage that raises them; Kind maps a range onto
// one of the six error kinds from the error handling design.
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical (1000s) — SyntaxError.
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexUnterminatedBlock  Code = 1004

	// Syntax (2000s) — SyntaxError.
	SynUnexpectedToken   Code = 2001
	SynUnclosedDelimiter Code = 2002
	SynExpectSemicolon   Code = 2003
	SynExpectIdentifier  Code = 2004
	SynExpectExpression  Code = 2005
	SynInvalidAssignTarget Code = 2006

	// Restricted-subset / reserved-construct rejections (2500s) — CompileError.
	CompReservedOperator     Code = 2501 // == != instanceof
	CompSpreadNotSupported   Code = 2502
	CompLabelledBreak        Code = 2503
	CompGeneratorNotAllowed  Code = 2504
	CompPatternParam         Code = 2505
	CompThrowNotSupported    Code = 2506
	CompDeleteNotSupported   Code = 2507
	CompTypeofNotSupported   Code = 2508
	CompVoidNotSupported     Code = 2509
	CompSuperNotSupported    Code = 2510
	CompAssignToConst        Code = 2511
	CompUnlabelledBreakOnly  Code = 2512
	CompNopArityOutOfRange   Code = 2513

	// Intentional subset restrictions (2700s) — FeatureNotSupported.
	FeatNullishCoalescing Code = 2701 // `??` parsed but lowering undefined (open question i)
	FeatEval              Code = 2702
	FeatAsyncAwait        Code = 2703
	FeatForIn             Code = 2704 // full property-key enumeration is out of scope

	// Scope / binding (3000s) — CompileError unless noted.
	ScopeDuplicateBinding    Code = 3001
	ScopeUnresolvedReference Code = 3002
	ScopeGlobalNameCollision Code = 3003 // internal invariant violation -> InternalCompileError
	ScopeInvalidThisUse      Code = 3004

	// IL / internal compiler invariants (4000s) — InternalCompileError.
	ILStackDepthMismatch  Code = 4001
	ILUnresolvedLabel     Code = 4002
	ILOperandMismatch     Code = 4003
	ILUnreachableTerminator Code = 4004

	// Bytecode / snapshot (5000s) — InvalidBytecode.
	BytecodeSizeMismatch    Code = 5001
	BytecodeHeaderMismatch  Code = 5002
	BytecodeCRCMismatch     Code = 5003
	BytecodeVersionMismatch Code = 5004
	BytecodeFeatureMismatch Code = 5005
	BytecodeAllocationTooLarge Code = 5006
	BytecodeImageTooLarge      Code = 5007
	BytecodeSectionOverflow    Code = 5008

	// Host API misuse (6000s) — InvalidOperation.
	HostBadImportMap   Code = 6001
	HostUnknownExport  Code = 6002
	HostBadHostFuncID  Code = 6003
)

// ErrorKind is one of the six kinds from the error handling design.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindSyntaxError
	KindCompileError
	KindFeatureNotSupported
	KindInternalCompileError
	KindInvalidBytecode
	KindInvalidOperation
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntaxError:
		return "SyntaxError"
	case KindCompileError:
		return "CompileError"
	case KindFeatureNotSupported:
		return "FeatureNotSupported"
	case KindInternalCompileError:
		return "InternalCompileError"
	case KindInvalidBytecode:
		return "InvalidBytecode"
	case KindInvalidOperation:
		return "InvalidOperation"
	default:
		return "Unknown"
	}
}

// Kind reports which of the six error kinds a code belongs to.
func (c Code) Kind() ErrorKind {
	switch {
	case c >= 1000 && c < 2000, c >= 2000 && c < 2500:
		return KindSyntaxError
	case c >= 2500 && c < 2700:
		return KindCompileError
	case c >= 2700 && c < 3000:
		return KindFeatureNotSupported
	case c >= 3000 && c < 4000 && c != ScopeGlobalNameCollision:
		return KindCompileError
	case c == ScopeGlobalNameCollision, c >= 4000 && c < 5000:
		return KindInternalCompileError
	case c >= 5000 && c < 6000:
		return KindInvalidBytecode
	case c >= 6000 && c < 7000:
		return KindInvalidOperation
	default:
		return KindUnknown
	}
}

// ID renders the code as a stable "KIND####" identifier.
func (c Code) ID() string {
	switch {
	case c >= 1000 && c < 2000:
		return fmt.Sprintf("LEX%04d", uint16(c))
	case c >= 2000 && c < 2500:
		return fmt.Sprintf("SYN%04d", uint16(c))
	case c >= 2500 && c < 2700:
		return fmt.Sprintf("COMP%04d", uint16(c))
	case c >= 2700 && c < 3000:
		return fmt.Sprintf("FEAT%04d", uint16(c))
	case c >= 3000 && c < 4000:
		return fmt.Sprintf("SCOPE%04d", uint16(c))
	case c >= 4000 && c < 5000:
		return fmt.Sprintf("IL%04d", uint16(c))
	case c >= 5000 && c < 6000:
		return fmt.Sprintf("BC%04d", uint16(c))
	case c >= 6000 && c < 7000:
		return fmt.Sprintf("HOST%04d", uint16(c))
	default:
		return "E0000"
	}
}

var codeTitle = map[Code]string{
	UnknownCode:                "unknown error",
	LexUnknownChar:             "unknown character",
	LexUnterminatedString:      "unterminated string literal",
	LexBadNumber:               "malformed numeric literal",
	LexUnterminatedBlock:       "unterminated block comment",
	SynUnexpectedToken:         "unexpected token",
	SynUnclosedDelimiter:       "unclosed delimiter",
	SynExpectSemicolon:         "expected ';'",
	SynExpectIdentifier:        "expected identifier",
	SynExpectExpression:        "expected expression",
	SynInvalidAssignTarget:     "invalid assignment target",
	CompReservedOperator:       "operator is reserved and not supported",
	CompSpreadNotSupported:     "spread syntax is not supported",
	CompLabelledBreak:          "labelled break is not supported",
	CompGeneratorNotAllowed:    "generator functions are not supported",
	CompPatternParam:           "destructuring parameters are not supported",
	CompThrowNotSupported:      "'throw' is not supported",
	CompDeleteNotSupported:     "'delete' is not supported",
	CompTypeofNotSupported:     "'typeof' is not supported",
	CompVoidNotSupported:       "'void' is not supported",
	CompSuperNotSupported:      "'super' is not supported",
	CompAssignToConst:          "assignment to a const binding",
	CompUnlabelledBreakOnly:    "break must be unlabelled",
	CompNopArityOutOfRange:     "$$InternalNOPInstruction argument out of range",
	FeatNullishCoalescing:      "'??' lowering is not defined",
	FeatEval:                   "dynamic eval is not supported",
	FeatAsyncAwait:             "async/await lowering is out of scope",
	FeatForIn:                  "'for...in' is not supported",
	ScopeDuplicateBinding:      "duplicate binding in scope",
	ScopeUnresolvedReference:   "reference to an unknown name",
	ScopeGlobalNameCollision:   "internal error: global slot name collision",
	ScopeInvalidThisUse:        "'this' used outside a function",
	ILStackDepthMismatch:       "internal error: stack depth mismatch at control-flow edge",
	ILUnresolvedLabel:          "internal error: predeclared block never created",
	ILOperandMismatch:          "internal error: operand count/type mismatch",
	ILUnreachableTerminator:    "internal error: block missing terminator",
	BytecodeSizeMismatch:       "bytecodeSize does not match file length",
	BytecodeHeaderMismatch:     "headerSize does not match expected header layout",
	BytecodeCRCMismatch:        "CRC mismatch",
	BytecodeVersionMismatch:    "requiredEngineVersion mismatch",
	BytecodeFeatureMismatch:    "requiredFeatureFlags mismatch",
	BytecodeAllocationTooLarge: "allocation exceeds 4095 bytes",
	BytecodeImageTooLarge:      "image exceeds 64 kB",
	BytecodeSectionOverflow:    "logical address crosses a section boundary",
	HostBadImportMap:           "import map has an invalid shape",
	HostUnknownExport:          "unknown export id",
	HostBadHostFuncID:          "unknown host function id",
}

// Title returns a short human-readable description of the code.
func (c Code) Title() string {
	if t, ok := codeTitle[c]; ok {
		return t
	}
	return codeTitle[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s] %s: %s", c.ID(), c.Kind(), c.Title())
}
