package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token.
	Ident

	// Keywords of the restricted-subset grammar.
	KwVar
	KwLet
	KwConst
	KwFunction
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwDo
	KwFor
	KwBreak
	KwContinue
	KwSwitch
	KwCase
	KwDefault
	KwImport
	KwExport
	KwFrom
	KwAs
	KwNew
	KwThis
	KwTrue
	KwFalse
	KwNull
	KwUndefined
	KwTypeof
	KwInstanceof
	KwIn
	KwOf
	KwAsync
	KwAwait
	KwVoid
	KwDelete
	KwThrow
	KwTry
	KwCatch
	KwFinally
	KwClass
	KwSuper
	KwStatic
	KwGet
	KwSet
	KwYield

	// Literals.
	NumberLit
	StringLit
	TemplateStringLit

	// Punctuation and operators.
	Plus
	Minus
	Star
	Slash
	Percent
	StarStar
	StarStarAssign
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	AmpAssign
	PipeAssign
	CaretAssign
	ShlAssign
	ShrAssign
	UShrAssign
	AndAndAssign
	OrOrAssign
	QuestionQuestionAssign
	EqEq
	EqEqEq
	BangEq
	BangEqEq
	Lt
	LtEq
	Gt
	GtEq
	Shl
	Shr
	UShr
	Amp
	Pipe
	Caret
	Tilde
	Bang
	AndAnd
	OrOr
	QuestionQuestion
	Question
	Colon
	Semicolon
	Comma
	Dot
	DotDotDot
	Arrow
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	PlusPlus
	MinusMinus
	Optional // ?.
)

var kindNames = map[Kind]string{
	Invalid: "invalid", EOF: "eof", Ident: "ident",
	KwVar: "var", KwLet: "let", KwConst: "const", KwFunction: "function",
	KwReturn: "return", KwIf: "if", KwElse: "else", KwWhile: "while",
	KwDo: "do", KwFor: "for", KwBreak: "break", KwContinue: "continue",
	KwSwitch: "switch", KwCase: "case", KwDefault: "default",
	KwImport: "import", KwExport: "export", KwFrom: "from", KwAs: "as",
	KwNew: "new", KwThis: "this", KwTrue: "true", KwFalse: "false",
	KwNull: "null", KwUndefined: "undefined", KwTypeof: "typeof",
	KwInstanceof: "instanceof", KwIn: "in", KwOf: "of", KwAsync: "async",
	KwAwait: "await", KwVoid: "void", KwDelete: "delete", KwThrow: "throw",
	KwTry: "try", KwCatch: "catch", KwFinally: "finally", KwClass: "class",
	KwSuper: "super", KwStatic: "static", KwGet: "get", KwSet: "set",
	KwYield: "yield",
	NumberLit: "number", StringLit: "string", TemplateStringLit: "template",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", StarStar: "**", StarStarAssign: "**=",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=",
	SlashAssign: "/=", PercentAssign: "%=", AmpAssign: "&=", PipeAssign: "|=",
	CaretAssign: "^=", ShlAssign: "<<=", ShrAssign: ">>=", UShrAssign: ">>>=",
	AndAndAssign: "&&=", OrOrAssign: "||=", QuestionQuestionAssign: "??=",
	EqEq: "==", EqEqEq: "===", BangEq: "!=", BangEqEq: "!==",
	Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=", Shl: "<<", Shr: ">>", UShr: ">>>",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Bang: "!",
	AndAnd: "&&", OrOr: "||", QuestionQuestion: "??", Question: "?",
	Colon: ":", Semicolon: ";", Comma: ",", Dot: ".", DotDotDot: "...",
	Arrow: "=>", LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", PlusPlus: "++", MinusMinus: "--",
	Optional: "?.",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsAssignOp reports whether the token is a compound or plain assignment operator.
func (k Kind) IsAssignOp() bool {
	switch k {
	case Assign, PlusAssign, MinusAssign, StarAssign, SlashAssign, PercentAssign,
		StarStarAssign, AmpAssign, PipeAssign, CaretAssign, ShlAssign, ShrAssign, UShrAssign,
		AndAndAssign, OrOrAssign, QuestionQuestionAssign:
		return true
	default:
		return false
	}
}
