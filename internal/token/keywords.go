package token

var keywords = map[string]Kind{
	"var": KwVar, "let": KwLet, "const": KwConst, "function": KwFunction,
	"return": KwReturn, "if": KwIf, "else": KwElse, "while": KwWhile,
	"do": KwDo, "for": KwFor, "break": KwBreak, "continue": KwContinue,
	"switch": KwSwitch, "case": KwCase, "default": KwDefault,
	"import": KwImport, "export": KwExport, "from": KwFrom, "as": KwAs,
	"new": KwNew, "this": KwThis, "true": KwTrue, "false": KwFalse,
	"null": KwNull, "undefined": KwUndefined, "typeof": KwTypeof,
	"instanceof": KwInstanceof, "in": KwIn, "of": KwOf, "async": KwAsync,
	"await": KwAwait, "void": KwVoid, "delete": KwDelete, "throw": KwThrow,
	"try": KwTry, "catch": KwCatch, "finally": KwFinally, "class": KwClass,
	"super": KwSuper, "static": KwStatic, "get": KwGet, "set": KwSet,
	"yield": KwYield,
}

// LookupKeyword returns the keyword Kind for an identifier, or (Ident, false)
// if the text is not a reserved word.
func LookupKeyword(text string) (Kind, bool) {
	if k, ok := keywords[text]; ok {
		return k, true
	}
	return Ident, false
}
