package parser

import (
	"microvium/internal/ast"
	"microvium/internal/diag"
	"microvium/internal/token"
)

// parseImport handles `import { a, b as c } from "module";`.
func (p *Parser) parseImport() ast.StmtID {
	kw := p.advance()
	p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	var specs []ast.ImportSpecifier
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		imported, _, _ := p.parseIdentName()
		local := imported
		if p.at(token.KwAs) {
			p.advance()
			local, _, _ = p.parseIdentName()
		}
		specs = append(specs, ast.ImportSpecifier{Imported: imported, Local: local})
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "unclosed '{'")
	p.expect(token.KwFrom, diag.SynUnexpectedToken, "expected 'from'")
	source := p.lx.Peek()
	p.expect(token.StringLit, diag.SynExpectExpression, "expected a module specifier string")
	end := p.lastSpan
	p.consumeSemicolon()
	return p.arenas.Stmts.NewImport(kw.Span.Cover(end), ast.StmtImportData{
		Specifiers: specs,
		Source:     p.intern(source.Text),
	})
}

// parseExport handles `export default <expr>;`, `export function f() {}`,
// `export var/let/const ...;`, and `export { a, b as c };`.
func (p *Parser) parseExport() ast.StmtID {
	kw := p.advance()
	if p.at(token.KwDefault) {
		p.advance()
		value := p.parseAssignExpr()
		end := p.arenas.Exprs.Get(value).Span
		p.consumeSemicolon()
		return p.arenas.Stmts.NewExportDefault(kw.Span.Cover(end), value)
	}
	if p.atAny(token.KwVar, token.KwLet, token.KwConst) {
		decl := p.parseVarDeclStatement()
		end := p.arenas.Stmts.Get(decl).Span
		return p.arenas.Stmts.NewExportNamed(kw.Span.Cover(end), ast.StmtExportNamedData{Decl: decl})
	}
	if p.at(token.KwFunction) {
		decl := p.parseFunctionDeclStatement()
		end := p.arenas.Stmts.Get(decl).Span
		return p.arenas.Stmts.NewExportNamed(kw.Span.Cover(end), ast.StmtExportNamedData{Decl: decl})
	}

	p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	var specs []ast.ImportSpecifier
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		local, _, _ := p.parseIdentName()
		exported := local
		if p.at(token.KwAs) {
			p.advance()
			exported, _, _ = p.parseIdentName()
		}
		specs = append(specs, ast.ImportSpecifier{Imported: exported, Local: local})
		if !p.at(token.Comma) {
			break
		}
		p.advance()
	}
	end, _ := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "unclosed '{'")
	last := end.Span
	p.consumeSemicolon()
	return p.arenas.Stmts.NewExportNamed(kw.Span.Cover(last), ast.StmtExportNamedData{
		Decl: ast.NoStmtID, Specifiers: specs,
	})
}
