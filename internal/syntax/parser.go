package syntax

import (
	"strconv"
	"strings"

	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/types"
)

// Parser builds an untyped tree by recursive descent. Expression types and
// references are left unresolved for semantic analysis.
type Parser struct {
	lexer *Lexer
	diags *diag.Diagnostics
	unit  *ast.TranslationUnit

	tok  Token
	next Token
}

// NewParser returns a parser over the given source text.
func NewParser(path, src string, diags *diag.Diagnostics) *Parser {
	lexer := NewLexer(path, src, diags)
	p := &Parser{lexer: lexer, diags: diags}
	p.tok = lexer.Next()
	p.next = lexer.Next()
	return p
}

func (p *Parser) advance() Token {
	tok := p.tok
	p.tok = p.next
	p.next = p.lexer.Next()
	return tok
}

func (p *Parser) match(kind TokenKind) bool { return p.tok.Is(kind) }

func (p *Parser) accept(kind TokenKind) bool {
	if p.match(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind TokenKind, what string) Token {
	if !p.match(kind) {
		p.diags.Fatal("unexpected token '"+p.tok.Text+"', expected "+what, p.tok.Span)
	}
	return p.advance()
}

// ParseUnit parses one translation unit.
func (p *Parser) ParseUnit() *ast.TranslationUnit {
	p.unit = ast.NewTranslationUnit(p.lexer.path)

	for !p.match(TokenEOF) {
		switch p.tok.Kind {
		case TokenKwLoad:
			p.unit.Loads = append(p.unit.Loads, p.parseLoad())
		case TokenKwFn:
			p.unit.Decls = append(p.unit.Decls, p.parseFunction())
		case TokenKwLet:
			p.unit.Decls = append(p.unit.Decls, p.parseVariable(true))
		case TokenKwStruct:
			p.unit.Decls = append(p.unit.Decls, p.parseStruct())
		case TokenKwEnum:
			p.unit.Decls = append(p.unit.Decls, p.parseEnum())
		case TokenKwAlias:
			p.unit.Decls = append(p.unit.Decls, p.parseAlias())
		default:
			p.diags.Fatal("unexpected token '"+p.tok.Text+"' at top level", p.tok.Span)
		}
	}

	return p.unit
}

func (p *Parser) parseLoad() *ast.LoadDecl {
	start := p.expect(TokenKwLoad, "'load'")
	path := p.expect(TokenString, "a path string")
	p.expect(TokenSemi, "';'")
	return ast.NewLoadDecl(start.Span.Merge(path.Span), path.Text)
}

// parseType parses a type signature: an optional 'mut' qualifier followed
// by pointer, array, builtin or named syntax.
func (p *Parser) parseType() types.Use {
	ctx := p.unit.Context

	mut := p.accept(TokenKwMut)

	var use types.Use
	switch p.tok.Kind {
	case TokenStar:
		p.advance()
		use = types.MakeUse(ctx.Pointer(p.parseType()))

	case TokenLBracket:
		p.advance()
		size := p.expect(TokenInteger, "an array size")
		p.expect(TokenRBracket, "']'")
		n, err := strconv.ParseUint(size.Text, 10, 32)
		if err != nil {
			p.diags.Fatal("malformed array size literal", size.Span)
		}
		use = types.MakeUse(ctx.Array(p.parseType(), uint32(n)))

	case TokenIdentifier:
		name := p.advance()
		if builtin, ok := builtinTypes[name.Text]; ok {
			use = types.MakeUse(ctx.Builtin(builtin))
		} else if ty := ctx.Lookup(name.Text); ty != nil {
			use = types.MakeUse(ty)
		} else {
			// An identifier in type position before the definition arrives;
			// resolution is deferred until loads complete.
			use = types.MakeUse(ctx.Deferred(name.Text))
		}

	default:
		p.diags.Fatal("unexpected token '"+p.tok.Text+"' in type position", p.tok.Span)
	}

	if mut {
		use = use.AsMut()
	}
	return use
}

var builtinTypes = map[string]types.BuiltinKind{
	"void": types.Void,
	"bool": types.Bool,
	"char": types.Char,
	"s8":   types.Int8,
	"s16":  types.Int16,
	"s32":  types.Int32,
	"s64":  types.Int64,
	"u8":   types.UInt8,
	"u16":  types.UInt16,
	"u32":  types.UInt32,
	"u64":  types.UInt64,
	"f32":  types.Float32,
	"f64":  types.Float64,
	"f128": types.Float128,
}

func (p *Parser) parseFunction() *ast.FunctionDecl {
	start := p.expect(TokenKwFn, "'fn'")
	name := p.expect(TokenIdentifier, "a function name")

	scope := ast.NewScope(p.unit.Scope)

	p.expect(TokenLParen, "'('")
	var params []*ast.ParameterDecl
	for !p.match(TokenRParen) {
		if len(params) > 0 {
			p.expect(TokenComma, "','")
		}
		mut := p.accept(TokenKwMut)
		pname := p.expect(TokenIdentifier, "a parameter name")
		p.expect(TokenColon, "':'")
		ptype := p.parseType()
		if mut {
			ptype = ptype.AsMut()
		}
		param := ast.NewParameterDecl(pname.Span, pname.Text, ptype, len(params))
		params = append(params, param)
		scope.Declare(param)
	}
	p.expect(TokenRParen, "')'")

	ret := types.MakeUse(p.unit.Context.Builtin(types.Void))
	if p.accept(TokenArrow) {
		ret = p.parseType()
	}

	var body *ast.BlockStmt
	if p.match(TokenLBrace) {
		body = p.parseBlock(scope)
	} else {
		p.expect(TokenSemi, "';'")
	}

	decl := ast.NewFunctionDecl(start.Span.Merge(name.Span), name.Text,
		params, scope, body, body == nil)

	// The signature type is pooled now so analysis can reuse it.
	paramUses := make([]types.Use, len(params))
	for i, param := range params {
		paramUses[i] = param.Type()
	}
	decl.SetType(types.MakeUse(p.unit.Context.Function(ret, paramUses)))

	return decl
}

// parseVariable parses a 'let' declaration; global declarations hang off
// the translation unit.
func (p *Parser) parseVariable(global bool) *ast.VariableDecl {
	start := p.expect(TokenKwLet, "'let'")
	mut := p.accept(TokenKwMut)
	name := p.expect(TokenIdentifier, "a variable name")
	p.expect(TokenColon, "':'")
	typ := p.parseType()
	if mut {
		typ = typ.AsMut()
	}

	var init ast.Expr
	if p.accept(TokenEq) {
		init = p.parseExpr()
	}
	p.expect(TokenSemi, "';'")

	return ast.NewVariableDecl(start.Span.Merge(name.Span), name.Text, typ, init, global)
}

func (p *Parser) parseStruct() *ast.StructDecl {
	start := p.expect(TokenKwStruct, "'struct'")
	name := p.expect(TokenIdentifier, "a struct name")

	p.expect(TokenLBrace, "'{'")
	var fields []*ast.FieldDecl
	for !p.match(TokenRBrace) {
		fname := p.expect(TokenIdentifier, "a field name")
		p.expect(TokenColon, "':'")
		ftype := p.parseType()
		fields = append(fields, ast.NewFieldDecl(fname.Span, fname.Text, ftype, len(fields)))
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRBrace, "'}'")

	return ast.NewStructDecl(start.Span.Merge(name.Span), name.Text, fields)
}

func (p *Parser) parseEnum() *ast.EnumDecl {
	start := p.expect(TokenKwEnum, "'enum'")
	name := p.expect(TokenIdentifier, "an enum name")

	underlying := types.MakeUse(p.unit.Context.Builtin(types.Int32))
	if p.accept(TokenColon) {
		underlying = p.parseType()
	}

	p.expect(TokenLBrace, "'{'")
	var variants []*ast.VariantDecl
	next := int64(0)
	for !p.match(TokenRBrace) {
		vname := p.expect(TokenIdentifier, "a variant name")
		if p.accept(TokenEq) {
			neg := p.accept(TokenMinus)
			value := p.expect(TokenInteger, "a variant value")
			n, err := strconv.ParseInt(value.Text, 10, 64)
			if err != nil {
				p.diags.Fatal("malformed variant value literal", value.Span)
			}
			if neg {
				n = -n
			}
			next = n
		}
		variants = append(variants,
			ast.NewVariantDecl(vname.Span, vname.Text, types.Use{}, next))
		next++
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRBrace, "'}'")

	return ast.NewEnumDecl(start.Span.Merge(name.Span), name.Text, underlying, variants)
}

func (p *Parser) parseAlias() *ast.AliasDecl {
	start := p.expect(TokenKwAlias, "'alias'")
	name := p.expect(TokenIdentifier, "an alias name")
	p.expect(TokenEq, "'='")
	aliased := p.parseType()
	p.expect(TokenSemi, "';'")
	return ast.NewAliasDecl(start.Span.Merge(name.Span), name.Text, aliased)
}

func (p *Parser) parseBlock(scope *ast.Scope) *ast.BlockStmt {
	start := p.expect(TokenLBrace, "'{'")

	var stmts []ast.Stmt
	for !p.match(TokenRBrace) {
		stmts = append(stmts, p.parseStmt(scope))
	}
	end := p.expect(TokenRBrace, "'}'")

	return ast.NewBlockStmt(start.Span.Merge(end.Span), scope, stmts)
}

func (p *Parser) parseStmt(scope *ast.Scope) ast.Stmt {
	switch p.tok.Kind {
	case TokenLBrace:
		return p.parseBlock(ast.NewScope(scope))

	case TokenKwLet:
		decl := p.parseVariable(false)
		return ast.NewDeclStmt(decl.Span(), []ast.Decl{decl})

	case TokenKwRet:
		start := p.advance()
		var value ast.Expr
		if !p.match(TokenSemi) {
			value = p.parseExpr()
		}
		p.expect(TokenSemi, "';'")
		return ast.NewRetStmt(start.Span, value)

	case TokenKwIf:
		return p.parseIf(scope)

	case TokenKwWhile:
		start := p.advance()
		cond := p.parseExpr()
		body := p.parseBlock(ast.NewScope(scope))
		return ast.NewWhileStmt(start.Span, cond, body)

	case TokenKwBreak:
		start := p.advance()
		p.expect(TokenSemi, "';'")
		return ast.NewBreakStmt(start.Span)

	case TokenKwContinue:
		start := p.advance()
		p.expect(TokenSemi, "';'")
		return ast.NewContinueStmt(start.Span)

	case TokenKwAsm:
		return p.parseAsm()

	default:
		expr := p.parseExpr()
		p.expect(TokenSemi, "';'")
		return expr
	}
}

func (p *Parser) parseIf(scope *ast.Scope) ast.Stmt {
	start := p.expect(TokenKwIf, "'if'")
	cond := p.parseExpr()
	then := p.parseBlock(ast.NewScope(scope))

	var els ast.Stmt
	if p.accept(TokenKwElse) {
		if p.match(TokenKwIf) {
			els = p.parseIf(scope)
		} else {
			els = p.parseBlock(ast.NewScope(scope))
		}
	}

	return ast.NewIfStmt(start.Span, cond, then, els)
}

// parseAsm parses 'asm' '(' template (',' constraint)* ')' ['(' args ')'] ';'.
// Constraints beginning with '|' or '&' describe outputs; the rest inputs.
func (p *Parser) parseAsm() ast.Stmt {
	start := p.expect(TokenKwAsm, "'asm'")
	p.expect(TokenLParen, "'('")

	template := p.expect(TokenString, "an assembly template").Text

	var outputs, inputs []string
	for p.accept(TokenComma) {
		constraint := p.expect(TokenString, "a constraint string").Text
		if strings.HasPrefix(constraint, "|") || strings.HasPrefix(constraint, "&") {
			outputs = append(outputs, constraint)
		} else {
			inputs = append(inputs, constraint)
		}
	}
	p.expect(TokenRParen, "')'")

	var args []ast.Expr
	if p.accept(TokenLParen) {
		for !p.match(TokenRParen) {
			if len(args) > 0 {
				p.expect(TokenComma, "','")
			}
			args = append(args, p.parseExpr())
		}
		p.expect(TokenRParen, "')'")
	}
	p.expect(TokenSemi, "';'")

	return ast.NewAsmStmt(start.Span, template, outputs, inputs, args)
}
