package syntax

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/types"
)

func parse(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	diags := diag.New(io.Discard)
	return NewParser("test.stm", src, diags).ParseUnit()
}

func TestLexerOperators(t *testing.T) {
	diags := diag.New(io.Discard)
	lexer := NewLexer("test.stm", "+ += ++ << <<= <= -> && & |= ||", diags)

	want := []TokenKind{
		TokenPlus, TokenPlusEq, TokenPlusPlus,
		TokenLeftLeft, TokenLeftLeftEq, TokenLeftEq,
		TokenArrow, TokenAndAnd, TokenAnd, TokenOrEq, TokenOrOr,
		TokenEOF,
	}
	for _, kind := range want {
		tok := lexer.Next()
		require.Equal(t, kind, tok.Kind, "token %q", tok.Text)
	}
}

func TestLexerComments(t *testing.T) {
	diags := diag.New(io.Discard)
	lexer := NewLexer("test.stm", "a // line\n/* block\nstill */ b", diags)

	require.Equal(t, "a", lexer.Next().Text)
	require.Equal(t, "b", lexer.Next().Text)
	require.True(t, lexer.Next().Is(TokenEOF))
}

func TestLexerStringEscapes(t *testing.T) {
	diags := diag.New(io.Discard)
	lexer := NewLexer("test.stm", `"a\n\t\"b\\"`, diags)

	tok := lexer.Next()
	require.True(t, tok.Is(TokenString))
	require.Equal(t, "a\n\t\"b\\", tok.Text)
}

func TestParseFunction(t *testing.T) {
	unit := parse(t, `
fn add(a: s32, b: s32) -> s32 {
	ret a + b;
}
`)

	require.Len(t, unit.Decls, 1)
	fn := unit.Decls[0].(*ast.FunctionDecl)
	require.Equal(t, "add", fn.Name())
	require.Len(t, fn.Params, 2)
	require.True(t, fn.HasBody())
	require.False(t, fn.Extern)

	sig := fn.Signature()
	require.Equal(t, 2, sig.NumParams())
	require.Equal(t, "s32", sig.Return().String())
}

func TestParseExternFunction(t *testing.T) {
	unit := parse(t, `fn putchar(c: s32) -> s32;`)
	fn := unit.Decls[0].(*ast.FunctionDecl)
	require.False(t, fn.HasBody())
	require.True(t, fn.Extern)
}

func TestParsePrecedence(t *testing.T) {
	unit := parse(t, `
fn f(a: s32, b: s32, c: s32) -> s32 {
	ret a + b * c;
}
`)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	add := ret.Value.(*ast.BinaryOp)
	require.Equal(t, ast.BinaryAdd, add.Op)

	// The multiplication binds tighter and hangs off the right side.
	mul := add.RHS.(*ast.BinaryOp)
	require.Equal(t, ast.BinaryMul, mul.Op)
}

func TestParseAssignmentAssociatesRight(t *testing.T) {
	unit := parse(t, `
fn f() {
	let mut a: s32 = 0;
	let mut b: s32 = 0;
	a = b = 1;
}
`)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	assign := fn.Body.Stmts[2].(*ast.BinaryOp)
	require.Equal(t, ast.BinaryAssign, assign.Op)
	inner := assign.RHS.(*ast.BinaryOp)
	require.Equal(t, ast.BinaryAssign, inner.Op)
}

func TestParseTypes(t *testing.T) {
	unit := parse(t, `
let p: *mut s32 = null;
let a: [4]s64 = null;
let q: **void = null;
`)

	p := unit.Decls[0].(*ast.VariableDecl)
	ptr := p.Type().Type.(*types.PointerType)
	require.True(t, ptr.Pointee().IsMut())

	a := unit.Decls[1].(*ast.VariableDecl)
	arr := a.Type().Type.(*types.ArrayType)
	require.Equal(t, uint32(4), arr.Size())

	q := unit.Decls[2].(*ast.VariableDecl)
	outer := q.Type().Type.(*types.PointerType)
	_, isPtr := outer.Pointee().Type.(*types.PointerType)
	require.True(t, isPtr)
}

func TestParseDeferredNamedType(t *testing.T) {
	unit := parse(t, `
fn f(v: vec2) -> s64 {
	ret 0;
}

struct vec2 { x: s64, y: s64 }
`)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	_, deferred := fn.Params[0].Type().Type.(*types.NamedRef)
	require.True(t, deferred, "use before definition goes through a named ref")
}

func TestParseStructEnumAlias(t *testing.T) {
	unit := parse(t, `
struct point { x: s32, y: s32 }
enum color : s32 { red, green = 5, blue }
alias word = u64;
`)

	st := unit.Decls[0].(*ast.StructDecl)
	require.Len(t, st.Fields, 2)
	require.Equal(t, 1, st.Fields[1].Index)

	en := unit.Decls[1].(*ast.EnumDecl)
	require.Len(t, en.Variants, 3)
	require.Equal(t, int64(0), en.Variants[0].Value)
	require.Equal(t, int64(5), en.Variants[1].Value)
	require.Equal(t, int64(6), en.Variants[2].Value)

	al := unit.Decls[2].(*ast.AliasDecl)
	require.Equal(t, "word", al.Name())
}

func TestParseAsm(t *testing.T) {
	unit := parse(t, `
fn f() {
	let mut x: s32 = 0;
	asm("mov $1, #0\n", "|r", "r")(x, x);
}
`)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	stmt := fn.Body.Stmts[1].(*ast.AsmStmt)
	require.Equal(t, []string{"|r"}, stmt.OutputConstraints)
	require.Equal(t, []string{"r"}, stmt.InputConstraints)
	require.Len(t, stmt.Args, 2)
	require.Equal(t, "mov $1, #0\n", stmt.Template)
}

func TestParsePostfix(t *testing.T) {
	unit := parse(t, `
fn f(p: *s64) -> s64 {
	ret p[0] as s64 + f(p);
}
`)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	add := ret.Value.(*ast.BinaryOp)
	_, isCast := add.LHS.(*ast.CastExpr)
	require.True(t, isCast)
	_, isCall := add.RHS.(*ast.CallExpr)
	require.True(t, isCall)
}
