package sema

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/syntax"
	"github.com/nwmarino/lovelace/internal/types"
)

// analyze runs the front end over src, returning the checked unit and the
// error produced by a fatal diagnostic, if any.
func analyze(t *testing.T, src string) (unit *ast.TranslationUnit, err error) {
	t.Helper()
	diags := diag.New(io.Discard)

	defer func() {
		if r := recover(); r != nil {
			msg, ok := diag.IsFatal(r)
			if !ok {
				panic(r)
			}
			err = errFatal{msg}
		}
	}()

	unit = syntax.NewParser("test.stm", src, diags).ParseUnit()
	New(unit, diags).Run()
	return unit, nil
}

type errFatal struct{ msg string }

func (e errFatal) Error() string { return e.msg }

func TestResolvesReferencesAndTypes(t *testing.T) {
	unit, err := analyze(t, `
fn add(a: s32, b: s32) -> s32 {
	ret a + b;
}
`)
	require.NoError(t, err)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	sum := ret.Value.(*ast.BinaryOp)

	lhs := sum.LHS.(*ast.DeclRefExpr)
	require.NotNil(t, lhs.Resolved)
	require.Equal(t, "s32", lhs.Type().Type.String())
	require.Equal(t, "s32", sum.Type().Type.String())
}

func TestLiteralAdaptsToExpectedType(t *testing.T) {
	unit, err := analyze(t, `
fn f() -> s32 {
	ret 7;
}
`)
	require.NoError(t, err)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	lit := ret.Value.(*ast.IntLit)
	require.Equal(t, "s32", lit.Type().Type.String())
}

func TestImplicitWideningInsertsCast(t *testing.T) {
	unit, err := analyze(t, `
fn f(x: s32) -> s64 {
	ret x;
}
`)
	require.NoError(t, err)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	_, isCast := ret.Value.(*ast.CastExpr)
	require.True(t, isCast, "widening return requires an implicit cast node")
}

func TestUnresolvedIdentifier(t *testing.T) {
	_, err := analyze(t, `
fn f() -> s64 {
	ret missing;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unresolved identifier")
}

func TestAssignmentRequiresMut(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	let x: s32 = 1;
	x = 2;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "immutable")
}

func TestAssignmentRequiresLValue(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	1 = 2;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-lvalue")
}

func TestBreakOutsideLoop(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	break;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "break")
}

func TestMainMustReturnS64(t *testing.T) {
	_, err := analyze(t, `
fn main() -> s32 {
	ret 0;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "'main' must return 's64'")
}

func TestConditionMustBeBoolable(t *testing.T) {
	_, err := analyze(t, `
struct s { x: s64 }

fn f(v: s) {
	if v {
	}
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "condition")
}

func TestGlobalInitializerMustBeConstant(t *testing.T) {
	_, err := analyze(t, `
fn f() -> s32 {
	ret 1;
}

let g: s32 = f();
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "constant")
}

func TestFieldAccessResolution(t *testing.T) {
	unit, err := analyze(t, `
struct point { x: s32, y: s32 }

fn get(p: *point) -> s32 {
	ret p.y;
}
`)
	require.NoError(t, err)

	fn := unit.Decls[1].(*ast.FunctionDecl)
	ret := fn.Body.Stmts[0].(*ast.RetStmt)
	access := ret.Value.(*ast.AccessExpr)
	require.NotNil(t, access.Resolved)
	require.Equal(t, 1, access.Resolved.Index)
}

func TestUnknownFieldRejected(t *testing.T) {
	_, err := analyze(t, `
struct point { x: s32 }

fn get(p: point) -> s32 {
	ret p.z;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no field named 'z'")
}

func TestDeferredNamedTypeResolves(t *testing.T) {
	unit, err := analyze(t, `
fn get(p: point) -> s32 {
	ret p.x;
}

struct point { x: s32 }
`)
	require.NoError(t, err)

	fn := unit.Decls[0].(*ast.FunctionDecl)
	ref := fn.Params[0].Type().Type.(*types.NamedRef)
	require.True(t, ref.Resolved())
	_ = unit
}

func TestAsmOutputMustBeMut(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	let x: s32 = 0;
	asm("mov $1, #0\n", "|r")(x);
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "immutable value cannot be used as 'asm' output")
}

func TestAsmTooManyReferences(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	let mut x: s32 = 0;
	asm("mov #0, #1\n", "|r")(x);
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "more arguments than provided")
}

func TestAsmInvalidConstraint(t *testing.T) {
	_, err := analyze(t, `
fn f() {
	let mut x: s32 = 0;
	asm("mov $1, #0\n", "q")(x);
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid input constraint")
}

func TestEnumVariantsAreConstants(t *testing.T) {
	unit, err := analyze(t, `
enum color : s32 { red, green, blue }

let g: s32 = green;
`)
	require.NoError(t, err)

	global := unit.Decls[1].(*ast.VariableDecl)
	require.True(t, global.Init.IsConstant())
}

func TestWrongArgumentCount(t *testing.T) {
	_, err := analyze(t, `
fn g(a: s64) -> s64 {
	ret a;
}

fn f() -> s64 {
	ret g(1, 2);
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "wrong number of arguments")
}
