// Package sema implements semantic analysis over a parsed translation unit:
// symbol collection, named type resolution, and the type checking pass that
// leaves behind a fully typed and resolved tree for the lowerer.
package sema

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/types"
)

// Analysis checks one translation unit.
type Analysis struct {
	unit  *ast.TranslationUnit
	ctx   *types.Context
	diags *diag.Diagnostics

	// structs maps struct type names to their declarations for field
	// resolution.
	structs map[string]*ast.StructDecl

	// fn is the function being checked.
	fn *ast.FunctionDecl

	// loopDepth tracks 'while' nesting for break/continue validation.
	loopDepth int
}

// New returns an analysis over the unit.
func New(unit *ast.TranslationUnit, diags *diag.Diagnostics) *Analysis {
	return &Analysis{
		unit:    unit,
		ctx:     unit.Context,
		diags:   diags,
		structs: make(map[string]*ast.StructDecl),
	}
}

// Run performs collection then checking. After it returns without fatal
// diagnostics, every expression is typed and every reference resolved.
func (a *Analysis) Run() {
	a.collect()
	a.check()
}

// collect builds the unit scope, creates named types, and resolves every
// deferred type reference.
func (a *Analysis) collect() {
	for _, decl := range a.unit.Decls {
		switch d := decl.(type) {
		case *ast.StructDecl:
			d.DeclaredTy = a.ctx.CreateStruct(d.Name())
			a.structs[d.Name()] = d
			a.declare(d)

		case *ast.EnumDecl:
			d.DeclaredTy = a.ctx.CreateEnum(d.Name())
			underlying, ok := types.Unwrap(d.Underlying.Type).(*types.BuiltinType)
			if !ok || !underlying.IsInteger() {
				a.diags.Fatal("enum underlying type must be an integer builtin", d.Span())
			}
			d.DeclaredTy.SetUnderlying(underlying)

			use := types.MakeUse(d.DeclaredTy)
			for _, variant := range d.Variants {
				variant.SetType(use)
				a.declare(variant)
			}
			a.declare(d)

		case *ast.AliasDecl:
			d.DeclaredTy = a.ctx.CreateAlias(d.Name())
			d.DeclaredTy.SetUnderlying(d.Aliased)
			a.declare(d)

		case *ast.FunctionDecl:
			a.declare(d)

		case *ast.VariableDecl:
			a.declare(d)
		}
	}

	// Every deferred name must resolve before lowering can run.
	if unresolved := a.ctx.ResolveDeferred(); len(unresolved) > 0 {
		a.diags.Fatal("unresolved type reference '"+unresolved[0]+"'", a.unit.Span())
	}

	// Struct bodies fill after resolution so fields can name any type of
	// the unit.
	for _, decl := range a.structs {
		fields := make([]types.Use, len(decl.Fields))
		for i, field := range decl.Fields {
			fields[i] = field.Type()
		}
		decl.DeclaredTy.SetFields(fields)
	}
}

func (a *Analysis) declare(decl ast.NamedDecl) {
	if !a.unit.Scope.Declare(decl) {
		a.diags.Fatal("redeclaration of '"+decl.Name()+"'", decl.Span())
	}
}

func (a *Analysis) check() {
	for _, decl := range a.unit.Decls {
		switch d := decl.(type) {
		case *ast.VariableDecl:
			a.checkGlobal(d)
		case *ast.FunctionDecl:
			a.checkFunction(d)
		}
	}
}

func (a *Analysis) checkGlobal(decl *ast.VariableDecl) {
	if decl.Init == nil {
		return
	}
	decl.Init = a.checkExpr(decl.Init, a.unit.Scope)
	if !decl.Init.IsConstant() {
		a.diags.Fatal("globals cannot be initialized with non-constants", decl.Span())
	}
	decl.Init = a.coerce(decl.Init, decl.Type(), "initializer")
}

func (a *Analysis) checkFunction(decl *ast.FunctionDecl) {
	a.fn = decl

	if decl.IsMain() {
		s64 := a.ctx.Builtin(types.Int64)
		if !decl.ReturnType().Compare(types.MakeUse(s64)) {
			a.diags.Fatal("'main' must return 's64'", decl.Span())
		}
	}

	if decl.HasBody() {
		a.checkBlock(decl.Body)
	}

	a.fn = nil
}

func (a *Analysis) checkBlock(block *ast.BlockStmt) {
	for i, stmt := range block.Stmts {
		block.Stmts[i] = a.checkStmt(stmt, block.Scope)
	}
}

func (a *Analysis) checkStmt(stmt ast.Stmt, scope *ast.Scope) ast.Stmt {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		a.checkBlock(s)
		return s

	case *ast.DeclStmt:
		for _, decl := range s.Decls {
			local := decl.(*ast.VariableDecl)
			if scope.LookupLocal(local.Name()) != nil {
				a.diags.Fatal("redeclaration of '"+local.Name()+"'", local.Span())
			}
			scope.Declare(local)
			if local.Init != nil {
				local.Init = a.checkExpr(local.Init, scope)
				local.Init = a.coerce(local.Init, local.Type(), "initializer")
			}
		}
		return s

	case *ast.RetStmt:
		ret := a.fn.ReturnType()
		if s.Value == nil {
			if !ret.Type.IsVoid() {
				a.diags.Fatal("function '"+a.fn.Name()+"' must return a value", s.Span())
			}
			return s
		}
		if ret.Type.IsVoid() {
			a.diags.Fatal("void function '"+a.fn.Name()+"' cannot return a value", s.Span())
		}
		s.Value = a.checkExpr(s.Value, scope)
		s.Value = a.coerce(s.Value, ret, "return value")
		return s

	case *ast.IfStmt:
		s.Cond = a.checkExpr(s.Cond, scope)
		a.requireBoolable(s.Cond)
		s.Then = a.checkStmt(s.Then, scope)
		if s.Else != nil {
			s.Else = a.checkStmt(s.Else, scope)
		}
		return s

	case *ast.WhileStmt:
		s.Cond = a.checkExpr(s.Cond, scope)
		a.requireBoolable(s.Cond)
		if s.Body != nil {
			a.loopDepth++
			s.Body = a.checkStmt(s.Body, scope)
			a.loopDepth--
		}
		return s

	case *ast.BreakStmt:
		if a.loopDepth == 0 {
			a.diags.Fatal("'break' outside of a loop", s.Span())
		}
		return s

	case *ast.ContinueStmt:
		if a.loopDepth == 0 {
			a.diags.Fatal("'continue' outside of a loop", s.Span())
		}
		return s

	case *ast.AsmStmt:
		a.checkAsm(s, scope)
		return s

	case ast.Expr:
		return a.checkExpr(s, scope)

	default:
		panic("BUG: unexpected statement kind")
	}
}

// checkAsm validates an asm statement: outputs must be mutable lvalues, the
// template may not reference more arguments than provided, and every
// constraint must come from the recognized vocabulary.
func (a *Analysis) checkAsm(stmt *ast.AsmStmt, scope *ast.Scope) {
	span := stmt.Span()

	for i, arg := range stmt.Args {
		stmt.Args[i] = a.checkExpr(arg, scope)
		if i < len(stmt.OutputConstraints) {
			if !stmt.Args[i].Type().IsMut() {
				a.diags.Fatal("immutable value cannot be used as 'asm' output", span)
			}
		}
	}

	refs := 0
	for i := 0; i < len(stmt.Template); i++ {
		if stmt.Template[i] == '#' {
			refs++
		}
	}
	if refs > len(stmt.Args) {
		a.diags.Fatal("'asm' references more arguments than provided", span)
	}

	for _, constraint := range stmt.OutputConstraints {
		switch constraint {
		case "|r", "|m", "&r", "&m":
		default:
			a.diags.Fatal("invalid output constraint: '"+constraint+"'", span)
		}
	}
	for _, constraint := range stmt.InputConstraints {
		switch constraint {
		case "r", "m", "...":
		default:
			a.diags.Fatal("invalid input constraint: '"+constraint+"'", span)
		}
	}
}

// requireBoolable rejects condition expressions that cannot reduce to a
// boolean.
func (a *Analysis) requireBoolable(expr ast.Expr) {
	ty := types.Unwrap(expr.Type().Type)
	if ty.IsInteger() || ty.IsFloatingPoint() || ty.IsPointer() {
		return
	}
	a.diags.Fatal("condition is not a boolean value", expr.Span())
}

// coerce adapts expr to the expected type, retyping integer literals in
// place and inserting implicit casts where the lattice allows. Copies into
// a new location are always mutable, so the source's own mutability is
// irrelevant here.
func (a *Analysis) coerce(expr ast.Expr, expected types.Use, what string) ast.Expr {
	actual := expr.Type()

	if actual.Compare(expected) {
		return expr
	}

	// Integer and float literals adapt to any matching builtin family.
	switch lit := expr.(type) {
	case *ast.IntLit:
		if types.Unwrap(expected.Type).IsInteger() {
			lit.SetType(types.MakeUse(expected.Type))
			return lit
		}
	case *ast.FloatLit:
		if types.Unwrap(expected.Type).IsFloatingPoint() {
			lit.SetType(types.MakeUse(expected.Type))
			return lit
		}
	case *ast.NullLit:
		if types.Unwrap(expected.Type).IsPointer() {
			lit.SetType(types.MakeUse(expected.Type))
			return lit
		}
	}

	if actual.AsMut().CanCast(expected, true) {
		return ast.NewCastExpr(expr.Span(), types.MakeUse(expected.Type), expr)
	}

	// Constant expressions adapt within the integer family even when the
	// conversion narrows.
	if expr.IsConstant() &&
		types.Unwrap(actual.Type).IsInteger() &&
		types.Unwrap(expected.Type).IsInteger() {
		return ast.NewCastExpr(expr.Span(), types.MakeUse(expected.Type), expr)
	}

	a.diags.Fatal(what+" type mismatch; got '"+actual.String()+
		"', expected '"+expected.String()+"'", expr.Span())
	return expr
}
