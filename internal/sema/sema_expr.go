package sema

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/types"
)

// checkExpr types an expression bottom-up, resolving references and
// inserting implicit conversions. It returns the (possibly wrapped)
// expression.
func (a *Analysis) checkExpr(expr ast.Expr, scope *ast.Scope) ast.Expr {
	switch e := expr.(type) {
	case *ast.BoolLit:
		e.SetType(types.MakeUse(a.ctx.Builtin(types.Bool)))
		return e

	case *ast.IntLit:
		e.SetType(types.MakeUse(a.ctx.Builtin(types.Int64)))
		return e

	case *ast.FloatLit:
		e.SetType(types.MakeUse(a.ctx.Builtin(types.Float64)))
		return e

	case *ast.CharLit:
		e.SetType(types.MakeUse(a.ctx.Builtin(types.Char)))
		return e

	case *ast.StringLit:
		char := types.MakeUse(a.ctx.Builtin(types.Char))
		e.SetType(types.MakeUse(a.ctx.Pointer(char)))
		return e

	case *ast.NullLit:
		void := types.MakeUse(a.ctx.Builtin(types.Void))
		e.SetType(types.MakeUse(a.ctx.Pointer(void)))
		return e

	case *ast.ParenExpr:
		e.Operand = a.checkExpr(e.Operand, scope)
		e.SetType(e.Operand.Type())
		return e

	case *ast.SizeofExpr:
		e.SetType(types.MakeUse(a.ctx.Builtin(types.UInt64)))
		return e

	case *ast.DeclRefExpr:
		return a.checkDeclRef(e, scope)

	case *ast.AccessExpr:
		return a.checkAccess(e, scope)

	case *ast.SubscriptExpr:
		return a.checkSubscript(e, scope)

	case *ast.UnaryOp:
		return a.checkUnary(e, scope)

	case *ast.BinaryOp:
		return a.checkBinary(e, scope)

	case *ast.CastExpr:
		e.Operand = a.checkExpr(e.Operand, scope)
		if !e.Operand.Type().CanCast(e.Type(), false) {
			a.diags.Fatal("invalid cast from '"+e.Operand.Type().String()+
				"' to '"+e.Type().String()+"'", e.Span())
		}
		return e

	case *ast.CallExpr:
		return a.checkCall(e, scope)

	default:
		panic("BUG: unexpected expression kind")
	}
}

func (a *Analysis) checkDeclRef(e *ast.DeclRefExpr, scope *ast.Scope) ast.Expr {
	decl := scope.Lookup(e.Name)
	if decl == nil {
		a.diags.Fatal("unresolved identifier '"+e.Name+"'", e.Span())
	}

	value, ok := decl.(ast.ValueDecl)
	if !ok {
		a.diags.Fatal("'"+e.Name+"' does not name a value", e.Span())
	}

	e.Resolved = value
	e.SetType(value.Type())
	return e
}

func (a *Analysis) checkAccess(e *ast.AccessExpr, scope *ast.Scope) ast.Expr {
	e.Base = a.checkExpr(e.Base, scope)

	baseUse := e.Base.Type()
	baseTy := types.Unwrap(baseUse.Type)

	// Pointer bases access through the pointee.
	if ptr, ok := baseTy.(*types.PointerType); ok {
		baseUse = ptr.Pointee()
		baseTy = types.Unwrap(baseUse.Type)
	}

	st, ok := baseTy.(*types.StructType)
	if !ok {
		a.diags.Fatal("field access on a non-struct value", e.Span())
	}

	decl, ok := a.structs[st.Name()]
	if !ok {
		panic("BUG: struct type without a declaration")
	}

	field := decl.Field(e.Field)
	if field == nil {
		a.diags.Fatal("no field named '"+e.Field+"' in struct '"+st.Name()+"'", e.Span())
	}

	e.Resolved = field
	use := field.Type()
	if baseUse.IsMut() {
		use = use.AsMut()
	}
	e.SetType(use)
	return e
}

func (a *Analysis) checkSubscript(e *ast.SubscriptExpr, scope *ast.Scope) ast.Expr {
	e.Base = a.checkExpr(e.Base, scope)
	e.Index = a.checkExpr(e.Index, scope)

	if !types.Unwrap(e.Index.Type().Type).IsInteger() {
		a.diags.Fatal("subscript index is not an integer", e.Index.Span())
	}
	e.Index = a.coerce(e.Index, types.MakeUse(a.ctx.Builtin(types.Int64)), "subscript index")

	baseUse := e.Base.Type()
	var use types.Use
	switch ty := types.Unwrap(baseUse.Type).(type) {
	case *types.ArrayType:
		use = ty.Element()
	case *types.PointerType:
		use = ty.Pointee()
	default:
		a.diags.Fatal("subscript of a non-array, non-pointer value", e.Span())
	}

	if baseUse.IsMut() {
		use = use.AsMut()
	}
	e.SetType(use)
	return e
}

func (a *Analysis) checkUnary(e *ast.UnaryOp, scope *ast.Scope) ast.Expr {
	e.Operand = a.checkExpr(e.Operand, scope)
	operand := e.Operand.Type()
	ty := types.Unwrap(operand.Type)

	switch e.Op {
	case ast.UnaryNegate:
		if !ty.IsInteger() && !ty.IsFloatingPoint() {
			a.diags.Fatal("operand of '-' is not numeric", e.Span())
		}
		e.SetType(operand)

	case ast.UnaryNot:
		if !ty.IsInteger() {
			a.diags.Fatal("operand of '~' is not an integer", e.Span())
		}
		e.SetType(operand)

	case ast.UnaryLogicNot:
		a.requireBoolable(e.Operand)
		e.SetType(types.MakeUse(a.ctx.Builtin(types.Bool)))

	case ast.UnaryAddressOf:
		if !e.Operand.IsLValue() {
			a.diags.Fatal("cannot take the address of a non-lvalue", e.Span())
		}
		e.SetType(types.MakeUse(a.ctx.Pointer(operand)))

	case ast.UnaryDereference:
		ptr, ok := ty.(*types.PointerType)
		if !ok {
			a.diags.Fatal("cannot dereference a non-pointer value", e.Span())
		}
		e.SetType(ptr.Pointee())

	case ast.UnaryIncrement, ast.UnaryDecrement:
		if !e.Operand.IsLValue() {
			a.diags.Fatal("operand of '++'/'--' is not an lvalue", e.Span())
		}
		if !operand.IsMut() {
			a.diags.Fatal("operand of '++'/'--' is immutable", e.Span())
		}
		if !ty.IsInteger() {
			a.diags.Fatal("operand of '++'/'--' is not an integer", e.Span())
		}
		e.SetType(operand)

	default:
		panic("BUG: unexpected unary operator")
	}

	return e
}

func (a *Analysis) checkBinary(e *ast.BinaryOp, scope *ast.Scope) ast.Expr {
	e.LHS = a.checkExpr(e.LHS, scope)
	e.RHS = a.checkExpr(e.RHS, scope)

	op := e.Op
	boolUse := types.MakeUse(a.ctx.Builtin(types.Bool))

	if op.IsAssignment() {
		if !e.LHS.IsLValue() {
			a.diags.Fatal("cannot assign to a non-lvalue", e.Span())
		}
		if !e.LHS.Type().IsMut() {
			a.diags.Fatal("cannot assign to an immutable value", e.Span())
		}
		e.RHS = a.coerce(e.RHS, e.LHS.Type(), "assignment")
		e.SetType(e.LHS.Type())
		return e
	}

	if op.IsLogicalComparison() {
		a.requireBoolable(e.LHS)
		a.requireBoolable(e.RHS)
		e.SetType(boolUse)
		return e
	}

	if op.IsNumericalComparison() {
		a.unifyOperands(e)
		e.SetType(boolUse)
		return e
	}

	// Arithmetic, bitwise and shift operators yield the unified operand
	// type.
	a.unifyOperands(e)
	e.SetType(e.LHS.Type())
	return e
}

// unifyOperands brings both operands of a binary operation to a common
// type, preferring the left type and falling back to widening the left
// operand into the right type.
func (a *Analysis) unifyOperands(e *ast.BinaryOp) {
	lhs, rhs := e.LHS.Type(), e.RHS.Type()
	if lhs.Compare(rhs) {
		return
	}

	if _, isLit := e.RHS.(*ast.IntLit); isLit {
		e.RHS = a.coerce(e.RHS, lhs, "operand")
		return
	}
	if _, isLit := e.LHS.(*ast.IntLit); isLit {
		e.LHS = a.coerce(e.LHS, rhs, "operand")
		return
	}

	if rhs.AsMut().CanCast(lhs, true) {
		e.RHS = a.coerce(e.RHS, lhs, "operand")
		return
	}
	e.LHS = a.coerce(e.LHS, rhs, "operand")
}

func (a *Analysis) checkCall(e *ast.CallExpr, scope *ast.Scope) ast.Expr {
	callee, ok := unparen(e.Callee).(*ast.DeclRefExpr)
	if !ok {
		a.diags.Fatal("called value is not a function", e.Span())
	}

	decl := scope.Lookup(callee.Name)
	if decl == nil {
		a.diags.Fatal("unresolved identifier '"+callee.Name+"'", callee.Span())
	}

	fn, ok := decl.(*ast.FunctionDecl)
	if !ok {
		a.diags.Fatal("'"+callee.Name+"' is not a function", e.Span())
	}

	callee.Resolved = fn
	callee.SetType(fn.Type())

	sig := fn.Signature()
	if len(e.Args) != sig.NumParams() {
		a.diags.Fatal("call to '"+fn.Name()+"' has the wrong number of arguments", e.Span())
	}

	for i, arg := range e.Args {
		e.Args[i] = a.checkExpr(arg, scope)
		e.Args[i] = a.coerce(e.Args[i], sig.Param(i), "argument")
	}

	e.SetType(sig.Return())
	return e
}

// unparen strips grouping parentheses.
func unparen(e ast.Expr) ast.Expr {
	for {
		paren, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = paren.Operand
	}
}
