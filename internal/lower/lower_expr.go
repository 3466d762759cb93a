package lower

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/types"
)

// lowerExpr lowers an expression. Lvalue positions request the address of
// the denoted location; rvalue positions request the value itself.
func (l *Lowerer) lowerExpr(expr ast.Expr, lvalue bool) ir.Value {
	switch e := expr.(type) {
	case *ast.BoolLit:
		v := int64(0)
		if e.Value {
			v = 1
		}
		return ir.NewConstantInt(l.graph.I1(), v)

	case *ast.IntLit:
		return ir.NewConstantInt(l.lowerType(e.Type()), e.Value)

	case *ast.FloatLit:
		return ir.NewConstantFP(l.lowerType(e.Type()), e.Value)

	case *ast.CharLit:
		return ir.NewConstantInt(l.graph.I8(), int64(e.Value))

	case *ast.StringLit:
		str := ir.NewConstantString(l.graph.PointerTo(l.graph.I8()), e.Value)
		return l.builder.BuildString(str)

	case *ast.NullLit:
		return ir.NewConstantNull(l.lowerType(e.Type()))

	case *ast.ParenExpr:
		return l.lowerExpr(e.Operand, lvalue)

	case *ast.SizeofExpr:
		size := l.target.TypeSize(l.lowerType(e.Target))
		return ir.NewConstantInt(l.graph.I64(), int64(size))

	case *ast.DeclRefExpr:
		return l.lowerDeclRef(e, lvalue)

	case *ast.AccessExpr:
		return l.lowerAccess(e, lvalue)

	case *ast.SubscriptExpr:
		return l.lowerSubscript(e, lvalue)

	case *ast.UnaryOp:
		return l.lowerUnary(e, lvalue)

	case *ast.BinaryOp:
		return l.lowerBinary(e)

	case *ast.CastExpr:
		return l.lowerCast(e)

	case *ast.CallExpr:
		return l.lowerCall(e)

	default:
		panic("BUG: unexpected expression kind")
	}
}

func (l *Lowerer) lowerDeclRef(e *ast.DeclRefExpr, lvalue bool) ir.Value {
	switch decl := e.Resolved.(type) {
	case *ast.VariantDecl:
		return ir.NewConstantInt(l.lowerType(e.Type()), decl.Value)

	case *ast.FunctionDecl:
		fn := l.graph.Function(decl.Name())
		if fn == nil {
			panic("BUG: reference to unlowered function " + decl.Name())
		}
		return fn

	case *ast.VariableDecl:
		var addr ir.Value
		if decl.Global {
			global := l.graph.Global(e.Name)
			if global == nil {
				panic("BUG: reference to unlowered global " + e.Name)
			}
			addr = global
		} else {
			local := l.locals[decl]
			if local == nil {
				panic("BUG: reference to unlowered local " + e.Name)
			}
			addr = local
		}
		if lvalue {
			return addr
		}
		return l.builder.BuildLoad(l.lowerType(e.Type()), addr)

	case *ast.ParameterDecl:
		local := l.locals[decl]
		if local == nil {
			panic("BUG: reference to unlowered parameter " + e.Name)
		}
		if lvalue {
			return local
		}
		return l.builder.BuildLoad(l.lowerType(e.Type()), local)

	default:
		panic("BUG: unexpected declaration reference")
	}
}

func (l *Lowerer) lowerAccess(e *ast.AccessExpr, lvalue bool) ir.Value {
	if e.Resolved == nil {
		panic("BUG: unresolved field access survived analysis")
	}

	// Pointer bases load the pointer first; non-pointer bases take the
	// address of the base and index through it.
	var base ir.Value
	if types.Unwrap(e.Base.Type().Type).IsPointer() {
		base = l.lowerExpr(e.Base, false)
	} else {
		base = l.lowerExpr(e.Base, true)
	}

	fieldTy := l.lowerType(e.Resolved.Type())
	ptr := l.builder.BuildAccessPtr(
		l.graph.PointerTo(fieldTy),
		base,
		ir.NewConstantInt(l.graph.I64(), int64(e.Resolved.Index)))

	if lvalue {
		return ptr
	}
	return l.builder.BuildLoad(fieldTy, ptr)
}

func (l *Lowerer) lowerSubscript(e *ast.SubscriptExpr, lvalue bool) ir.Value {
	// Pointer bases load the pointer value; array bases index in place.
	var base ir.Value
	if types.Unwrap(e.Base.Type().Type).IsPointer() {
		base = l.lowerExpr(e.Base, false)
	} else {
		base = l.lowerExpr(e.Base, true)
	}

	index := l.lowerExpr(e.Index, false)

	elemTy := l.lowerType(e.Type())
	ptr := l.builder.BuildAccessPtr(l.graph.PointerTo(elemTy), base, index)

	if lvalue {
		return ptr
	}
	return l.builder.BuildLoad(elemTy, ptr)
}

func (l *Lowerer) lowerUnary(e *ast.UnaryOp, lvalue bool) ir.Value {
	switch e.Op {
	case ast.UnaryDereference:
		ptr := l.lowerExpr(e.Operand, false)
		if lvalue {
			return ptr
		}
		return l.builder.BuildLoad(l.lowerType(e.Type()), ptr)

	case ast.UnaryAddressOf:
		return l.lowerExpr(e.Operand, true)

	case ast.UnaryNegate:
		operand := l.lowerExpr(e.Operand, false)
		if operand.Type().IsFloatingPoint() {
			return l.builder.BuildFNeg(operand)
		}
		return l.builder.BuildINeg(operand)

	case ast.UnaryNot:
		return l.builder.BuildNot(l.lowerExpr(e.Operand, false))

	case ast.UnaryLogicNot:
		operand := l.lowerExpr(e.Operand, false)
		ty := operand.Type()
		switch {
		case ty.IsFloatingPoint():
			return l.builder.BuildCmp(ir.OpcodeCmpOEQ, operand, ir.NewConstantFP(ty, 0))
		case ty.IsPointer():
			return l.builder.BuildCmpIEQ(operand, ir.NewConstantNull(ty))
		default:
			return l.builder.BuildCmpIEQ(operand, ir.ConstantZero(ty))
		}

	case ast.UnaryIncrement, ast.UnaryDecrement:
		addr := l.lowerExpr(e.Operand, true)
		ty := l.lowerType(e.Operand.Type())
		old := l.builder.BuildLoad(ty, addr)

		one := ir.NewConstantInt(ty, 1)
		var next ir.Value
		if e.Op == ast.UnaryIncrement {
			next = l.builder.BuildIAdd(old, one)
		} else {
			next = l.builder.BuildISub(old, one)
		}
		l.builder.BuildStore(next, addr)

		if e.Postfix {
			return old
		}
		return next

	default:
		panic("BUG: unexpected unary operator")
	}
}

func (l *Lowerer) lowerBinary(e *ast.BinaryOp) ir.Value {
	op := e.Op

	if op == ast.BinaryAssign {
		value := l.lowerExpr(e.RHS, false)
		addr := l.lowerExpr(e.LHS, true)
		l.builder.BuildStore(value, addr)
		return value
	}

	if op.IsAssignment() {
		// Shorthand assignment: load, apply, store back.
		addr := l.lowerExpr(e.LHS, true)
		ty := l.lowerType(e.LHS.Type())
		old := l.builder.BuildLoad(ty, addr)
		rhs := l.lowerExpr(e.RHS, false)

		result := l.lowerArith(op.NonAssign(), e.LHS.Type(), old, rhs)
		l.builder.BuildStore(result, addr)
		return result
	}

	if op.IsLogicalComparison() {
		return l.lowerShortCircuit(e)
	}

	if op.IsNumericalComparison() {
		lhs := l.lowerExpr(e.LHS, false)
		rhs := l.lowerExpr(e.RHS, false)
		return l.builder.BuildCmp(comparisonOpcode(op, e.LHS.Type()), lhs, rhs)
	}

	lhs := l.lowerExpr(e.LHS, false)
	rhs := l.lowerExpr(e.RHS, false)
	return l.lowerArith(op, e.Type(), lhs, rhs)
}

// lowerArith emits the arithmetic instruction for op, choosing the signed,
// unsigned or float variant from the source type.
func (l *Lowerer) lowerArith(op ast.BinaryOperator, ty types.Use, lhs, rhs ir.Value) ir.Value {
	float := ty.Type.IsFloatingPoint()
	signed := ty.Type.IsSignedInteger()

	switch op {
	case ast.BinaryAdd:
		if float {
			return l.builder.BuildFAdd(lhs, rhs)
		}
		return l.builder.BuildIAdd(lhs, rhs)
	case ast.BinarySub:
		if float {
			return l.builder.BuildFSub(lhs, rhs)
		}
		return l.builder.BuildISub(lhs, rhs)
	case ast.BinaryMul:
		if float {
			return l.builder.BuildFMul(lhs, rhs)
		}
		if signed {
			return l.builder.BuildSMul(lhs, rhs)
		}
		return l.builder.BuildUMul(lhs, rhs)
	case ast.BinaryDiv:
		if float {
			return l.builder.BuildFDiv(lhs, rhs)
		}
		if signed {
			return l.builder.BuildSDiv(lhs, rhs)
		}
		return l.builder.BuildUDiv(lhs, rhs)
	case ast.BinaryMod:
		if signed {
			return l.builder.BuildSRem(lhs, rhs)
		}
		return l.builder.BuildURem(lhs, rhs)
	case ast.BinaryAnd:
		return l.builder.BuildAnd(lhs, rhs)
	case ast.BinaryOr:
		return l.builder.BuildOr(lhs, rhs)
	case ast.BinaryXor:
		return l.builder.BuildXor(lhs, rhs)
	case ast.BinaryShl:
		return l.builder.BuildShl(lhs, rhs)
	case ast.BinaryShr:
		if signed {
			return l.builder.BuildSar(lhs, rhs)
		}
		return l.builder.BuildShr(lhs, rhs)
	default:
		panic("BUG: unexpected arithmetic operator")
	}
}

// comparisonOpcode maps a relational operator onto the IR comparison family
// for the operand type: ordered for floats, signed or unsigned for ints.
func comparisonOpcode(op ast.BinaryOperator, operand types.Use) ir.Opcode {
	float := operand.Type.IsFloatingPoint()
	unsigned := operand.Type.IsUnsignedInteger() || operand.Type.IsPointer()

	switch op {
	case ast.BinaryEq:
		if float {
			return ir.OpcodeCmpOEQ
		}
		return ir.OpcodeCmpIEQ
	case ast.BinaryNe:
		if float {
			return ir.OpcodeCmpONE
		}
		return ir.OpcodeCmpINE
	case ast.BinaryLt:
		if float {
			return ir.OpcodeCmpOLT
		}
		if unsigned {
			return ir.OpcodeCmpULT
		}
		return ir.OpcodeCmpSLT
	case ast.BinaryLe:
		if float {
			return ir.OpcodeCmpOLE
		}
		if unsigned {
			return ir.OpcodeCmpULE
		}
		return ir.OpcodeCmpSLE
	case ast.BinaryGt:
		if float {
			return ir.OpcodeCmpOGT
		}
		if unsigned {
			return ir.OpcodeCmpUGT
		}
		return ir.OpcodeCmpSGT
	case ast.BinaryGe:
		if float {
			return ir.OpcodeCmpOGE
		}
		if unsigned {
			return ir.OpcodeCmpUGE
		}
		return ir.OpcodeCmpSGE
	default:
		panic("BUG: expected a relational operator")
	}
}

// lowerShortCircuit lowers '&&' and '||': evaluate the left side, branch,
// evaluate the right side in its own block, and join with an i1 phi.
func (l *Lowerer) lowerShortCircuit(e *ast.BinaryOp) ir.Value {
	lhs := l.injectBool(l.lowerExpr(e.LHS, false))
	lhsBlock := l.builder.Insert()

	rightBB := l.fn.NewBlock()
	mergeBB := l.fn.NewBlock()

	var shortValue int64
	if e.Op == ast.BinaryLogicAnd {
		// A false left side skips the right side entirely.
		l.builder.BuildBrIf(lhs, rightBB, mergeBB)
		shortValue = 0
	} else {
		// A true left side skips the right side entirely.
		l.builder.BuildBrIf(lhs, mergeBB, rightBB)
		shortValue = 1
	}

	l.fn.PushBack(rightBB)
	l.builder.SetInsert(rightBB)
	rhs := l.injectBool(l.lowerExpr(e.RHS, false))
	rhsBlock := l.builder.Insert()
	l.builder.BuildJmp(mergeBB)

	l.fn.PushBack(mergeBB)
	l.builder.SetInsert(mergeBB)

	return l.builder.BuildPhi(l.graph.I1(),
		ir.NewPhiOperand(lhsBlock, ir.NewConstantInt(l.graph.I1(), shortValue)),
		ir.NewPhiOperand(rhsBlock, rhs))
}

// lowerCast emits the explicit conversion chain between the operand type
// and the cast target. The IR has no implicit conversions, so every change
// of width, signedness representation or domain is an explicit opcode.
func (l *Lowerer) lowerCast(e *ast.CastExpr) ir.Value {
	from := types.Unwrap(e.Operand.Type().Type)
	to := types.Unwrap(e.Type().Type)

	// Array decay: take the base address and reinterpret it as a pointer
	// to the element type.
	if from.IsArray() && to.IsPointer() {
		addr := l.lowerExpr(e.Operand, true)
		return l.builder.BuildReinterpret(l.lowerType(e.Type()), addr)
	}

	operand := l.lowerExpr(e.Operand, false)
	fromTy := operand.Type()
	toTy := l.lowerType(e.Type())

	if fromTy == toTy {
		return operand
	}

	fromBits := l.target.TypeSizeInBits(fromTy)
	toBits := l.target.TypeSizeInBits(toTy)

	switch {
	case from.IsInteger() && to.IsInteger():
		if toBits == fromBits {
			return operand
		}
		if toBits < fromBits {
			return l.builder.BuildITrunc(toTy, operand)
		}
		if from.IsUnsignedInteger() {
			return l.builder.BuildZExt(toTy, operand)
		}
		return l.builder.BuildSExt(toTy, operand)

	case from.IsInteger() && to.IsFloatingPoint():
		if from.IsUnsignedInteger() {
			return l.builder.BuildUI2FP(toTy, operand)
		}
		return l.builder.BuildSI2FP(toTy, operand)

	case from.IsFloatingPoint() && to.IsInteger():
		if to.IsUnsignedInteger() {
			return l.builder.BuildFP2UI(toTy, operand)
		}
		return l.builder.BuildFP2SI(toTy, operand)

	case from.IsFloatingPoint() && to.IsFloatingPoint():
		if toBits > fromBits {
			return l.builder.BuildFExt(toTy, operand)
		}
		return l.builder.BuildFTrunc(toTy, operand)

	case from.IsPointer() && to.IsInteger():
		return l.builder.BuildP2I(toTy, operand)

	case from.IsInteger() && to.IsPointer():
		return l.builder.BuildI2P(toTy, operand)

	case from.IsPointer() && to.IsPointer():
		return l.builder.BuildReinterpret(toTy, operand)

	default:
		l.diags.Error("unsupported cast from '"+e.Operand.Type().String()+
			"' to '"+e.Type().String()+"'", e.Span())
		return operand
	}
}

func (l *Lowerer) lowerCall(e *ast.CallExpr) ir.Value {
	ref, ok := unparen(e.Callee).(*ast.DeclRefExpr)
	if !ok {
		l.diags.Error("called value is not a function", e.Span())
		return ir.ConstantZero(l.graph.I64())
	}

	fnDecl, ok := ref.Resolved.(*ast.FunctionDecl)
	if !ok {
		l.diags.Error("called value is not a function", e.Span())
		return ir.ConstantZero(l.graph.I64())
	}

	callee := l.graph.Function(fnDecl.Name())
	if callee == nil {
		panic("BUG: call to unlowered function " + fnDecl.Name())
	}

	args := make([]ir.Value, len(e.Args))
	for i, arg := range e.Args {
		args[i] = l.lowerExpr(arg, false)
	}

	return l.builder.BuildCall(callee.Signature(), callee, args)
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
