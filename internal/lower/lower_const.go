package lower

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/ir"
)

// foldConstant evaluates a constant expression into an IR constant usable
// as a global initializer. It returns nil when the expression does not
// fold.
func (l *Lowerer) foldConstant(expr ast.Expr) ir.Constant {
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

	case *ast.NullLit:
		return ir.NewConstantNull(l.lowerType(e.Type()))

	case *ast.StringLit:
		return ir.NewConstantString(l.graph.PointerTo(l.graph.I8()), e.Value)

	case *ast.SizeofExpr:
		size := l.target.TypeSize(l.lowerType(e.Target))
		return ir.NewConstantInt(l.graph.I64(), int64(size))

	case *ast.ParenExpr:
		return l.foldConstant(e.Operand)

	case *ast.CastExpr:
		inner := l.foldConstant(e.Operand)
		if inner == nil {
			return nil
		}
		// Integer constants retype in place; everything else keeps its
		// folded form.
		if ci, ok := inner.(*ir.ConstantInt); ok {
			if target := l.lowerType(e.Type()); target.IsInteger() {
				return ir.NewConstantInt(target, ci.Value())
			}
		}
		return inner

	case *ast.DeclRefExpr:
		if variant, ok := e.Resolved.(*ast.VariantDecl); ok {
			return ir.NewConstantInt(l.lowerType(e.Type()), variant.Value)
		}
		return nil

	case *ast.UnaryOp:
		inner := l.foldConstant(e.Operand)
		if inner == nil || e.Op != ast.UnaryNegate {
			return nil
		}
		switch c := inner.(type) {
		case *ir.ConstantInt:
			return ir.NewConstantInt(c.Type(), -c.Value())
		case *ir.ConstantFP:
			return ir.NewConstantFP(c.Type(), -c.Value())
		}
		return nil

	case *ast.BinaryOp:
		lhs, okL := l.foldConstant(e.LHS).(*ir.ConstantInt)
		rhs, okR := l.foldConstant(e.RHS).(*ir.ConstantInt)
		if !okL || !okR {
			return nil
		}
		ty := l.lowerType(e.Type())
		switch e.Op {
		case ast.BinaryAdd:
			return ir.NewConstantInt(ty, lhs.Value()+rhs.Value())
		case ast.BinarySub:
			return ir.NewConstantInt(ty, lhs.Value()-rhs.Value())
		case ast.BinaryMul:
			return ir.NewConstantInt(ty, lhs.Value()*rhs.Value())
		case ast.BinaryDiv:
			if rhs.Value() == 0 {
				return nil
			}
			return ir.NewConstantInt(ty, lhs.Value()/rhs.Value())
		case ast.BinaryMod:
			if rhs.Value() == 0 {
				return nil
			}
			return ir.NewConstantInt(ty, lhs.Value()%rhs.Value())
		case ast.BinaryAnd:
			return ir.NewConstantInt(ty, lhs.Value()&rhs.Value())
		case ast.BinaryOr:
			return ir.NewConstantInt(ty, lhs.Value()|rhs.Value())
		case ast.BinaryXor:
			return ir.NewConstantInt(ty, lhs.Value()^rhs.Value())
		case ast.BinaryShl:
			return ir.NewConstantInt(ty, lhs.Value()<<uint64(rhs.Value()))
		case ast.BinaryShr:
			return ir.NewConstantInt(ty, lhs.Value()>>uint64(rhs.Value()))
		default:
			return nil
		}

	default:
		return nil
	}
}
