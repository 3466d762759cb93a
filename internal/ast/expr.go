package ast

import (
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/types"
)

// Expr is implemented by every expression node. Every expression carries the
// resolved type use assigned by semantic analysis.
type Expr interface {
	Stmt
	Type() types.Use
	SetType(types.Use)

	// IsLValue reports whether this expression denotes a memory location.
	IsLValue() bool

	// IsConstant reports whether this expression folds to a constant.
	IsConstant() bool
}

type baseExpr struct {
	baseStmt
	typ types.Use
}

func (e *baseExpr) Type() types.Use     { return e.typ }
func (e *baseExpr) SetType(t types.Use) { e.typ = t }
func (e *baseExpr) IsLValue() bool      { return false }
func (e *baseExpr) IsConstant() bool    { return false }

func makeBaseExpr(span diag.SourceSpan) baseExpr {
	return baseExpr{baseStmt: baseStmt{baseNode{span}}}
}

// BoolLit is a 'true' or 'false' literal.
type BoolLit struct {
	baseExpr
	Value bool
}

// NewBoolLit returns a boolean literal.
func NewBoolLit(span diag.SourceSpan, value bool) *BoolLit {
	return &BoolLit{baseExpr: makeBaseExpr(span), Value: value}
}

func (*BoolLit) IsConstant() bool { return true }

// IntLit is an integer literal.
type IntLit struct {
	baseExpr
	Value int64
}

// NewIntLit returns an integer literal.
func NewIntLit(span diag.SourceSpan, value int64) *IntLit {
	return &IntLit{baseExpr: makeBaseExpr(span), Value: value}
}

func (*IntLit) IsConstant() bool { return true }

// FloatLit is a floating point literal.
type FloatLit struct {
	baseExpr
	Value float64
}

// NewFloatLit returns a float literal.
func NewFloatLit(span diag.SourceSpan, value float64) *FloatLit {
	return &FloatLit{baseExpr: makeBaseExpr(span), Value: value}
}

func (*FloatLit) IsConstant() bool { return true }

// CharLit is a character literal.
type CharLit struct {
	baseExpr
	Value byte
}

// NewCharLit returns a character literal.
func NewCharLit(span diag.SourceSpan, value byte) *CharLit {
	return &CharLit{baseExpr: makeBaseExpr(span), Value: value}
}

func (*CharLit) IsConstant() bool { return true }

// StringLit is a string literal.
type StringLit struct {
	baseExpr
	Value string
}

// NewStringLit returns a string literal.
func NewStringLit(span diag.SourceSpan, value string) *StringLit {
	return &StringLit{baseExpr: makeBaseExpr(span), Value: value}
}

func (*StringLit) IsConstant() bool { return true }

// NullLit is the 'null' pointer literal.
type NullLit struct{ baseExpr }

// NewNullLit returns a null literal.
func NewNullLit(span diag.SourceSpan) *NullLit {
	return &NullLit{makeBaseExpr(span)}
}

func (*NullLit) IsConstant() bool { return true }

// BinaryOperator enumerates binary operator kinds.
type BinaryOperator uint32

const (
	BinaryUnknown BinaryOperator = iota
	BinaryAssign
	BinaryAdd
	BinaryAddAssign
	BinarySub
	BinarySubAssign
	BinaryMul
	BinaryMulAssign
	BinaryDiv
	BinaryDivAssign
	BinaryMod
	BinaryModAssign
	BinaryAnd
	BinaryAndAssign
	BinaryOr
	BinaryOrAssign
	BinaryXor
	BinaryXorAssign
	BinaryShl
	BinaryShlAssign
	BinaryShr
	BinaryShrAssign
	BinaryLogicAnd
	BinaryLogicOr
	BinaryEq
	BinaryNe
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
)

// IsAssignment reports whether op writes to its left operand.
func (op BinaryOperator) IsAssignment() bool {
	switch op {
	case BinaryAssign, BinaryAddAssign, BinarySubAssign, BinaryMulAssign,
		BinaryDivAssign, BinaryModAssign, BinaryAndAssign, BinaryOrAssign,
		BinaryXorAssign, BinaryShlAssign, BinaryShrAssign:
		return true
	}
	return false
}

// IsComparison reports whether op yields a boolean comparison result.
func (op BinaryOperator) IsComparison() bool {
	return op.IsNumericalComparison() || op.IsLogicalComparison()
}

// IsNumericalComparison reports whether op is a relational comparison.
func (op BinaryOperator) IsNumericalComparison() bool {
	return op >= BinaryEq && op <= BinaryGe
}

// IsLogicalComparison reports whether op is '&&' or '||'.
func (op BinaryOperator) IsLogicalComparison() bool {
	return op == BinaryLogicAnd || op == BinaryLogicOr
}

// NonAssign returns the arithmetic operator underlying a shorthand
// assignment, e.g. '+=' yields '+'.
func (op BinaryOperator) NonAssign() BinaryOperator {
	switch op {
	case BinaryAddAssign:
		return BinaryAdd
	case BinarySubAssign:
		return BinarySub
	case BinaryMulAssign:
		return BinaryMul
	case BinaryDivAssign:
		return BinaryDiv
	case BinaryModAssign:
		return BinaryMod
	case BinaryAndAssign:
		return BinaryAnd
	case BinaryOrAssign:
		return BinaryOr
	case BinaryXorAssign:
		return BinaryXor
	case BinaryShlAssign:
		return BinaryShl
	case BinaryShrAssign:
		return BinaryShr
	default:
		return op
	}
}

// BinaryOp is a binary operation expression.
type BinaryOp struct {
	baseExpr
	Op  BinaryOperator
	LHS Expr
	RHS Expr
}

// NewBinaryOp returns a binary operation.
func NewBinaryOp(span diag.SourceSpan, op BinaryOperator, lhs, rhs Expr) *BinaryOp {
	return &BinaryOp{baseExpr: makeBaseExpr(span), Op: op, LHS: lhs, RHS: rhs}
}

func (e *BinaryOp) IsConstant() bool {
	return e.LHS.IsConstant() && e.RHS.IsConstant()
}

// UnaryOperator enumerates unary operator kinds.
type UnaryOperator uint32

const (
	UnaryUnknown UnaryOperator = iota
	UnaryIncrement
	UnaryDecrement
	UnaryNegate
	UnaryNot
	UnaryLogicNot
	UnaryAddressOf
	UnaryDereference
)

// UnaryOp is a unary operation expression.
type UnaryOp struct {
	baseExpr
	Op      UnaryOperator
	Operand Expr
	Postfix bool
}

// NewUnaryOp returns a unary operation.
func NewUnaryOp(span diag.SourceSpan, op UnaryOperator, operand Expr, postfix bool) *UnaryOp {
	return &UnaryOp{baseExpr: makeBaseExpr(span), Op: op, Operand: operand, Postfix: postfix}
}

func (e *UnaryOp) IsLValue() bool { return e.Op == UnaryDereference }

func (e *UnaryOp) IsConstant() bool {
	return e.Op == UnaryAddressOf || e.Operand.IsConstant()
}

// CastExpr converts its operand to a target type. Implicit conversions
// inserted by analysis use the same node.
type CastExpr struct {
	baseExpr
	Operand Expr
}

// NewCastExpr returns a cast of operand to the target use.
func NewCastExpr(span diag.SourceSpan, target types.Use, operand Expr) *CastExpr {
	e := &CastExpr{baseExpr: makeBaseExpr(span), Operand: operand}
	e.SetType(target)
	return e
}

func (e *CastExpr) IsConstant() bool { return e.Operand.IsConstant() }

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	baseExpr
	Operand Expr
}

// NewParenExpr returns a parenthesized expression.
func NewParenExpr(span diag.SourceSpan, operand Expr) *ParenExpr {
	return &ParenExpr{baseExpr: makeBaseExpr(span), Operand: operand}
}

func (e *ParenExpr) IsLValue() bool   { return e.Operand.IsLValue() }
func (e *ParenExpr) IsConstant() bool { return e.Operand.IsConstant() }

// SizeofExpr evaluates to the target-dependent size of a type.
type SizeofExpr struct {
	baseExpr
	Target types.Use
}

// NewSizeofExpr returns a sizeof expression.
func NewSizeofExpr(span diag.SourceSpan, target types.Use) *SizeofExpr {
	return &SizeofExpr{baseExpr: makeBaseExpr(span), Target: target}
}

func (*SizeofExpr) IsConstant() bool { return true }

// AccessExpr selects a field of a struct base. The resolved field is filled
// by analysis.
type AccessExpr struct {
	baseExpr
	Base  Expr
	Field string

	// Resolved is the field declaration this access resolves to.
	Resolved *FieldDecl
}

// NewAccessExpr returns a field access.
func NewAccessExpr(span diag.SourceSpan, base Expr, field string) *AccessExpr {
	return &AccessExpr{baseExpr: makeBaseExpr(span), Base: base, Field: field}
}

func (*AccessExpr) IsLValue() bool { return true }

// SubscriptExpr indexes an array or pointer base.
type SubscriptExpr struct {
	baseExpr
	Base  Expr
	Index Expr
}

// NewSubscriptExpr returns a subscript expression.
func NewSubscriptExpr(span diag.SourceSpan, base, index Expr) *SubscriptExpr {
	return &SubscriptExpr{baseExpr: makeBaseExpr(span), Base: base, Index: index}
}

func (*SubscriptExpr) IsLValue() bool { return true }

// DeclRefExpr references a named declaration. The resolved declaration is
// filled by analysis.
type DeclRefExpr struct {
	baseExpr
	Name string

	// Resolved is the value declaration this reference resolves to.
	Resolved ValueDecl
}

// NewDeclRefExpr returns a declaration reference.
func NewDeclRefExpr(span diag.SourceSpan, name string) *DeclRefExpr {
	return &DeclRefExpr{baseExpr: makeBaseExpr(span), Name: name}
}

func (e *DeclRefExpr) IsLValue() bool {
	switch e.Resolved.(type) {
	case *VariableDecl, *ParameterDecl:
		return true
	}
	return false
}

func (e *DeclRefExpr) IsConstant() bool {
	_, ok := e.Resolved.(*VariantDecl)
	return ok
}

// CallExpr calls a function value with arguments.
type CallExpr struct {
	baseExpr
	Callee Expr
	Args   []Expr
}

// NewCallExpr returns a call expression.
func NewCallExpr(span diag.SourceSpan, callee Expr, args []Expr) *CallExpr {
	return &CallExpr{baseExpr: makeBaseExpr(span), Callee: callee, Args: args}
}
