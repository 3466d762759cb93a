package ast

import "github.com/nwmarino/lovelace/internal/diag"

// Stmt is implemented by every statement node. Expressions are statements.
type Stmt interface {
	Node
	stmtNode()
}

type baseStmt struct{ baseNode }

func (*baseStmt) stmtNode() {}

// BlockStmt is a brace-delimited statement sequence with its own scope.
type BlockStmt struct {
	baseStmt
	Scope *Scope
	Stmts []Stmt
}

// NewBlockStmt returns a block statement.
func NewBlockStmt(span diag.SourceSpan, scope *Scope, stmts []Stmt) *BlockStmt {
	return &BlockStmt{baseStmt: baseStmt{baseNode{span}}, Scope: scope, Stmts: stmts}
}

// DeclStmt wraps local declarations appearing in statement position.
type DeclStmt struct {
	baseStmt
	Decls []Decl
}

// NewDeclStmt returns a declaration statement.
func NewDeclStmt(span diag.SourceSpan, decls []Decl) *DeclStmt {
	return &DeclStmt{baseStmt: baseStmt{baseNode{span}}, Decls: decls}
}

// RetStmt returns from the enclosing function, optionally with a value.
type RetStmt struct {
	baseStmt
	Value Expr
}

// NewRetStmt returns a return statement; value may be nil.
func NewRetStmt(span diag.SourceSpan, value Expr) *RetStmt {
	return &RetStmt{baseStmt: baseStmt{baseNode{span}}, Value: value}
}

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	baseStmt
	Cond Expr
	Then Stmt
	Else Stmt
}

// NewIfStmt returns an if statement; els may be nil.
func NewIfStmt(span diag.SourceSpan, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{baseStmt: baseStmt{baseNode{span}}, Cond: cond, Then: then, Else: els}
}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	baseStmt
	Cond Expr
	Body Stmt
}

// NewWhileStmt returns a while statement; body may be nil.
func NewWhileStmt(span diag.SourceSpan, cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{baseStmt: baseStmt{baseNode{span}}, Cond: cond, Body: body}
}

// BreakStmt exits the innermost loop.
type BreakStmt struct{ baseStmt }

// NewBreakStmt returns a break statement.
func NewBreakStmt(span diag.SourceSpan) *BreakStmt {
	return &BreakStmt{baseStmt{baseNode{span}}}
}

// ContinueStmt re-enters the innermost loop condition.
type ContinueStmt struct{ baseStmt }

// NewContinueStmt returns a continue statement.
func NewContinueStmt(span diag.SourceSpan) *ContinueStmt {
	return &ContinueStmt{baseStmt{baseNode{span}}}
}

// AsmStmt embeds a template of target instructions. The template references
// the i-th argument as '#i'; constraints describe how each argument is used:
// '|r' and '|m' write, '&r' and '&m' read-write, 'r' and 'm' read.
type AsmStmt struct {
	baseStmt
	Template          string
	OutputConstraints []string
	InputConstraints  []string
	Args              []Expr
}

// NewAsmStmt returns an asm statement.
func NewAsmStmt(span diag.SourceSpan, template string, outputs, inputs []string, args []Expr) *AsmStmt {
	return &AsmStmt{
		baseStmt:          baseStmt{baseNode{span}},
		Template:          template,
		OutputConstraints: outputs,
		InputConstraints:  inputs,
		Args:              args,
	}
}

// Constraints returns the output constraints followed by the input
// constraints, in argument order.
func (s *AsmStmt) Constraints() []string {
	all := make([]string, 0, len(s.OutputConstraints)+len(s.InputConstraints))
	all = append(all, s.OutputConstraints...)
	all = append(all, s.InputConstraints...)
	return all
}
