package lower

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/ir"
)

func (l *Lowerer) lowerStmt(stmt ast.Stmt) {
	// Statements behind a terminator are unreachable; emitting them would
	// grow a closed block.
	if l.builder.Insert().Terminates() {
		return
	}

	switch s := stmt.(type) {
	case *ast.BlockStmt:
		for _, child := range s.Stmts {
			l.lowerStmt(child)
		}

	case *ast.DeclStmt:
		for _, decl := range s.Decls {
			l.lowerLocal(decl.(*ast.VariableDecl))
		}

	case *ast.RetStmt:
		l.lowerRet(s)

	case *ast.IfStmt:
		l.lowerIf(s)

	case *ast.WhileStmt:
		l.lowerWhile(s)

	case *ast.BreakStmt:
		if l.builder.Insert().Terminates() {
			return
		}
		if l.merge == nil {
			panic("BUG: break outside a loop survived analysis")
		}
		l.builder.BuildJmp(l.merge)

	case *ast.ContinueStmt:
		if l.builder.Insert().Terminates() {
			return
		}
		if l.condition == nil {
			panic("BUG: continue outside a loop survived analysis")
		}
		l.builder.BuildJmp(l.condition)

	case *ast.AsmStmt:
		l.lowerAsm(s)

	case ast.Expr:
		// Expression statement: evaluate for effect, discard the value.
		l.lowerExpr(s, false)

	default:
		panic("BUG: unexpected statement kind")
	}
}

func (l *Lowerer) lowerLocal(decl *ast.VariableDecl) {
	allocated := l.lowerType(decl.Type())
	local := l.fn.NewLocal(l.graph, allocated,
		l.target.TypeAlign(allocated), decl.Name())
	l.locals[decl] = local

	if decl.Init != nil {
		value := l.lowerExpr(decl.Init, false)
		l.builder.BuildStore(value, local)
	}
}

func (l *Lowerer) lowerRet(stmt *ast.RetStmt) {
	// A second return in the same block is dropped; the terminator slot is
	// already filled.
	if l.builder.Insert().Terminates() {
		return
	}

	if stmt.Value == nil {
		l.builder.BuildRetVoid()
		return
	}

	value := l.lowerExpr(stmt.Value, false)
	l.builder.BuildRet(value)
}

func (l *Lowerer) lowerIf(stmt *ast.IfStmt) {
	cond := l.lowerExpr(stmt.Cond, false)

	thenBB := l.fn.NewBlock()
	l.fn.PushBack(thenBB)
	mergeBB := l.fn.NewBlock()

	var elseBB *ir.BasicBlock
	if stmt.Else != nil {
		elseBB = l.fn.NewBlock()
		l.builder.BuildBrIf(l.injectBool(cond), thenBB, elseBB)
	} else {
		l.builder.BuildBrIf(l.injectBool(cond), thenBB, mergeBB)
	}

	l.builder.SetInsert(thenBB)
	l.lowerStmt(stmt.Then)
	if !l.builder.Insert().Terminates() {
		l.builder.BuildJmp(mergeBB)
	}

	if stmt.Else != nil {
		l.fn.PushBack(elseBB)
		l.builder.SetInsert(elseBB)
		l.lowerStmt(stmt.Else)
		if !l.builder.Insert().Terminates() {
			l.builder.BuildJmp(mergeBB)
		}
	}

	if mergeBB.HasPreds() {
		l.fn.PushBack(mergeBB)
		l.builder.SetInsert(mergeBB)
	}
	// A merge block without predecessors is discarded; it was never placed
	// in the layout.
}

func (l *Lowerer) lowerWhile(stmt *ast.WhileStmt) {
	condBB := l.fn.NewBlock()
	l.fn.PushBack(condBB)
	mergeBB := l.fn.NewBlock()

	l.builder.BuildJmp(condBB)
	l.builder.SetInsert(condBB)
	cond := l.injectBool(l.lowerExpr(stmt.Cond, false))

	if stmt.Body != nil {
		bodyBB := l.fn.NewBlock()
		l.builder.BuildBrIf(cond, bodyBB, mergeBB)

		l.fn.PushBack(bodyBB)
		l.builder.SetInsert(bodyBB)

		prevCondition, prevMerge := l.condition, l.merge
		l.condition, l.merge = condBB, mergeBB

		l.lowerStmt(stmt.Body)
		if !l.builder.Insert().Terminates() {
			l.builder.BuildJmp(condBB)
		}

		l.condition, l.merge = prevCondition, prevMerge
	} else {
		l.builder.BuildBrIf(cond, condBB, mergeBB)
	}

	l.fn.PushBack(mergeBB)
	l.builder.SetInsert(mergeBB)
}

// lowerAsm packs an asm statement into an InlineAsm value called like a
// function. Lvalue arguments pass their address so the template can name
// their stack slots.
func (l *Lowerer) lowerAsm(stmt *ast.AsmStmt) {
	iasm := ir.NewInlineAsm(stmt.Template, stmt.Constraints())

	args := make([]ir.Value, len(stmt.Args))
	for i, arg := range stmt.Args {
		args[i] = l.lowerExpr(arg, arg.IsLValue())
	}

	l.builder.BuildAsmCall(iasm, args)
}
