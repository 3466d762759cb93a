package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestFunction builds an empty () -> i64 function with an entry block.
func newTestFunction(t *testing.T) (*CFG, *Builder, *Function, *BasicBlock) {
	t.Helper()
	g := NewCFG("test.stm")
	b := NewBuilder(g)
	fn := NewFunction(g, LinkageExternal,
		g.FunctionTypeOf(g.I64(), nil), "test", nil)
	entry := fn.NewBlock()
	fn.PushBack(entry)
	b.SetInsert(entry)
	return g, b, fn, entry
}

func TestResultIDsUniqueAndNonZero(t *testing.T) {
	g, b, _, _ := newTestFunction(t)

	seen := map[uint32]bool{}
	for i := 0; i < 8; i++ {
		inst := b.BuildConst(NewConstantInt(g.I64(), int64(i)))
		require.NotZero(t, inst.ResultID())
		require.False(t, seen[inst.ResultID()], "result id reused")
		seen[inst.ResultID()] = true
	}
}

func TestTerminatorClosesBlock(t *testing.T) {
	g, b, _, entry := newTestFunction(t)

	b.BuildRet(NewConstantInt(g.I64(), 0))
	require.True(t, entry.Terminates())
	require.Same(t, entry.Back(), entry.Terminator())

	require.Panics(t, func() { b.BuildRetVoid() })
}

func TestExactlyOneTerminatorAtEnd(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	next := fn.NewBlock()
	fn.PushBack(next)

	b.BuildConst(NewConstantInt(g.I64(), 1))
	b.BuildJmp(next)
	b.SetInsert(next)
	b.BuildRet(NewConstantInt(g.I64(), 0))

	for _, block := range fn.Blocks() {
		terminators := 0
		for _, inst := range block.Insts() {
			if inst.IsTerminator() {
				terminators++
			}
		}
		require.Equal(t, 1, terminators)
		require.True(t, block.Back().IsTerminator())
	}

	require.Equal(t, []*BasicBlock{entry}, next.Preds())
	require.Equal(t, []*BasicBlock{next}, entry.Succs())
}

func TestBranchEdgesAreMutuallyConsistent(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	then := fn.NewBlock()
	els := fn.NewBlock()
	fn.PushBack(then)
	fn.PushBack(els)

	cond := b.BuildConst(NewConstantInt(g.I1(), 1))
	b.BuildBrIf(cond, then, els)

	require.ElementsMatch(t, []*BasicBlock{then, els}, entry.Succs())
	require.Equal(t, []*BasicBlock{entry}, then.Preds())
	require.Equal(t, []*BasicBlock{entry}, els.Preds())
}

func TestPhiOperandsMatchPredecessors(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	left := fn.NewBlock()
	right := fn.NewBlock()
	merge := fn.NewBlock()
	fn.PushBack(left)
	fn.PushBack(right)
	fn.PushBack(merge)

	cond := b.BuildConst(NewConstantInt(g.I1(), 1))
	b.BuildBrIf(cond, left, right)

	b.SetInsert(left)
	lval := b.BuildConst(NewConstantInt(g.I64(), 1))
	b.BuildJmp(merge)

	b.SetInsert(right)
	rval := b.BuildConst(NewConstantInt(g.I64(), 2))
	b.BuildJmp(merge)

	b.SetInsert(merge)
	phi := b.BuildPhi(g.I64(),
		NewPhiOperand(left, lval),
		NewPhiOperand(right, rval))
	b.BuildRet(phi)

	// The multiset of phi-operand predecessors equals the block's
	// predecessor set.
	var phiPreds []*BasicBlock
	for _, op := range phi.Operands() {
		phiPreds = append(phiPreds, op.(*PhiOperand).Pred())
	}
	require.ElementsMatch(t, merge.Preds(), phiPreds)

	_ = entry
}

func TestLoadStoreTypeChecking(t *testing.T) {
	g, b, fn, _ := newTestFunction(t)

	local := fn.NewLocal(g, g.I32(), 4, "x")
	b.BuildStore(NewConstantInt(g.I32(), 1), local)
	load := b.BuildLoad(g.I32(), local)
	require.Same(t, Type(g.I32()), load.Type())

	// Mismatched width must be rejected: the IR has no implicit
	// conversions.
	require.Panics(t, func() { b.BuildStore(NewConstantInt(g.I64(), 1), local) })
	require.Panics(t, func() { b.BuildLoad(g.I64(), local) })
}

func TestUseTracking(t *testing.T) {
	g, b, _, _ := newTestFunction(t)

	a := b.BuildConst(NewConstantInt(g.I64(), 1))
	c := b.BuildConst(NewConstantInt(g.I64(), 2))
	sum := b.BuildIAdd(a, c)

	require.Equal(t, 1, a.NumUses())
	require.Equal(t, 1, c.NumUses())
	require.Equal(t, 0, sum.NumUses())
	require.Same(t, sum, a.Uses()[0])
}

func TestTrivialDCERemovesDeadValues(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	dead := b.BuildConst(NewConstantInt(g.I64(), 7))
	deadChain := b.BuildIAdd(dead, dead)
	live := b.BuildConst(NewConstantInt(g.I64(), 1))
	b.BuildRet(live)
	_ = deadChain

	TrivialDCE(fn)

	require.Len(t, entry.Insts(), 2)
	require.Equal(t, OpcodeConstant, entry.Insts()[0].Opcode())
	require.Equal(t, OpcodeReturn, entry.Insts()[1].Opcode())
}

func TestTrivialDCEIdempotent(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	dead := b.BuildConst(NewConstantInt(g.I64(), 7))
	b.BuildIAdd(dead, dead)
	b.BuildRet(NewConstantInt(g.I64(), 0))

	TrivialDCE(fn)
	once := len(entry.Insts())
	TrivialDCE(fn)
	require.Equal(t, once, len(entry.Insts()))
}

func TestStoresSurviveDCE(t *testing.T) {
	g, b, fn, entry := newTestFunction(t)

	local := fn.NewLocal(g, g.I64(), 8, "x")
	b.BuildStore(NewConstantInt(g.I64(), 3), local)
	b.BuildRetVoid()

	TrivialDCE(fn)
	require.Len(t, entry.Insts(), 2)
}

func TestTypeInterning(t *testing.T) {
	g := NewCFG("test.stm")

	require.Same(t, g.I32(), g.IntType(32))
	require.Same(t, g.PointerTo(g.I8()), g.PointerTo(g.I8()))
	require.Same(t, g.ArrayOf(g.I32(), 4), g.ArrayOf(g.I32(), 4))
	require.NotSame(t, g.ArrayOf(g.I32(), 4), g.ArrayOf(g.I32(), 8))
	require.Same(t, g.StructTypeOf("vec"), g.StructTypeOf("vec"))
}

func TestFormatContainsBlocksAndInstructions(t *testing.T) {
	g, b, fn, _ := newTestFunction(t)
	b.BuildRet(NewConstantInt(g.I64(), 42))

	format := fn.Format()
	require.Contains(t, format, "fn @test")
	require.Contains(t, format, "bb0:")
	require.Contains(t, format, "ret 42")
}
