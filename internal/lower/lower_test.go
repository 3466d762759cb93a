package lower

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/sema"
	"github.com/nwmarino/lovelace/internal/syntax"
	"github.com/nwmarino/lovelace/internal/target"
)

// lowerSource runs the front end and lowering over src.
func lowerSource(t *testing.T, src string) *ir.CFG {
	t.Helper()
	diags := diag.New(io.Discard)

	unit := syntax.NewParser("test.stm", src, diags).ParseUnit()
	sema.New(unit, diags).Run()

	tgt := target.New(target.ArchX64, target.ABISystemV, target.OSLinux)
	graph := New(unit, tgt, diags).Run()
	require.Zero(t, diags.ErrorCount())
	return graph
}

// checkBlockInvariants asserts the structural properties every lowered
// function must satisfy: one trailing terminator per block, consistent
// edges, and phi operands matching predecessor sets.
func checkBlockInvariants(t *testing.T, fn *ir.Function) {
	t.Helper()
	for _, block := range fn.Blocks() {
		terminators := 0
		for _, inst := range block.Insts() {
			if inst.IsTerminator() {
				terminators++
			}
		}
		require.Equal(t, 1, terminators, "block %s of %s", block.Name(), fn.Name())
		require.True(t, block.Back().IsTerminator())

		if block != fn.Entry() {
			require.True(t, block.HasPreds(),
				"non-entry block %s of %s has no predecessors", block.Name(), fn.Name())
		}

		for _, inst := range block.Insts() {
			if inst.Opcode() != ir.OpcodePhi {
				continue
			}
			var phiPreds []*ir.BasicBlock
			for _, op := range inst.Operands() {
				phiPreds = append(phiPreds, op.(*ir.PhiOperand).Pred())
			}
			require.ElementsMatch(t, block.Preds(), phiPreds)
		}
	}
}

func TestLowerReturn(t *testing.T) {
	graph := lowerSource(t, `
fn main() -> s64 {
	ret 0;
}
`)

	fn := graph.Function("main")
	require.NotNil(t, fn)
	require.Equal(t, ir.LinkageExternal, fn.Linkage())
	checkBlockInvariants(t, fn)

	term := fn.Entry().Terminator()
	require.Equal(t, ir.OpcodeReturn, term.Opcode())
	require.Equal(t, 1, term.NumOperands())
}

func TestDeclarePhaseCreatesShells(t *testing.T) {
	graph := lowerSource(t, `
let g: s32 = 3;

struct point { x: s32, y: s32 }

fn helper() -> s64;

fn main() -> s64 {
	ret helper();
}
`)

	require.NotNil(t, graph.Global("g"))
	require.Len(t, graph.StructTypeOf("point").Fields(), 2)

	helper := graph.Function("helper")
	require.NotNil(t, helper)
	require.False(t, helper.HasBody())
	require.Equal(t, ir.LinkageExternal, helper.Linkage())
}

func TestInternalLinkageForHelpers(t *testing.T) {
	graph := lowerSource(t, `
fn helper() -> s64 {
	ret 1;
}

fn main() -> s64 {
	ret helper();
}
`)

	require.Equal(t, ir.LinkageInternal, graph.Function("helper").Linkage())
	require.Equal(t, ir.LinkageExternal, graph.Function("main").Linkage())
}

func TestIfLowering(t *testing.T) {
	graph := lowerSource(t, `
fn f(x: s64) -> s64 {
	if x {
		ret 1;
	}
	ret 0;
}
`)

	fn := graph.Function("f")
	checkBlockInvariants(t, fn)

	// entry, then, merge.
	require.Len(t, fn.Blocks(), 3)

	term := fn.Entry().Terminator()
	require.Equal(t, ir.OpcodeBranchIf, term.Opcode())
	// The condition went through the implicit boolean reduction.
	cond := term.Operand(0).(*ir.Instruction)
	require.Equal(t, ir.OpcodeCmpINE, cond.Opcode())
	require.True(t, cond.Type().IsInteger(1))
}

func TestIfElseMergeDiscardedWhenBothReturn(t *testing.T) {
	graph := lowerSource(t, `
fn f(x: s64) -> s64 {
	if x {
		ret 1;
	} else {
		ret 2;
	}
}
`)

	fn := graph.Function("f")
	checkBlockInvariants(t, fn)
	// entry, then, else; the merge block had no predecessors and was
	// dropped.
	require.Len(t, fn.Blocks(), 3)
}

func TestWhileLowering(t *testing.T) {
	graph := lowerSource(t, `
fn f() -> s64 {
	let mut x: s64 = 0;
	while x < 10 {
		x = x + 1;
	}
	ret x;
}
`)

	fn := graph.Function("f")
	checkBlockInvariants(t, fn)
	// entry, cond, body, merge.
	require.Len(t, fn.Blocks(), 4)

	cond := fn.Blocks()[1]
	require.Equal(t, ir.OpcodeBranchIf, cond.Terminator().Opcode())
	// The loop back edge targets the condition block.
	body := fn.Blocks()[2]
	back := body.Terminator()
	require.Equal(t, ir.OpcodeJump, back.Opcode())
	require.Same(t, cond, back.Operand(0).(*ir.BlockAddress).Block())
}

func TestBreakContinueTargets(t *testing.T) {
	graph := lowerSource(t, `
fn f() -> s64 {
	let mut x: s64 = 0;
	while x < 10 {
		if x == 5 {
			break;
		}
		x = x + 1;
		continue;
	}
	ret x;
}
`)

	checkBlockInvariants(t, graph.Function("f"))
}

func TestShortCircuitPhi(t *testing.T) {
	graph := lowerSource(t, `
fn f(a: s64, b: s64) -> s64 {
	if a && b {
		ret 1;
	}
	ret 0;
}
`)

	fn := graph.Function("f")
	checkBlockInvariants(t, fn)

	sawPhi := false
	for _, block := range fn.Blocks() {
		for _, inst := range block.Insts() {
			if inst.Opcode() == ir.OpcodePhi {
				sawPhi = true
				require.True(t, inst.Type().IsInteger(1))
				require.Equal(t, 2, inst.NumOperands())
			}
		}
	}
	require.True(t, sawPhi, "expected an i1 phi for the short-circuit merge")
}

func TestPointerArithmeticUsesAccessPtr(t *testing.T) {
	graph := lowerSource(t, `
fn f(p: *s32) -> s32 {
	ret p[2];
}
`)

	fn := graph.Function("f")
	sawAptr := false
	for _, block := range fn.Blocks() {
		for _, inst := range block.Insts() {
			require.NotEqual(t, ir.OpcodeSMul, inst.Opcode(),
				"pointer arithmetic must not lower through integer multiply")
			if inst.Opcode() == ir.OpcodeAccessPtr {
				sawAptr = true
				require.True(t, inst.Type().IsPointer())
			}
		}
	}
	require.True(t, sawAptr)
}

func TestFieldAccessConstantIndex(t *testing.T) {
	graph := lowerSource(t, `
struct point { x: s32, y: s32 }

fn get(p: *point) -> s32 {
	ret p.y;
}
`)

	fn := graph.Function("get")
	sawField := false
	for _, block := range fn.Blocks() {
		for _, inst := range block.Insts() {
			if inst.Opcode() != ir.OpcodeAccessPtr {
				continue
			}
			index, ok := inst.Operand(1).(*ir.ConstantInt)
			require.True(t, ok, "field access indexes with a constant")
			require.Equal(t, int64(1), index.Value())
			sawField = true
		}
	}
	require.True(t, sawField)
}

func TestStringLiteralBecomesConstant(t *testing.T) {
	graph := lowerSource(t, `
fn puts(s: *char) -> s64;

fn main() -> s64 {
	ret puts("hi");
}
`)

	fn := graph.Function("main")
	sawString := false
	for _, inst := range fn.Entry().Insts() {
		if inst.Opcode() == ir.OpcodeString {
			sawString = true
			str := inst.Operand(0).(*ir.ConstantString)
			require.Equal(t, "hi", str.Value())
		}
	}
	require.True(t, sawString)
}

func TestImplicitCastsBecomeExplicitOpcodes(t *testing.T) {
	graph := lowerSource(t, `
fn f(x: s32) -> s64 {
	ret x;
}
`)

	fn := graph.Function("f")
	sawSExt := false
	for _, inst := range fn.Entry().Insts() {
		if inst.Opcode() == ir.OpcodeSExt {
			sawSExt = true
		}
	}
	require.True(t, sawSExt, "widening must be an explicit sext in the IR")
}

func TestGlobalInitializerFolds(t *testing.T) {
	graph := lowerSource(t, `
let a: s32 = 2 + 3 * 4;
let b: u64 = sizeof(s64);

fn main() -> s64 {
	ret 0;
}
`)

	a := graph.Global("a").Init().(*ir.ConstantInt)
	require.Equal(t, int64(14), a.Value())

	b := graph.Global("b").Init().(*ir.ConstantInt)
	require.Equal(t, int64(8), b.Value())
}

func TestResultIDsUniquePerFunction(t *testing.T) {
	graph := lowerSource(t, `
fn f(a: s64, b: s64) -> s64 {
	ret a + b * a - b;
}
`)

	fn := graph.Function("f")
	seen := map[uint32]bool{}
	for _, block := range fn.Blocks() {
		for _, inst := range block.Insts() {
			if inst.ResultID() == 0 {
				continue
			}
			require.False(t, seen[inst.ResultID()])
			seen[inst.ResultID()] = true
		}
	}
}
