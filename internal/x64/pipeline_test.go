package x64

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/lower"
	"github.com/nwmarino/lovelace/internal/mach"
	"github.com/nwmarino/lovelace/internal/sema"
	"github.com/nwmarino/lovelace/internal/syntax"
	"github.com/nwmarino/lovelace/internal/target"
)

// selectSource runs the front end, lowering and instruction selection over
// src, without register allocation.
func selectSource(t *testing.T, src string) *mach.Object {
	t.Helper()
	diags := diag.New(io.Discard)

	unit := syntax.NewParser("test.stm", src, diags).ParseUnit()
	sema.New(unit, diags).Run()

	tgt := target.New(target.ArchX64, target.ABISystemV, target.OSLinux)
	graph := lower.New(unit, tgt, diags).Run()
	for _, fn := range graph.Functions() {
		ir.TrivialDCE(fn)
	}

	obj := mach.NewObject(graph, tgt)
	for _, fn := range graph.Functions() {
		if !fn.HasBody() {
			continue
		}
		mf := mach.NewFunction(fn, tgt)
		NewSelector(mf, diags).Run()
		obj.AddFunction(mf)
	}
	require.Zero(t, diags.ErrorCount())
	return obj
}

func TestSelectionReturnImmediate(t *testing.T) {
	obj := selectSource(t, `
fn main() -> s64 {
	ret 0;
}
`)

	fn := obj.Functions()[0]
	insts := fn.Blocks()[0].Insts()
	require.Len(t, insts, 2)

	require.Equal(t, uint32(MOV64), insts[0].Opcode())
	require.True(t, insts[0].Operand(0).IsImm())
	require.Equal(t, RAX, insts[0].Operand(1).Reg())

	require.Equal(t, uint32(RET64), insts[1].Opcode())
}

func TestSelectionDeferredComparison(t *testing.T) {
	obj := selectSource(t, `
fn f(x: s64) -> s64 {
	if x < 3 {
		ret 1;
	}
	ret 0;
}
`)

	// The comparison feeding the branch must not materialize a SETcc; the
	// branch reuses the flags directly.
	fn := obj.Functions()[0]
	sawCmp, sawJcc := false, false
	for _, mbb := range fn.Blocks() {
		for _, inst := range mbb.Insts() {
			switch Opcode(inst.Opcode()) {
			case CMP64:
				sawCmp = true
			case JL, JG, JLE, JGE:
				sawJcc = true
			case SETL, SETG, SETLE, SETGE, SETE, SETNE:
				t.Fatalf("unexpected SETcc in deferred comparison")
			}
		}
	}
	require.True(t, sawCmp)
	require.True(t, sawJcc)
}

func TestSelectionDivisionImplicitRegisters(t *testing.T) {
	obj := selectSource(t, `
fn div(a: s64, b: s64) -> s64 {
	ret a / b;
}
`)

	fn := obj.Functions()[0]
	sawCQO, sawIDiv := false, false
	for _, mbb := range fn.Blocks() {
		for i := range mbb.Insts() {
			inst := &mbb.Insts()[i]
			switch Opcode(inst.Opcode()) {
			case CQO:
				sawCQO = true
				require.True(t, inst.HasImplicitDef())
			case IDIV64:
				sawIDiv = true
				// %rax and %rdx are written behind the explicit operand.
				require.True(t, inst.HasImplicitDef())
				require.GreaterOrEqual(t, inst.NumDefs(), 2)
			}
		}
	}
	require.True(t, sawCQO)
	require.True(t, sawIDiv)
}

func TestSelectionShiftAmountInCL(t *testing.T) {
	obj := selectSource(t, `
fn shl(a: s64, b: s64) -> s64 {
	ret a << b;
}
`)

	fn := obj.Functions()[0]
	sawCLMove := false
	for _, mbb := range fn.Blocks() {
		for i := range mbb.Insts() {
			inst := &mbb.Insts()[i]
			if Opcode(inst.Opcode()) != MOV8 {
				continue
			}
			dst := inst.Operand(inst.NumOperands() - 1)
			if dst.IsReg() && dst.Reg() == RCX && dst.Subreg() == 1 {
				sawCLMove = true
			}
		}
	}
	require.True(t, sawCLMove, "expected the shift amount staged in %%cl")
}

func TestSelectionCallABIRegisters(t *testing.T) {
	obj := selectSource(t, `
fn callee(a: s64, b: s64, c: s64, d: s64, e: s64, f: s64) -> s64 {
	ret a;
}

fn main() -> s64 {
	ret callee(1, 2, 3, 4, 5, 6);
}
`)

	var mf *mach.Function
	for _, fn := range obj.Functions() {
		if fn.Name() == "main" {
			mf = fn
		}
	}
	require.NotNil(t, mf)

	// Every ABI argument register receives a def before the call.
	wantDefs := map[mach.Register]bool{
		RDI: false, RSI: false, RDX: false, RCX: false, R8: false, R9: false,
	}
	for _, mbb := range mf.Blocks() {
		for i := range mbb.Insts() {
			inst := &mbb.Insts()[i]
			if IsCallOpcode(Opcode(inst.Opcode())) {
				continue
			}
			for o := 0; o < inst.NumOperands(); o++ {
				mo := inst.Operand(o)
				if mo.IsReg() && mo.IsDef() {
					if _, ok := wantDefs[mo.Reg()]; ok {
						wantDefs[mo.Reg()] = true
					}
				}
			}
		}
	}
	for reg, saw := range wantDefs {
		require.True(t, saw, "argument register %v never defined", reg)
	}
}

func allocate(t *testing.T, src string) (*mach.Object, map[string][]*LiveRange) {
	t.Helper()
	obj := selectSource(t, src)
	ranges := make(map[string][]*LiveRange)
	for _, fn := range obj.Functions() {
		ranges[fn.Name()] = AllocateFunction(fn)
	}
	return obj, ranges
}

func TestAllocationClassAndDisjointness(t *testing.T) {
	obj, allRanges := allocate(t, `
fn f(a: s64, b: s64, c: s64) -> s64 {
	let x: s64 = a + b;
	let y: s64 = b + c;
	let z: s64 = x * y;
	ret z + a;
}

fn main() -> s64 {
	ret f(1, 2, 3);
}
`)

	for _, fn := range obj.Functions() {
		ranges := allRanges[fn.Name()]

		for _, r := range ranges {
			if r.Reg.IsPhysical() || !r.Alloc.Valid() {
				continue
			}
			// The allocation must be a physical register of a matching
			// class.
			require.True(t, r.Alloc.IsPhysical())
			require.Equal(t, r.Class, GetClass(r.Alloc))
		}

		// Overlapping ranges get distinct registers (or one spilled).
		for i, a := range ranges {
			for _, b := range ranges[i+1:] {
				if !a.Alloc.Valid() || !b.Alloc.Valid() || a.Alloc != b.Alloc {
					continue
				}
				disjoint := a.End < b.Start || b.End < a.Start
				require.True(t, disjoint,
					"ranges for %v and %v share %v while overlapping",
					a.Reg, b.Reg, a.Alloc)
			}
		}
	}
}

func TestCallerSavePairing(t *testing.T) {
	obj, allRanges := allocate(t, `
fn g() -> s64 {
	ret 1;
}

fn main() -> s64 {
	let i: s64 = 5;
	ret i + g();
}
`)

	var mf *mach.Function
	for _, fn := range obj.Functions() {
		if fn.Name() == "main" {
			mf = fn
		}
	}
	require.NotNil(t, mf)
	ranges := allRanges["main"]

	sawCrossing := false
	for _, mbb := range mf.Blocks() {
		insts := mbb.Insts()
		// Recover original positions: pushes and pops inserted by the
		// caller-save pass do not count.
		position := uint32(0)
		for i := range insts {
			opc := Opcode(insts[i].Opcode())
			if opc == PUSH64 || opc == POP64 {
				continue
			}
			if IsCallOpcode(opc) {
				var crossing []mach.Register
				for _, r := range ranges {
					if r.Crosses(position) && r.Alloc.Valid() && IsCallerSaved(r.Alloc) {
						crossing = append(crossing, r.Alloc)
					}
				}

				var pushes, pops []mach.Register
				for j := i - 1; j >= 0 && Opcode(insts[j].Opcode()) == PUSH64; j-- {
					pushes = append(pushes, insts[j].Operand(0).Reg())
				}
				for j := i + 1; j < len(insts) && Opcode(insts[j].Opcode()) == POP64; j++ {
					pops = append(pops, insts[j].Operand(0).Reg())
				}

				require.ElementsMatch(t, crossing, pushes)
				require.ElementsMatch(t, crossing, pops)
				if len(crossing) > 0 {
					sawCrossing = true
				}
			}
			position++
		}
	}
	require.True(t, sawCrossing, "expected a live range crossing the call")
}

func TestSpillUnderPressure(t *testing.T) {
	// Sixteen constants all live until a trailing fold exceed the thirteen
	// allocatable general purpose registers.
	diags := diag.New(io.Discard)
	graph := ir.NewCFG("test.stm")
	builder := ir.NewBuilder(graph)
	tgt := target.New(target.ArchX64, target.ABISystemV, target.OSLinux)

	fn := ir.NewFunction(graph, ir.LinkageExternal,
		graph.FunctionTypeOf(graph.I64(), nil), "pressure", nil)
	entry := fn.NewBlock()
	fn.PushBack(entry)
	builder.SetInsert(entry)

	values := make([]ir.Value, 16)
	for i := range values {
		values[i] = builder.BuildConst(ir.NewConstantInt(graph.I64(), int64(i)))
	}
	sum := values[0]
	for _, v := range values[1:] {
		sum = builder.BuildIAdd(sum, v)
	}
	builder.BuildRet(sum)

	mf := mach.NewFunction(fn, tgt)
	NewSelector(mf, diags).Run()
	ranges := AllocateFunction(mf)
	require.Zero(t, diags.ErrorCount())

	spilled := 0
	for _, r := range ranges {
		if r.SpillSlot >= 0 {
			spilled++
			require.False(t, r.Alloc.Valid(), "spilled range keeps no register")
		}
	}
	require.Greater(t, spilled, 0, "expected at least one spill under pressure")

	// Spill slots reserve real frame entries with no backing local.
	sawSpillEntry := false
	for _, entry := range mf.StackInfo().Entries {
		if entry.Local == nil {
			sawSpillEntry = true
		}
	}
	require.True(t, sawSpillEntry)
}
