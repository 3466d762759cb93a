package mach

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/ir"
)

func TestRegisterTagging(t *testing.T) {
	require.False(t, NoRegister.Valid())
	require.False(t, NoRegister.IsPhysical())
	require.False(t, NoRegister.IsVirtual())

	phys := Register(3)
	require.True(t, phys.IsPhysical())
	require.False(t, phys.IsVirtual())

	virt := VirtualBarrier + 5
	require.True(t, virt.IsVirtual())
	require.False(t, virt.IsPhysical())
}

func TestRegisterInfoAllocation(t *testing.T) {
	ri := NewRegisterInfo()

	a := ri.Allocate(GeneralPurpose)
	b := ri.Allocate(FloatingPoint)
	require.True(t, a.IsVirtual())
	require.True(t, b.IsVirtual())
	require.NotEqual(t, a, b)

	require.Equal(t, GeneralPurpose, ri.Info(a).Class)
	require.Equal(t, FloatingPoint, ri.Info(b).Class)
	require.False(t, ri.Info(a).Alloc.Valid())
}

func TestOperandFlagInvariants(t *testing.T) {
	use := NewRegOperand(Register(1), 8, false)
	use.SetIsKill()
	require.True(t, use.IsKill())

	// kill implies not def.
	require.Panics(t, func() {
		def := NewRegOperand(Register(1), 8, true)
		def.SetIsKill()
	})

	// dead implies def.
	require.Panics(t, func() {
		u := NewRegOperand(Register(1), 8, false)
		u.SetIsDead()
	})

	def := NewRegOperand(Register(1), 8, true)
	def.SetIsDead()
	require.True(t, def.IsDead())

	// Switching a dead def back to a use clears the dead flag.
	def.SetIsUse()
	require.False(t, def.IsDead())
	require.True(t, def.IsUse())
}

func TestInstructionOperandCounts(t *testing.T) {
	inst := NewInstruction(1)
	inst.AddImm(42)
	inst.AddReg(Register(2), 8, true, false, false, false)
	inst.AddReg(Register(3), 8, true, true, false, false)
	inst.AddReg(Register(4), 8, false, true, true, false)

	require.Equal(t, 4, inst.NumOperands())
	require.Equal(t, 2, inst.NumExplicitOperands())
	require.Equal(t, 2, inst.NumDefs())
	require.True(t, inst.HasImplicitDef())
}

func TestStackInfoAlignment(t *testing.T) {
	var stack StackInfo
	require.Equal(t, uint32(0), stack.Size())
	// An empty frame still aligns to 16 for the prologue adjustment.
	require.Equal(t, uint32(16), stack.Alignment())

	stack.Entries = append(stack.Entries,
		StackEntry{Offset: 0, Size: 4, Align: 4})
	require.Equal(t, uint32(4), stack.Size())
	require.Equal(t, uint32(16), stack.Alignment())

	// A 12-byte frame with 8-byte entries still fits one 16-byte step.
	stack.Entries = append(stack.Entries,
		StackEntry{Offset: 4, Size: 8, Align: 8})
	require.Equal(t, uint32(12), stack.Size())
	require.Equal(t, uint32(16), stack.Alignment())
}

func TestConstantPoolDedup(t *testing.T) {
	g := ir.NewCFG("test.stm")
	var pool ConstantPool

	c := ir.NewConstantFP(g.F64(), 1.5)
	first := pool.GetOrCreate(c, 8)
	again := pool.GetOrCreate(c, 8)
	require.Equal(t, first, again)
	require.Equal(t, 1, pool.NumEntries())

	other := pool.GetOrCreate(ir.NewConstantFP(g.F64(), 2.5), 8)
	require.NotEqual(t, first, other)
}
