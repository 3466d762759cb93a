package x64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/mach"
)

func TestOpcodePredicates(t *testing.T) {
	require.True(t, IsCallOpcode(CALL64))
	require.False(t, IsCallOpcode(JMP))

	require.True(t, IsRetOpcode(RET64))

	for _, opc := range []Opcode{MOV, MOV8, MOV16, MOV32, MOV64, MOVSS, MOVSD, MOVAPS, MOVAPD} {
		require.True(t, IsMoveOpcode(opc))
	}
	require.False(t, IsMoveOpcode(ADD32))

	for _, opc := range []Opcode{JMP, RET64, JE, JNE, JL, JGE, JA, JBE} {
		require.True(t, IsTerminatingOpcode(opc))
	}
	require.False(t, IsTerminatingOpcode(CMP32))
}

func TestRegisterClasses(t *testing.T) {
	require.Equal(t, mach.GeneralPurpose, GetClass(RAX))
	require.Equal(t, mach.GeneralPurpose, GetClass(R15))
	require.Equal(t, mach.FloatingPoint, GetClass(XMM0))
	require.Equal(t, mach.FloatingPoint, GetClass(XMM15))
}

func TestCallerCalleeSaved(t *testing.T) {
	for _, reg := range []mach.Register{RBX, R12, R13, R14, R15, RSP, RBP} {
		require.True(t, IsCalleeSaved(reg), "expected %v callee-saved", reg)
	}
	for _, reg := range []mach.Register{RAX, RCX, RDX, RDI, RSI, R8, R9, R10, R11, XMM0, XMM15} {
		require.True(t, IsCallerSaved(reg), "expected %v caller-saved", reg)
	}
	require.False(t, IsCallerSaved(RBP))
	require.False(t, IsCalleeSaved(RAX))
}

func TestParseOpcode(t *testing.T) {
	require.Equal(t, MOV32, ParseOpcode("movl"))
	require.Equal(t, CALL64, ParseOpcode("callq"))
	require.Equal(t, CQO, ParseOpcode("cqo"))
	require.Equal(t, NoOpcode, ParseOpcode("bogus"))
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		name   string
		reg    mach.Register
		subreg uint16
	}{
		{"rax", RAX, 8},
		{"eax", RAX, 4},
		{"ax", RAX, 2},
		{"al", RAX, 1},
		{"r10d", R10, 4},
		{"dil", RDI, 1},
		{"xmm7", XMM7, 0},
	}
	for _, tc := range tests {
		reg, subreg := ParseRegister(tc.name)
		require.Equal(t, tc.reg, reg, tc.name)
		require.Equal(t, tc.subreg, subreg, tc.name)
	}

	reg, _ := ParseRegister("bogus")
	require.Equal(t, NoReg, reg)
}

func TestRegisterNameRoundTrip(t *testing.T) {
	for name, want := range map[string]struct {
		reg    mach.Register
		subreg uint16
	}{
		"rax": {RAX, 8}, "eax": {RAX, 4}, "cl": {RCX, 1},
		"r8w": {R8, 2}, "xmm3": {XMM3, 0},
	} {
		require.Equal(t, name, RegisterName(want.reg, want.subreg))
	}
}

func TestFlipAndJcc(t *testing.T) {
	require.Equal(t, JG, flipJcc(JL))
	require.Equal(t, JL, flipJcc(JG))
	require.Equal(t, JE, flipJcc(JE))
	require.Equal(t, SETGE, flipSetcc(SETLE))
	require.Equal(t, SETNE, flipSetcc(SETNE))
}
