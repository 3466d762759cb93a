// Package x64 implements the x86-64 backend: instruction selection over the
// IR, liveness analysis with linear-scan register allocation, ABI-aware
// caller-save insertion, and the AT&T assembly writer.
package x64

import "github.com/nwmarino/lovelace/internal/mach"

// Opcode enumerates recognized x64 opcodes. These are really mnemonics
// since they don't signify any operand information.
type Opcode uint32

const (
	NoOpcode Opcode = iota

	NOP
	JMP
	UD2
	CQO
	SYSCALL
	MOV

	CALL64
	RET64
	LEA32
	LEA64
	PUSH64
	POP64

	MOV8
	MOV16
	MOV32
	MOV64

	ADD8
	ADD16
	ADD32
	ADD64
	SUB8
	SUB16
	SUB32
	SUB64
	MUL8
	MUL16
	MUL32
	MUL64
	IMUL8
	IMUL16
	IMUL32
	IMUL64
	DIV8
	DIV16
	DIV32
	DIV64
	IDIV8
	IDIV16
	IDIV32
	IDIV64
	AND8
	AND16
	AND32
	AND64
	OR8
	OR16
	OR32
	OR64
	XOR8
	XOR16
	XOR32
	XOR64
	SHL8
	SHL16
	SHL32
	SHL64
	SHR8
	SHR16
	SHR32
	SHR64
	SAR8
	SAR16
	SAR32
	SAR64
	CMP8
	CMP16
	CMP32
	CMP64
	NOT8
	NOT16
	NOT32
	NOT64
	NEG8
	NEG16
	NEG32
	NEG64

	MOVABS
	MOVSX
	MOVSXD
	MOVZX

	JE
	JNE
	JZ
	JNZ
	JL
	JLE
	JG
	JGE
	JA
	JAE
	JB
	JBE

	SETE
	SETNE
	SETZ
	SETNZ
	SETL
	SETLE
	SETG
	SETGE
	SETA
	SETAE
	SETB
	SETBE

	MOVSS
	MOVSD
	MOVAPS
	MOVAPD
	UCOMISS
	UCOMISD
	ADDSS
	ADDSD
	SUBSS
	SUBSD
	MULSS
	MULSD
	DIVSS
	DIVSD
	ANDPS
	ANDPD
	ORPS
	ORPD
	XORPS
	XORPD

	CVTSS2SD
	CVTSD2SS
	CVTSI2SS
	CVTSI2SD
	CVTTSS2SI8
	CVTTSS2SI16
	CVTTSS2SI32
	CVTTSS2SI64
	CVTTSD2SI8
	CVTTSD2SI16
	CVTTSD2SI32
	CVTTSD2SI64
)

// Recognized x64 physical registers. The values double as mach.Register
// ids, so they must stay below mach.VirtualBarrier.
const (
	NoReg mach.Register = iota

	RAX
	RBX
	RCX
	RDX
	RDI
	RSI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	RSP
	RBP
	RIP

	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

// IsCallOpcode reports whether opc is a call.
func IsCallOpcode(opc Opcode) bool { return opc == CALL64 }

// IsRetOpcode reports whether opc is a return.
func IsRetOpcode(opc Opcode) bool { return opc == RET64 }

// IsMoveOpcode reports whether opc is a move.
func IsMoveOpcode(opc Opcode) bool {
	switch opc {
	case MOV, MOV8, MOV16, MOV32, MOV64, MOVSS, MOVSD, MOVAPS, MOVAPD:
		return true
	default:
		return false
	}
}

// IsTerminatingOpcode reports whether opc ends a block: any JMP, Jcc or
// RET64.
func IsTerminatingOpcode(opc Opcode) bool {
	switch opc {
	case JMP, RET64, JE, JNE, JZ, JNZ, JL, JLE, JG, JGE, JA, JAE, JB, JBE:
		return true
	default:
		return false
	}
}

// GetClass returns the register class of the physical register reg.
func GetClass(reg mach.Register) mach.RegisterClass {
	switch reg {
	case RAX, RBX, RCX, RDX, RDI, RSI, R8, R9, R10, R11, R12, R13, R14, R15, RSP, RBP, RIP:
		return mach.GeneralPurpose
	case XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
		XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15:
		return mach.FloatingPoint
	default:
		panic("BUG: unrecognized x64 physical register")
	}
}

// IsCalleeSaved reports whether reg must be preserved by a callee.
func IsCalleeSaved(reg mach.Register) bool {
	switch reg {
	case RBX, R12, R13, R14, R15, RSP, RBP:
		return true
	default:
		return false
	}
}

// IsCallerSaved reports whether a callee may clobber reg, making
// preservation the caller's responsibility.
func IsCallerSaved(reg mach.Register) bool {
	switch reg {
	case RAX, RCX, RDX, RDI, RSI, R8, R9, R10, R11, R12, R13, R14, R15,
		XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
		XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15:
		return true
	default:
		return false
	}
}

// GetRegisters returns the allocatable registers for x64.
func GetRegisters() mach.TargetRegisters {
	gpr := mach.RegisterSet{
		Class: mach.GeneralPurpose,
		Regs: []mach.Register{
			RAX, RCX, RDX, RSI, RDI, R8, R9,
			R10, R11, R12, R13, R14, R15,
		},
	}
	fpr := mach.RegisterSet{
		Class: mach.FloatingPoint,
		Regs: []mach.Register{
			XMM0, XMM1, XMM2, XMM3,
			XMM4, XMM5, XMM6, XMM7,
			XMM8, XMM9, XMM10, XMM11,
			XMM12, XMM13, XMM14, XMM15,
		},
	}
	return mach.TargetRegisters{
		Sets: map[mach.RegisterClass]mach.RegisterSet{
			mach.GeneralPurpose: gpr,
			mach.FloatingPoint:  fpr,
		},
	}
}
