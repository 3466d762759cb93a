package x64

import "github.com/nwmarino/lovelace/internal/mach"

// opcodeMnemonics maps inline-assembly mnemonics to opcodes. The mnemonics
// match what the assembly writer prints, except that JMP is spelled "j"
// here; andps, andpd, orps and orpd have no entry.
var opcodeMnemonics = map[string]Opcode{
	"nop":        NOP,
	"j":          JMP,
	"ud2":        UD2,
	"cqo":        CQO,
	"syscall":    SYSCALL,
	"mov":        MOV,
	"callq":      CALL64,
	"retq":       RET64,
	"leal":       LEA32,
	"leaq":       LEA64,
	"pushq":      PUSH64,
	"popq":       POP64,
	"movb":       MOV8,
	"movw":       MOV16,
	"movl":       MOV32,
	"movq":       MOV64,
	"addb":       ADD8,
	"addw":       ADD16,
	"addl":       ADD32,
	"addq":       ADD64,
	"subb":       SUB8,
	"subw":       SUB16,
	"subl":       SUB32,
	"subq":       SUB64,
	"mulb":       MUL8,
	"mulw":       MUL16,
	"mull":       MUL32,
	"mulq":       MUL64,
	"imulb":      IMUL8,
	"imulw":      IMUL16,
	"imull":      IMUL32,
	"imulq":      IMUL64,
	"divb":       DIV8,
	"divw":       DIV16,
	"divl":       DIV32,
	"divq":       DIV64,
	"idivb":      IDIV8,
	"idivw":      IDIV16,
	"idivl":      IDIV32,
	"idivq":      IDIV64,
	"andb":       AND8,
	"andw":       AND16,
	"andl":       AND32,
	"andq":       AND64,
	"orb":        OR8,
	"orw":        OR16,
	"orl":        OR32,
	"orq":        OR64,
	"xorb":       XOR8,
	"xorw":       XOR16,
	"xorl":       XOR32,
	"xorq":       XOR64,
	"shlb":       SHL8,
	"shlw":       SHL16,
	"shll":       SHL32,
	"shlq":       SHL64,
	"shrb":       SHR8,
	"shrw":       SHR16,
	"shrl":       SHR32,
	"shrq":       SHR64,
	"sarb":       SAR8,
	"sarw":       SAR16,
	"sarl":       SAR32,
	"sarq":       SAR64,
	"cmpb":       CMP8,
	"cmpw":       CMP16,
	"cmpl":       CMP32,
	"cmpq":       CMP64,
	"notb":       NOT8,
	"notw":       NOT16,
	"notl":       NOT32,
	"notq":       NOT64,
	"negb":       NEG8,
	"negw":       NEG16,
	"negl":       NEG32,
	"negq":       NEG64,
	"movabs":     MOVABS,
	"movsx":      MOVSX,
	"movsxd":     MOVSXD,
	"movzx":      MOVZX,
	"je":         JE,
	"jne":        JNE,
	"jz":         JZ,
	"jnz":        JNZ,
	"jl":         JL,
	"jle":        JLE,
	"jg":         JG,
	"jge":        JGE,
	"ja":         JA,
	"jae":        JAE,
	"jb":         JB,
	"jbe":        JBE,
	"sete":       SETE,
	"setne":      SETNE,
	"setz":       SETZ,
	"setnz":      SETNZ,
	"setl":       SETL,
	"setle":      SETLE,
	"setg":       SETG,
	"setge":      SETGE,
	"seta":       SETA,
	"setae":      SETAE,
	"setb":       SETB,
	"setbe":      SETBE,
	"movss":      MOVSS,
	"movsd":      MOVSD,
	"movaps":     MOVAPS,
	"movapd":     MOVAPD,
	"ucomiss":    UCOMISS,
	"ucomisd":    UCOMISD,
	"addss":      ADDSS,
	"addsd":      ADDSD,
	"subss":      SUBSS,
	"subsd":      SUBSD,
	"mulss":      MULSS,
	"mulsd":      MULSD,
	"divss":      DIVSS,
	"divsd":      DIVSD,
	"xorps":      XORPS,
	"xorpd":      XORPD,
	"cvtss2sd":   CVTSS2SD,
	"cvtsd2ss":   CVTSD2SS,
	"cvtsi2ss":   CVTSI2SS,
	"cvtsi2sd":   CVTSI2SD,
	"cvttss2sib": CVTTSS2SI8,
	"cvttss2siw": CVTTSS2SI16,
	"cvttss2sil": CVTTSS2SI32,
	"cvttss2siq": CVTTSS2SI64,
	"cvttsd2sib": CVTTSD2SI8,
	"cvttsd2siw": CVTTSD2SI16,
	"cvttsd2sil": CVTTSD2SI32,
	"cvttsd2siq": CVTTSD2SI64,
}

// ParseOpcode maps an inline-assembly mnemonic to an opcode, NoOpcode when
// unrecognized.
func ParseOpcode(mnemonic string) Opcode {
	return opcodeMnemonics[mnemonic]
}

type regName struct {
	reg    mach.Register
	subreg uint16
}

// registerNames maps assembly register names to (register, subregister).
var registerNames = map[string]regName{
	"rax": {RAX, 8}, "eax": {RAX, 4}, "ax": {RAX, 2}, "al": {RAX, 1},
	"rbx": {RBX, 8}, "ebx": {RBX, 4}, "bx": {RBX, 2}, "bl": {RBX, 1},
	"rcx": {RCX, 8}, "ecx": {RCX, 4}, "cx": {RCX, 2}, "cl": {RCX, 1},
	"rdx": {RDX, 8}, "edx": {RDX, 4}, "dx": {RDX, 2}, "dl": {RDX, 1},
	"rdi": {RDI, 8}, "edi": {RDI, 4}, "di": {RDI, 2}, "dil": {RDI, 1},
	"rsi": {RSI, 8}, "esi": {RSI, 4}, "si": {RSI, 2}, "sil": {RSI, 1},
	"rbp": {RBP, 8}, "ebp": {RBP, 4}, "bp": {RBP, 2}, "bpl": {RBP, 1},
	"rsp": {RSP, 8}, "esp": {RSP, 4}, "sp": {RSP, 2}, "spl": {RSP, 1},
	"r8": {R8, 8}, "r8d": {R8, 4}, "r8w": {R8, 2}, "r8b": {R8, 1},
	"r9": {R9, 8}, "r9d": {R9, 4}, "r9w": {R9, 2}, "r9b": {R9, 1},
	"r10": {R10, 8}, "r10d": {R10, 4}, "r10w": {R10, 2}, "r10b": {R10, 1},
	"r11": {R11, 8}, "r11d": {R11, 4}, "r11w": {R11, 2}, "r11b": {R11, 1},
	"r12": {R12, 8}, "r12d": {R12, 4}, "r12w": {R12, 2}, "r12b": {R12, 1},
	"r13": {R13, 8}, "r13d": {R13, 4}, "r13w": {R13, 2}, "r13b": {R13, 1},
	"r14": {R14, 8}, "r14d": {R14, 4}, "r14w": {R14, 2}, "r14b": {R14, 1},
	"r15": {R15, 8}, "r15d": {R15, 4}, "r15w": {R15, 2}, "r15b": {R15, 1},
	"rip": {RIP, 8},
	"xmm0": {XMM0, 0}, "xmm1": {XMM1, 0}, "xmm2": {XMM2, 0}, "xmm3": {XMM3, 0},
	"xmm4": {XMM4, 0}, "xmm5": {XMM5, 0}, "xmm6": {XMM6, 0}, "xmm7": {XMM7, 0},
	"xmm8": {XMM8, 0}, "xmm9": {XMM9, 0}, "xmm10": {XMM10, 0}, "xmm11": {XMM11, 0},
	"xmm12": {XMM12, 0}, "xmm13": {XMM13, 0}, "xmm14": {XMM14, 0}, "xmm15": {XMM15, 0},
}

// ParseRegister maps an assembly register name to (register, subregister),
// NoReg when unrecognized.
func ParseRegister(name string) (mach.Register, uint16) {
	if r, ok := registerNames[name]; ok {
		return r.reg, r.subreg
	}
	return NoReg, 0
}

var gprNames = map[mach.Register][4]string{
	// Indexed by subregister width: 8, 4, 2, 1 bytes.
	RAX: {"rax", "eax", "ax", "al"},
	RBX: {"rbx", "ebx", "bx", "bl"},
	RCX: {"rcx", "ecx", "cx", "cl"},
	RDX: {"rdx", "edx", "dx", "dl"},
	RDI: {"rdi", "edi", "di", "dil"},
	RSI: {"rsi", "esi", "si", "sil"},
	RBP: {"rbp", "ebp", "bp", "bpl"},
	RSP: {"rsp", "esp", "sp", "spl"},
	R8:  {"r8", "r8d", "r8w", "r8b"},
	R9:  {"r9", "r9d", "r9w", "r9b"},
	R10: {"r10", "r10d", "r10w", "r10b"},
	R11: {"r11", "r11d", "r11w", "r11b"},
	R12: {"r12", "r12d", "r12w", "r12b"},
	R13: {"r13", "r13d", "r13w", "r13b"},
	R14: {"r14", "r14d", "r14w", "r14b"},
	R15: {"r15", "r15d", "r15w", "r15b"},
	RIP: {"rip", "rip", "rip", "rip"},
}

var xmmNames = map[mach.Register]string{
	XMM0: "xmm0", XMM1: "xmm1", XMM2: "xmm2", XMM3: "xmm3",
	XMM4: "xmm4", XMM5: "xmm5", XMM6: "xmm6", XMM7: "xmm7",
	XMM8: "xmm8", XMM9: "xmm9", XMM10: "xmm10", XMM11: "xmm11",
	XMM12: "xmm12", XMM13: "xmm13", XMM14: "xmm14", XMM15: "xmm15",
}

// RegisterName returns the assembly name of a physical register viewed
// through the given subregister width in bytes.
func RegisterName(reg mach.Register, subreg uint16) string {
	if name, ok := xmmNames[reg]; ok {
		return name
	}
	names, ok := gprNames[reg]
	if !ok {
		panic("BUG: unrecognized x64 physical register")
	}
	switch subreg {
	case 4:
		return names[1]
	case 2:
		return names[2]
	case 1:
		return names[3]
	default:
		return names[0]
	}
}
