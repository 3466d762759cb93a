package x64

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/mach"
)

// opcodeStrings maps opcodes to AT&T mnemonics.
var opcodeStrings = map[Opcode]string{
	NOP:         "nop",
	JMP:         "jmp",
	UD2:         "ud2",
	CQO:         "cqo",
	SYSCALL:     "syscall",
	MOV:         "mov",
	CALL64:      "callq",
	RET64:       "retq",
	LEA32:       "leal",
	LEA64:       "leaq",
	PUSH64:      "pushq",
	POP64:       "popq",
	MOV8:        "movb",
	MOV16:       "movw",
	MOV32:       "movl",
	MOV64:       "movq",
	ADD8:        "addb",
	ADD16:       "addw",
	ADD32:       "addl",
	ADD64:       "addq",
	SUB8:        "subb",
	SUB16:       "subw",
	SUB32:       "subl",
	SUB64:       "subq",
	MUL8:        "mulb",
	MUL16:       "mulw",
	MUL32:       "mull",
	MUL64:       "mulq",
	IMUL8:       "imulb",
	IMUL16:      "imulw",
	IMUL32:      "imull",
	IMUL64:      "imulq",
	DIV8:        "divb",
	DIV16:       "divw",
	DIV32:       "divl",
	DIV64:       "divq",
	IDIV8:       "idivb",
	IDIV16:      "idivw",
	IDIV32:      "idivl",
	IDIV64:      "idivq",
	AND8:        "andb",
	AND16:       "andw",
	AND32:       "andl",
	AND64:       "andq",
	OR8:         "orb",
	OR16:        "orw",
	OR32:        "orl",
	OR64:        "orq",
	XOR8:        "xorb",
	XOR16:       "xorw",
	XOR32:       "xorl",
	XOR64:       "xorq",
	SHL8:        "shlb",
	SHL16:       "shlw",
	SHL32:       "shll",
	SHL64:       "shlq",
	SHR8:        "shrb",
	SHR16:       "shrw",
	SHR32:       "shrl",
	SHR64:       "shrq",
	SAR8:        "sarb",
	SAR16:       "sarw",
	SAR32:       "sarl",
	SAR64:       "sarq",
	CMP8:        "cmpb",
	CMP16:       "cmpw",
	CMP32:       "cmpl",
	CMP64:       "cmpq",
	NOT8:        "notb",
	NOT16:       "notw",
	NOT32:       "notl",
	NOT64:       "notq",
	NEG8:        "negb",
	NEG16:       "negw",
	NEG32:       "negl",
	NEG64:       "negq",
	MOVABS:      "movabs",
	MOVSX:       "movsx",
	MOVSXD:      "movsxd",
	MOVZX:       "movzx",
	JE:          "je",
	JNE:         "jne",
	JZ:          "jz",
	JNZ:         "jnz",
	JL:          "jl",
	JLE:         "jle",
	JG:          "jg",
	JGE:         "jge",
	JA:          "ja",
	JAE:         "jae",
	JB:          "jb",
	JBE:         "jbe",
	SETE:        "sete",
	SETNE:       "setne",
	SETZ:        "setz",
	SETNZ:       "setnz",
	SETL:        "setl",
	SETLE:       "setle",
	SETG:        "setg",
	SETGE:       "setge",
	SETA:        "seta",
	SETAE:       "setae",
	SETB:        "setb",
	SETBE:       "setbe",
	MOVSS:       "movss",
	MOVSD:       "movsd",
	MOVAPS:      "movaps",
	MOVAPD:      "movapd",
	UCOMISS:     "ucomiss",
	UCOMISD:     "ucomisd",
	ADDSS:       "addss",
	ADDSD:       "addsd",
	SUBSS:       "subss",
	SUBSD:       "subsd",
	MULSS:       "mulss",
	MULSD:       "mulsd",
	DIVSS:       "divss",
	DIVSD:       "divsd",
	ANDPS:       "andps",
	ANDPD:       "andpd",
	ORPS:        "orps",
	ORPD:        "orpd",
	XORPS:       "xorps",
	XORPD:       "xorpd",
	CVTSS2SD:    "cvtss2sd",
	CVTSD2SS:    "cvtsd2ss",
	CVTSI2SS:    "cvtsi2ss",
	CVTSI2SD:    "cvtsi2sd",
	CVTTSS2SI8:  "cvttss2sib",
	CVTTSS2SI16: "cvttss2siw",
	CVTTSS2SI32: "cvttss2sil",
	CVTTSS2SI64: "cvttss2siq",
	CVTTSD2SI8:  "cvttsd2sib",
	CVTTSD2SI16: "cvttsd2siw",
	CVTTSD2SI32: "cvttsd2sil",
	CVTTSD2SI64: "cvttsd2siq",
}

// AsmWriter emits AT&T syntax assembly for one machine object. The whole
// output is rendered into memory first; nothing reaches the sink when a
// compilation aborts.
type AsmWriter struct {
	obj *mach.Object

	// fnIndex numbers the function being written, for .LBB/.LCPI/.LFE
	// label uniqueness.
	fnIndex int
}

// NewAsmWriter returns a writer over the object.
func NewAsmWriter(obj *mach.Object) *AsmWriter {
	return &AsmWriter{obj: obj}
}

// Run renders the object and writes the bytes to w in a single flush.
func (a *AsmWriter) Run(w io.Writer) error {
	var str strings.Builder

	fmt.Fprintf(&str, "\t.file\t%q\n", a.obj.Graph().File())

	for _, global := range a.obj.Graph().Globals() {
		a.writeGlobal(&str, global)
	}

	a.fnIndex = 0
	for _, fn := range a.obj.Functions() {
		a.writeFunction(&str, fn)
		a.fnIndex++
	}

	str.WriteString("\t.ident\t\"stmc: 0.1.0\"\n")
	str.WriteString("\t.section\t.note.GNU-stack,\"\",@progbits\n")

	if _, err := io.WriteString(w, str.String()); err != nil {
		return errors.Wrap(err, "flushing assembly")
	}
	return nil
}

func opcodeString(opc Opcode) string {
	s, ok := opcodeStrings[opc]
	if !ok {
		panic("BUG: unrecognized x64 opcode")
	}
	return s
}

// mapRegister resolves a register through the function's allocation table.
func mapRegister(reg mach.Register, mf *mach.Function) mach.Register {
	if reg.IsVirtual() {
		alloc := mf.RegisterInfo().Info(reg).Alloc
		if !alloc.Valid() {
			panic("BUG: virtual register " + reg.String() + " was never allocated")
		}
		return alloc
	}
	return reg
}

// isRedundantMove reports whether mi moves a physical register onto itself
// with the same subregister width after allocation.
func isRedundantMove(mf *mach.Function, mi *mach.Instruction) bool {
	if !IsMoveOpcode(Opcode(mi.Opcode())) || mi.NumOperands() != 2 {
		return false
	}

	lhs, rhs := mi.Operand(0), mi.Operand(1)
	if !lhs.IsReg() || !rhs.IsReg() {
		return false
	}

	return mapRegister(lhs.Reg(), mf) == mapRegister(rhs.Reg(), mf) &&
		lhs.Subreg() == rhs.Subreg()
}

func (a *AsmWriter) writeOperand(str *strings.Builder, mf *mach.Function, mo *mach.Operand) {
	switch mo.Kind() {
	case mach.OperandRegister:
		str.WriteByte('%')
		str.WriteString(RegisterName(mapRegister(mo.Reg(), mf), mo.Subreg()))

	case mach.OperandMemory:
		if mo.MemDisp() != 0 {
			fmt.Fprintf(str, "%d", mo.MemDisp())
		}
		fmt.Fprintf(str, "(%%%s)", RegisterName(mapRegister(mo.MemBase(), mf), 8))

	case mach.OperandStackIndex:
		slot := mf.StackInfo().Entries[mo.StackIndex()]
		fmt.Fprintf(str, "%d(%%rbp)", -slot.Offset-int32(slot.Size))

	case mach.OperandImmediate:
		fmt.Fprintf(str, "$%d", mo.Imm())

	case mach.OperandBasicBlock:
		fmt.Fprintf(str, ".LBB%d_%d", a.fnIndex, mo.Block().Position())

	case mach.OperandConstantIndex:
		fmt.Fprintf(str, ".LCPI%d_%d(%%rip)", a.fnIndex, mo.ConstantIndex())

	case mach.OperandSymbol:
		str.WriteString(mo.Symbol())

	default:
		panic("BUG: unrecognized machine operand kind")
	}
}

func (a *AsmWriter) writeInstruction(str *strings.Builder, mf *mach.Function, mi *mach.Instruction) {
	if isRedundantMove(mf, mi) {
		return
	}

	// Returns expand into the frame epilogue.
	if IsRetOpcode(Opcode(mi.Opcode())) {
		fmt.Fprintf(str, "\taddq\t$%d, %%rsp\n", mf.StackInfo().Alignment())
		str.WriteString("\tpopq\t%rbp\n")
		str.WriteString("\t.cfi_def_cfa %rsp, 8\n")
		str.WriteString("\tretq\n")
		return
	}

	fmt.Fprintf(str, "\t%s\t", opcodeString(Opcode(mi.Opcode())))

	wrote := false
	for idx := 0; idx < mi.NumOperands(); idx++ {
		mo := mi.Operand(idx)
		if mo.IsReg() && mo.IsImplicit() {
			continue
		}
		if wrote {
			str.WriteString(", ")
		}
		a.writeOperand(str, mf, mo)
		wrote = true
	}

	if IsCallOpcode(Opcode(mi.Opcode())) {
		str.WriteString("@PLT")
	}

	str.WriteByte('\n')
}

func (a *AsmWriter) writeBlock(str *strings.Builder, mf *mach.Function, mbb *mach.BasicBlock) {
	if mbb.Origin() != nil && !mbb.Origin().HasPreds() {
		// Blocks without predecessors (typically only the entry) need no
		// real label.
		fmt.Fprintf(str, "#bb%d:\n", mbb.Position())
	} else {
		fmt.Fprintf(str, ".LBB%d_%d:\n", a.fnIndex, mbb.Position())
	}

	insts := mbb.Insts()
	for i := range insts {
		a.writeInstruction(str, mf, &insts[i])
	}
}

func (a *AsmWriter) writeFunction(str *strings.Builder, mf *mach.Function) {
	name := mf.Name()
	fmt.Fprintf(str, "# begin function %s\n", name)

	pool := mf.ConstantPool()
	lastSize := int64(-1)
	for idx, entry := range pool.Entries {
		size := a.obj.Target().TypeSize(entry.Constant.Type())
		if int64(size) != lastSize {
			fmt.Fprintf(str, "\t.section\t.rodata.cst%d,\"aM\",@progbits,8\n", size)
			fmt.Fprintf(str, "\t.p2align\t%d, 0x0\n", bits.TrailingZeros32(size))
			lastSize = int64(size)
		}

		fmt.Fprintf(str, ".LCPI%d_%d:\n", a.fnIndex, idx)
		a.writeConstant(str, entry.Constant)
	}

	str.WriteString("\t.text\n")
	if mf.Fn().Linkage() == ir.LinkageExternal {
		fmt.Fprintf(str, "\t.global\t%s\n", name)
	}

	fmt.Fprintf(str, "\t.p2align 4\n\t.type\t%s,@function\n%s:\n", name, name)
	str.WriteString("\t.cfi_startproc\n")
	str.WriteString("\tpushq\t%rbp\n")
	str.WriteString("\t.cfi_def_cfa_offset 16\n")
	str.WriteString("\t.cfi_offset %rbp, -16\n")
	str.WriteString("\tmovq\t%rsp, %rbp\n")
	str.WriteString("\t.cfi_def_cfa_register %rbp\n")
	fmt.Fprintf(str, "\tsubq\t$%d, %%rsp\n", mf.StackInfo().Alignment())

	for _, mbb := range mf.Blocks() {
		a.writeBlock(str, mf, mbb)
	}

	fmt.Fprintf(str, ".LFE%d:\n", a.fnIndex)
	fmt.Fprintf(str, "\t.size\t%s, .LFE%d-%s\n", name, a.fnIndex, name)
	str.WriteString("\t.cfi_endproc\n")
	fmt.Fprintf(str, "# end function %s\n\n", name)
}

func (a *AsmWriter) writeConstant(str *strings.Builder, c ir.Constant) {
	size := a.obj.Target().TypeSize(c.Type())

	switch constant := c.(type) {
	case *ir.ConstantInt:
		switch size {
		case 1:
			fmt.Fprintf(str, "\t.byte %d\n", constant.Value())
		case 2:
			fmt.Fprintf(str, "\t.word %d\n", constant.Value())
		case 4:
			fmt.Fprintf(str, "\t.long %d\n", constant.Value())
		case 8:
			fmt.Fprintf(str, "\t.quad %d\n", constant.Value())
		default:
			panic("BUG: unsupported integer constant size")
		}

	case *ir.ConstantFP:
		switch size {
		case 4:
			fmt.Fprintf(str, "\t.long 0x%x\n", math.Float32bits(float32(constant.Value())))
		case 8:
			fmt.Fprintf(str, "\t.quad 0x%x\n", math.Float64bits(constant.Value()))
		default:
			panic("BUG: unsupported SSE floating point size")
		}

	case *ir.ConstantNull:
		str.WriteString("\t.quad 0x0\n")

	case *ir.ConstantString:
		str.WriteString("\t.string \"")
		for i := 0; i < len(constant.Value()); i++ {
			switch ch := constant.Value()[i]; ch {
			case '\\':
				str.WriteString(`\\`)
			case '\'':
				str.WriteString(`\'`)
			case '"':
				str.WriteString(`\"`)
			case '\n':
				str.WriteString(`\n`)
			case '\t':
				str.WriteString(`\t`)
			case '\r':
				str.WriteString(`\r`)
			case '\b':
				str.WriteString(`\b`)
			case 0:
				str.WriteString(`\0`)
			default:
				str.WriteByte(ch)
			}
		}
		str.WriteString("\"\n")

	default:
		panic("BUG: unrecognized constant variant")
	}
}

func (a *AsmWriter) writeGlobal(str *strings.Builder, global *ir.Global) {
	if global.ReadOnly() {
		str.WriteString("\t.section\t.rodata\n")
	} else {
		str.WriteString("\t.data\n")
	}

	if global.Linkage() == ir.LinkageExternal {
		fmt.Fprintf(str, "\t.global\t%s\n", global.Name())
	}

	init := global.Init()
	if init == nil {
		panic("BUG: global " + global.Name() + " has no initializer")
	}

	align := a.obj.Target().TypeAlign(init.Type())
	size := a.obj.Target().TypeSize(init.Type())

	fmt.Fprintf(str, "\t.align\t%d\n", align)
	fmt.Fprintf(str, "\t.type\t%s,@object\n", global.Name())
	fmt.Fprintf(str, "\t.size\t%s,%d\n", global.Name(), size)
	fmt.Fprintf(str, "%s:\n", global.Name())
	a.writeConstant(str, init)
}
