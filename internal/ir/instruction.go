package ir

import (
	"fmt"
	"strings"
)

// Opcode identifies an IR instruction.
type Opcode uint32

const (
	OpcodeNop Opcode = 1 + iota

	// Terminators.

	OpcodeJump
	OpcodeBranchIf
	OpcodeReturn
	OpcodeAbort
	OpcodeUnreachable

	// Values and memory.

	OpcodeConstant
	OpcodeString
	OpcodeLoad
	OpcodeStore
	OpcodeAccessPtr
	OpcodeSelect
	OpcodePhi
	OpcodeCall

	// Integer and float arithmetic.

	OpcodeIAdd
	OpcodeFAdd
	OpcodeISub
	OpcodeFSub
	OpcodeSMul
	OpcodeUMul
	OpcodeFMul
	OpcodeSDiv
	OpcodeUDiv
	OpcodeFDiv
	OpcodeSRem
	OpcodeURem

	// Bitwise.

	OpcodeAnd
	OpcodeOr
	OpcodeXor
	OpcodeShl
	OpcodeShr
	OpcodeSar
	OpcodeNot
	OpcodeINeg
	OpcodeFNeg

	// Conversions. The IR has no implicit conversions; every width, sign or
	// int-float change is one of these.

	OpcodeSExt
	OpcodeZExt
	OpcodeFExt
	OpcodeITrunc
	OpcodeFTrunc
	OpcodeSI2FP
	OpcodeUI2FP
	OpcodeFP2SI
	OpcodeFP2UI
	OpcodeP2I
	OpcodeI2P
	OpcodeReinterpret

	// Comparisons.

	OpcodeCmpIEQ
	OpcodeCmpINE
	OpcodeCmpOEQ
	OpcodeCmpONE
	OpcodeCmpUNEQ
	OpcodeCmpUNNE
	OpcodeCmpSLT
	OpcodeCmpSLE
	OpcodeCmpSGT
	OpcodeCmpSGE
	OpcodeCmpULT
	OpcodeCmpULE
	OpcodeCmpUGT
	OpcodeCmpUGE
	OpcodeCmpOLT
	OpcodeCmpOLE
	OpcodeCmpOGT
	OpcodeCmpOGE
	OpcodeCmpUNLT
	OpcodeCmpUNLE
	OpcodeCmpUNGT
	OpcodeCmpUNGE
)

var opcodeNames = map[Opcode]string{
	OpcodeNop:         "nop",
	OpcodeJump:        "jmp",
	OpcodeBranchIf:    "brif",
	OpcodeReturn:      "ret",
	OpcodeAbort:       "abort",
	OpcodeUnreachable: "unreachable",
	OpcodeConstant:    "const",
	OpcodeString:      "string",
	OpcodeLoad:        "load",
	OpcodeStore:       "store",
	OpcodeAccessPtr:   "aptr",
	OpcodeSelect:      "select",
	OpcodePhi:         "phi",
	OpcodeCall:        "call",
	OpcodeIAdd:        "iadd",
	OpcodeFAdd:        "fadd",
	OpcodeISub:        "isub",
	OpcodeFSub:        "fsub",
	OpcodeSMul:        "smul",
	OpcodeUMul:        "umul",
	OpcodeFMul:        "fmul",
	OpcodeSDiv:        "sdiv",
	OpcodeUDiv:        "udiv",
	OpcodeFDiv:        "fdiv",
	OpcodeSRem:        "srem",
	OpcodeURem:        "urem",
	OpcodeAnd:         "and",
	OpcodeOr:          "or",
	OpcodeXor:         "xor",
	OpcodeShl:         "shl",
	OpcodeShr:         "shr",
	OpcodeSar:         "sar",
	OpcodeNot:         "not",
	OpcodeINeg:        "ineg",
	OpcodeFNeg:        "fneg",
	OpcodeSExt:        "sext",
	OpcodeZExt:        "zext",
	OpcodeFExt:        "fext",
	OpcodeITrunc:      "itrunc",
	OpcodeFTrunc:      "ftrunc",
	OpcodeSI2FP:       "si2fp",
	OpcodeUI2FP:       "ui2fp",
	OpcodeFP2SI:       "fp2si",
	OpcodeFP2UI:       "fp2ui",
	OpcodeP2I:         "p2i",
	OpcodeI2P:         "i2p",
	OpcodeReinterpret: "reinterpret",
	OpcodeCmpIEQ:      "cmp.ieq",
	OpcodeCmpINE:      "cmp.ine",
	OpcodeCmpOEQ:      "cmp.oeq",
	OpcodeCmpONE:      "cmp.one",
	OpcodeCmpUNEQ:     "cmp.uneq",
	OpcodeCmpUNNE:     "cmp.unne",
	OpcodeCmpSLT:      "cmp.slt",
	OpcodeCmpSLE:      "cmp.sle",
	OpcodeCmpSGT:      "cmp.sgt",
	OpcodeCmpSGE:      "cmp.sge",
	OpcodeCmpULT:      "cmp.ult",
	OpcodeCmpULE:      "cmp.ule",
	OpcodeCmpUGT:      "cmp.ugt",
	OpcodeCmpUGE:      "cmp.uge",
	OpcodeCmpOLT:      "cmp.olt",
	OpcodeCmpOLE:      "cmp.ole",
	OpcodeCmpOGT:      "cmp.ogt",
	OpcodeCmpOGE:      "cmp.oge",
	OpcodeCmpUNLT:     "cmp.unlt",
	OpcodeCmpUNLE:     "cmp.unle",
	OpcodeCmpUNGT:     "cmp.ungt",
	OpcodeCmpUNGE:     "cmp.unge",
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op%d", uint32(op))
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpcodeJump, OpcodeBranchIf, OpcodeReturn, OpcodeAbort, OpcodeUnreachable:
		return true
	}
	return false
}

// IsComparison reports whether op is a comparison.
func (op Opcode) IsComparison() bool {
	return op >= OpcodeCmpIEQ && op <= OpcodeCmpUNGE
}

// Instruction is a single IR operation. Instructions producing a value carry
// a non-zero result id unique within their function; the id is the def token
// used by every use.
type Instruction struct {
	opcode   Opcode
	typ      Type // result type, nil for side-effect-only ops
	result   uint32
	operands []Value

	// align is per-opcode scalar data, currently only meaningful for
	// aligned loads and stores.
	align uint32

	parent *BasicBlock

	// uses are the instructions that consume this instruction's result.
	uses []*Instruction
}

// Opcode returns the opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Type implements Value.Type. It returns the result type, nil for
// side-effect-only instructions.
func (i *Instruction) Type() Type { return i.typ }

// ResultID returns the result id, zero when no value is produced.
func (i *Instruction) ResultID() uint32 { return i.result }

// NumOperands returns the operand count.
func (i *Instruction) NumOperands() int { return len(i.operands) }

// Operand returns the idx-th operand.
func (i *Instruction) Operand(idx int) Value { return i.operands[idx] }

// Operands returns the operand list.
func (i *Instruction) Operands() []Value { return i.operands }

// Align returns the alignment attached to a load or store, zero otherwise.
func (i *Instruction) Align() uint32 { return i.align }

// Parent returns the owning basic block.
func (i *Instruction) Parent() *BasicBlock { return i.parent }

// IsTerminator reports whether this instruction ends its block.
func (i *Instruction) IsTerminator() bool { return i.opcode.IsTerminator() }

// IsComparison reports whether this instruction is a comparison.
func (i *Instruction) IsComparison() bool { return i.opcode.IsComparison() }

// IsLoad reports whether this is a load.
func (i *Instruction) IsLoad() bool { return i.opcode == OpcodeLoad }

// IsStore reports whether this is a store.
func (i *Instruction) IsStore() bool { return i.opcode == OpcodeStore }

// IsBranchIf reports whether this is a conditional branch.
func (i *Instruction) IsBranchIf() bool { return i.opcode == OpcodeBranchIf }

// NumUses returns the number of instructions using this result.
func (i *Instruction) NumUses() int { return len(i.uses) }

// Uses returns the instructions using this result.
func (i *Instruction) Uses() []*Instruction { return i.uses }

// HasSideEffects reports whether removing this instruction could change
// observable behavior. Terminators, stores and calls are effectful.
func (i *Instruction) HasSideEffects() bool {
	switch i.opcode {
	case OpcodeStore, OpcodeCall:
		return true
	}
	return i.IsTerminator()
}

// Format returns the debugging form of this instruction.
func (i *Instruction) Format() string {
	var str strings.Builder
	if i.result != 0 {
		fmt.Fprintf(&str, "v%d:%s = ", i.result, i.typ)
	}
	str.WriteString(i.opcode.String())
	for idx, op := range i.operands {
		if idx == 0 {
			str.WriteByte(' ')
		} else {
			str.WriteString(", ")
		}
		str.WriteString(FormatValue(op))
	}
	return str.String()
}
