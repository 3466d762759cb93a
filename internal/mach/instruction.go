package mach

// Instruction is a target instruction: an opcode from the target's opcode
// space and a flat operand list. At most one operand is an explicit def;
// additional defs are implicit and model hardware side effects.
type Instruction struct {
	opcode   uint32
	operands []Operand
}

// NewInstruction returns an instruction over the given operands.
func NewInstruction(opcode uint32, operands ...Operand) Instruction {
	return Instruction{opcode: opcode, operands: operands}
}

// Opcode returns the target opcode.
func (i *Instruction) Opcode() uint32 { return i.opcode }

// NumOperands returns the raw operand count.
func (i *Instruction) NumOperands() int { return len(i.operands) }

// Operand returns the idx-th operand.
func (i *Instruction) Operand(idx int) *Operand { return &i.operands[idx] }

// Operands returns the operand slice.
func (i *Instruction) Operands() []Operand { return i.operands }

// AddOperand appends an operand and returns the instruction for chaining.
func (i *Instruction) AddOperand(op Operand) *Instruction {
	i.operands = append(i.operands, op)
	return i
}

// AddReg appends a register operand with the given flags.
func (i *Instruction) AddReg(reg Register, subreg uint16, def, implicit, kill, dead bool) *Instruction {
	op := NewRegOperand(reg, subreg, def)
	if implicit {
		op.SetIsImplicit()
	}
	if kill {
		op.SetIsKill()
	}
	if dead {
		op.SetIsDead()
	}
	return i.AddOperand(op)
}

// AddImm appends an immediate operand.
func (i *Instruction) AddImm(value int64) *Instruction {
	return i.AddOperand(NewImmOperand(value))
}

// AddSymbol appends a symbol operand.
func (i *Instruction) AddSymbol(symbol string) *Instruction {
	return i.AddOperand(NewSymbolOperand(symbol))
}

// AddConstantIndex appends a constant-pool reference.
func (i *Instruction) AddConstantIndex(index uint32) *Instruction {
	return i.AddOperand(NewConstantOperand(index))
}

// NumExplicitOperands returns the number of non-implicit operands.
func (i *Instruction) NumExplicitOperands() int {
	n := 0
	for idx := range i.operands {
		if !i.operands[idx].implicit {
			n++
		}
	}
	return n
}

// NumDefs returns the number of defining operands, implicit included.
func (i *Instruction) NumDefs() int {
	n := 0
	for idx := range i.operands {
		if i.operands[idx].IsReg() && i.operands[idx].def {
			n++
		}
	}
	return n
}

// HasImplicitDef reports whether any operand is an implicit def.
func (i *Instruction) HasImplicitDef() bool {
	for idx := range i.operands {
		op := &i.operands[idx]
		if op.IsReg() && op.def && op.implicit {
			return true
		}
	}
	return false
}
