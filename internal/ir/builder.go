package ir

import "fmt"

// InsertMode selects where the builder places new instructions in its
// insertion block.
type InsertMode uint8

const (
	// Append places new instructions at the end of the block.
	Append InsertMode = iota
	// Prepend places new instructions at the start of the block.
	Prepend
)

// Builder constructs instructions into a single insertion point at a time.
// The insertion point is the pair (block, mode); every Build call is atomic
// with respect to it.
type Builder struct {
	graph  *CFG
	insert *BasicBlock
	mode   InsertMode
}

// NewBuilder returns a builder over the graph with no insertion point.
func NewBuilder(graph *CFG) *Builder {
	return &Builder{graph: graph}
}

// Graph returns the graph this builder feeds.
func (b *Builder) Graph() *CFG { return b.graph }

// SetInsert sets the insertion point to append at the end of block.
func (b *Builder) SetInsert(block *BasicBlock) {
	b.insert = block
	b.mode = Append
}

// SetInsertMode sets the insertion point with an explicit mode.
func (b *Builder) SetInsertMode(block *BasicBlock, mode InsertMode) {
	b.insert = block
	b.mode = mode
}

// Insert returns the current insertion block, nil when cleared.
func (b *Builder) Insert() *BasicBlock { return b.insert }

// ClearInsert removes the insertion point.
func (b *Builder) ClearInsert() { b.insert = nil }

// emit creates an instruction at the insertion point. A non-nil result type
// allocates a fresh result id.
func (b *Builder) emit(op Opcode, typ Type, operands ...Value) *Instruction {
	if b.insert == nil {
		panic("BUG: builder has no insertion point")
	}

	inst := &Instruction{opcode: op, typ: typ, operands: operands}
	if typ != nil {
		inst.result = b.insert.parent.allocateResult()
	}

	// Keep def-use edges current: every operand that is itself an
	// instruction result, directly or through a phi operand, records this
	// use.
	for _, operand := range operands {
		if phi, ok := operand.(*PhiOperand); ok {
			operand = phi.value
		}
		if def, ok := operand.(*Instruction); ok {
			def.uses = append(def.uses, inst)
		}
	}

	if b.mode == Prepend {
		b.insert.prepend(inst)
	} else {
		b.insert.append(inst)
	}
	return inst
}

// terminate emits a terminator and records CFG edges to its targets.
func (b *Builder) terminate(op Opcode, operands ...Value) *Instruction {
	if b.insert.Terminates() {
		panic("BUG: block " + b.insert.Name() + " already terminates")
	}
	inst := b.emit(op, nil, operands...)
	for _, operand := range operands {
		if addr, ok := operand.(*BlockAddress); ok {
			b.insert.addEdge(addr.block)
		}
	}
	return inst
}

// blockAddr wraps a block as a branch target operand.
func (b *Builder) blockAddr(block *BasicBlock) *BlockAddress {
	return NewBlockAddress(b.graph.PointerTo(b.graph.I8()), block)
}

// BuildNop emits a no-op.
func (b *Builder) BuildNop() *Instruction { return b.emit(OpcodeNop, nil) }

// BuildConst materializes a constant into a value.
func (b *Builder) BuildConst(c Constant) *Instruction {
	return b.emit(OpcodeConstant, c.Type(), c)
}

// BuildString materializes a string constant; its value is a pointer to the
// first byte.
func (b *Builder) BuildString(s *ConstantString) *Instruction {
	return b.emit(OpcodeString, b.graph.PointerTo(b.graph.I8()), s)
}

// BuildLoad reads a value of typ through ptr. The pointer operand type must
// be a pointer whose pointee matches typ.
func (b *Builder) BuildLoad(typ Type, ptr Value) *Instruction {
	checkPointer(ptr, typ, "load")
	return b.emit(OpcodeLoad, typ, ptr)
}

// BuildAlignedLoad is BuildLoad with an explicit alignment.
func (b *Builder) BuildAlignedLoad(typ Type, ptr Value, align uint32) *Instruction {
	inst := b.BuildLoad(typ, ptr)
	inst.align = align
	return inst
}

// BuildStore writes value through ptr.
func (b *Builder) BuildStore(value, ptr Value) *Instruction {
	checkPointer(ptr, value.Type(), "store")
	return b.emit(OpcodeStore, nil, value, ptr)
}

// BuildAlignedStore is BuildStore with an explicit alignment.
func (b *Builder) BuildAlignedStore(value, ptr Value, align uint32) *Instruction {
	inst := b.BuildStore(value, ptr)
	inst.align = align
	return inst
}

// BuildAccessPtr derives a pointer of typ from base offset by index. All
// pointer arithmetic flows through this opcode; the selector scales the
// index by the element size.
func (b *Builder) BuildAccessPtr(typ Type, base, index Value) *Instruction {
	if !base.Type().IsPointer() {
		panic("BUG: aptr base must be a pointer")
	}
	return b.emit(OpcodeAccessPtr, typ, base, index)
}

// BuildSelect chooses between two values on an i1 condition.
func (b *Builder) BuildSelect(cond, tval, fval Value) *Instruction {
	if !cond.Type().IsInteger(1) {
		panic("BUG: select condition must be i1")
	}
	return b.emit(OpcodeSelect, tval.Type(), cond, tval, fval)
}

// BuildPhi joins values by control-flow predecessor.
func (b *Builder) BuildPhi(typ Type, operands ...*PhiOperand) *Instruction {
	vals := make([]Value, len(operands))
	for i, op := range operands {
		vals[i] = op
	}
	return b.emit(OpcodePhi, typ, vals...)
}

// BuildCall calls callee with args. The result type comes from the callee
// signature; void calls produce no value.
func (b *Builder) BuildCall(sig *FunctionType, callee Value, args []Value) *Instruction {
	operands := make([]Value, 0, len(args)+1)
	operands = append(operands, callee)
	operands = append(operands, args...)
	return b.emit(OpcodeCall, sig.Return(), operands...)
}

// BuildAsmCall calls an inline assembly template with args. The selector
// expands the template; no value is produced.
func (b *Builder) BuildAsmCall(iasm *InlineAsm, args []Value) *Instruction {
	operands := make([]Value, 0, len(args)+1)
	operands = append(operands, iasm)
	operands = append(operands, args...)
	return b.emit(OpcodeCall, nil, operands...)
}

// BuildJmp ends the block with an unconditional jump.
func (b *Builder) BuildJmp(target *BasicBlock) *Instruction {
	return b.terminate(OpcodeJump, b.blockAddr(target))
}

// BuildBrIf ends the block with a conditional branch. The condition must
// already be i1; boolean reduction happens before this call.
func (b *Builder) BuildBrIf(cond Value, then, els *BasicBlock) *Instruction {
	if !cond.Type().IsInteger(1) {
		panic("BUG: brif condition must be i1")
	}
	return b.terminate(OpcodeBranchIf, cond, b.blockAddr(then), b.blockAddr(els))
}

// BuildRet ends the block returning value.
func (b *Builder) BuildRet(value Value) *Instruction {
	return b.terminate(OpcodeReturn, value)
}

// BuildRetVoid ends the block returning nothing.
func (b *Builder) BuildRetVoid() *Instruction {
	return b.terminate(OpcodeReturn)
}

// BuildAbort ends the block with a trap.
func (b *Builder) BuildAbort() *Instruction {
	return b.terminate(OpcodeAbort)
}

// BuildUnreachable ends the block marking it unreachable.
func (b *Builder) BuildUnreachable() *Instruction {
	return b.terminate(OpcodeUnreachable)
}

// binary emits a two-operand arithmetic instruction typed like its LHS.
func (b *Builder) binary(op Opcode, lhs, rhs Value) *Instruction {
	return b.emit(op, lhs.Type(), lhs, rhs)
}

// cmp emits a comparison producing i1.
func (b *Builder) cmp(op Opcode, lhs, rhs Value) *Instruction {
	return b.emit(op, b.graph.I1(), lhs, rhs)
}

// BuildIAdd emits an integer add.
func (b *Builder) BuildIAdd(lhs, rhs Value) *Instruction { return b.binary(OpcodeIAdd, lhs, rhs) }

// BuildFAdd emits a float add.
func (b *Builder) BuildFAdd(lhs, rhs Value) *Instruction { return b.binary(OpcodeFAdd, lhs, rhs) }

// BuildISub emits an integer subtract.
func (b *Builder) BuildISub(lhs, rhs Value) *Instruction { return b.binary(OpcodeISub, lhs, rhs) }

// BuildFSub emits a float subtract.
func (b *Builder) BuildFSub(lhs, rhs Value) *Instruction { return b.binary(OpcodeFSub, lhs, rhs) }

// BuildSMul emits a signed multiply.
func (b *Builder) BuildSMul(lhs, rhs Value) *Instruction { return b.binary(OpcodeSMul, lhs, rhs) }

// BuildUMul emits an unsigned multiply.
func (b *Builder) BuildUMul(lhs, rhs Value) *Instruction { return b.binary(OpcodeUMul, lhs, rhs) }

// BuildFMul emits a float multiply.
func (b *Builder) BuildFMul(lhs, rhs Value) *Instruction { return b.binary(OpcodeFMul, lhs, rhs) }

// BuildSDiv emits a signed divide.
func (b *Builder) BuildSDiv(lhs, rhs Value) *Instruction { return b.binary(OpcodeSDiv, lhs, rhs) }

// BuildUDiv emits an unsigned divide.
func (b *Builder) BuildUDiv(lhs, rhs Value) *Instruction { return b.binary(OpcodeUDiv, lhs, rhs) }

// BuildFDiv emits a float divide.
func (b *Builder) BuildFDiv(lhs, rhs Value) *Instruction { return b.binary(OpcodeFDiv, lhs, rhs) }

// BuildSRem emits a signed remainder.
func (b *Builder) BuildSRem(lhs, rhs Value) *Instruction { return b.binary(OpcodeSRem, lhs, rhs) }

// BuildURem emits an unsigned remainder.
func (b *Builder) BuildURem(lhs, rhs Value) *Instruction { return b.binary(OpcodeURem, lhs, rhs) }

// BuildAnd emits a bitwise and.
func (b *Builder) BuildAnd(lhs, rhs Value) *Instruction { return b.binary(OpcodeAnd, lhs, rhs) }

// BuildOr emits a bitwise or.
func (b *Builder) BuildOr(lhs, rhs Value) *Instruction { return b.binary(OpcodeOr, lhs, rhs) }

// BuildXor emits a bitwise xor.
func (b *Builder) BuildXor(lhs, rhs Value) *Instruction { return b.binary(OpcodeXor, lhs, rhs) }

// BuildShl emits a left shift.
func (b *Builder) BuildShl(lhs, rhs Value) *Instruction { return b.binary(OpcodeShl, lhs, rhs) }

// BuildShr emits a logical right shift.
func (b *Builder) BuildShr(lhs, rhs Value) *Instruction { return b.binary(OpcodeShr, lhs, rhs) }

// BuildSar emits an arithmetic right shift.
func (b *Builder) BuildSar(lhs, rhs Value) *Instruction { return b.binary(OpcodeSar, lhs, rhs) }

// BuildNot emits a bitwise complement.
func (b *Builder) BuildNot(v Value) *Instruction { return b.emit(OpcodeNot, v.Type(), v) }

// BuildINeg emits an integer negation.
func (b *Builder) BuildINeg(v Value) *Instruction { return b.emit(OpcodeINeg, v.Type(), v) }

// BuildFNeg emits a float negation.
func (b *Builder) BuildFNeg(v Value) *Instruction { return b.emit(OpcodeFNeg, v.Type(), v) }

// BuildSExt sign-extends v to typ.
func (b *Builder) BuildSExt(typ Type, v Value) *Instruction { return b.emit(OpcodeSExt, typ, v) }

// BuildZExt zero-extends v to typ.
func (b *Builder) BuildZExt(typ Type, v Value) *Instruction { return b.emit(OpcodeZExt, typ, v) }

// BuildFExt extends a float to a wider float type.
func (b *Builder) BuildFExt(typ Type, v Value) *Instruction { return b.emit(OpcodeFExt, typ, v) }

// BuildITrunc truncates an integer to a narrower type.
func (b *Builder) BuildITrunc(typ Type, v Value) *Instruction { return b.emit(OpcodeITrunc, typ, v) }

// BuildFTrunc truncates a float to a narrower float type.
func (b *Builder) BuildFTrunc(typ Type, v Value) *Instruction { return b.emit(OpcodeFTrunc, typ, v) }

// BuildSI2FP converts a signed integer to float.
func (b *Builder) BuildSI2FP(typ Type, v Value) *Instruction { return b.emit(OpcodeSI2FP, typ, v) }

// BuildUI2FP converts an unsigned integer to float.
func (b *Builder) BuildUI2FP(typ Type, v Value) *Instruction { return b.emit(OpcodeUI2FP, typ, v) }

// BuildFP2SI converts a float to a signed integer.
func (b *Builder) BuildFP2SI(typ Type, v Value) *Instruction { return b.emit(OpcodeFP2SI, typ, v) }

// BuildFP2UI converts a float to an unsigned integer.
func (b *Builder) BuildFP2UI(typ Type, v Value) *Instruction { return b.emit(OpcodeFP2UI, typ, v) }

// BuildP2I converts a pointer to an integer.
func (b *Builder) BuildP2I(typ Type, v Value) *Instruction { return b.emit(OpcodeP2I, typ, v) }

// BuildI2P converts an integer to a pointer.
func (b *Builder) BuildI2P(typ Type, v Value) *Instruction { return b.emit(OpcodeI2P, typ, v) }

// BuildReinterpret reinterprets the bits of v as typ.
func (b *Builder) BuildReinterpret(typ Type, v Value) *Instruction {
	return b.emit(OpcodeReinterpret, typ, v)
}

// BuildCmp emits the comparison op over lhs and rhs.
func (b *Builder) BuildCmp(op Opcode, lhs, rhs Value) *Instruction {
	if !op.IsComparison() {
		panic("BUG: BuildCmp requires a comparison opcode")
	}
	return b.cmp(op, lhs, rhs)
}

// BuildCmpINE emits an integer not-equal comparison.
func (b *Builder) BuildCmpINE(lhs, rhs Value) *Instruction { return b.cmp(OpcodeCmpINE, lhs, rhs) }

// BuildCmpIEQ emits an integer equality comparison.
func (b *Builder) BuildCmpIEQ(lhs, rhs Value) *Instruction { return b.cmp(OpcodeCmpIEQ, lhs, rhs) }

// BuildCmpONE emits an ordered float not-equal comparison.
func (b *Builder) BuildCmpONE(lhs, rhs Value) *Instruction { return b.cmp(OpcodeCmpONE, lhs, rhs) }

// checkPointer asserts the IR-level memory typing rule: the pointer operand
// of a load or store must be a pointer whose pointee matches the accessed
// type.
func checkPointer(ptr Value, accessed Type, what string) {
	pt, ok := ptr.Type().(*PointerType)
	if !ok {
		panic(fmt.Sprintf("BUG: %s pointer operand is not a pointer", what))
	}
	if pt.Pointee() != accessed {
		panic(fmt.Sprintf("BUG: %s type %s does not match pointee %s",
			what, accessed, pt.Pointee()))
	}
}
