package x64

import (
	"strconv"
	"strings"

	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/mach"
	"github.com/nwmarino/lovelace/internal/target"
)

// Selector performs x64 instruction selection over one IR function,
// emitting machine instructions into the mirroring machine blocks.
type Selector struct {
	fn     *mach.Function
	insert *mach.BasicBlock
	target *target.Target
	diags  *diag.Diagnostics

	// regs maps IR result ids to the virtual register holding them.
	regs map[uint32]mach.Register

	// locals maps function locals to their stack indices.
	locals map[*ir.Local]uint32

	// deferred holds comparison instructions whose only user is a
	// conditional branch; their selection is postponed to the branch so the
	// flags can be reused by a direct Jcc.
	deferred map[*ir.Instruction]bool
}

// NewSelector returns a selector over fn.
func NewSelector(fn *mach.Function, diags *diag.Diagnostics) *Selector {
	return &Selector{
		fn:       fn,
		target:   fn.Target(),
		diags:    diags,
		regs:     make(map[uint32]mach.Register),
		locals:   make(map[*ir.Local]uint32),
		deferred: make(map[*ir.Instruction]bool),
	}
}

// asRegister returns or creates the virtual register holding the result of
// the defining instruction inst.
func (s *Selector) asRegister(inst *ir.Instruction) mach.Register {
	if inst.ResultID() == 0 {
		panic("BUG: instruction does not produce a value")
	}

	cls := mach.GeneralPurpose
	if inst.Type().IsFloatingPoint() {
		cls = mach.FloatingPoint
	}

	vreg := s.temporary(cls)
	s.regs[inst.ResultID()] = vreg
	return vreg
}

// temporary allocates a fresh virtual register of the given class.
func (s *Selector) temporary(cls mach.RegisterClass) mach.Register {
	return s.fn.RegisterInfo().Allocate(cls)
}

// subregister returns the general-purpose subregister width for a type.
// The result is 1, 2, 4 or 8 for a scalar type, and 0 for a nil type.
func (s *Selector) subregister(ty ir.Type) uint16 {
	if ty == nil {
		return 0
	}
	size := s.target.TypeSize(ty)
	switch size {
	case 1, 2, 4, 8:
		return uint16(size)
	}
	panic("BUG: cannot determine x64 subregister for a non-scalar type")
}

// widthOp picks the width-suffixed opcode of a family based on the type
// size; ss/sd are the SSE variants for 32 and 64 bit floats.
func (s *Selector) widthOp(ty ir.Type, b, w, l, q, ss, sd Opcode) Opcode {
	switch s.target.TypeSizeInBits(ty) {
	case 1, 8:
		return b
	case 16:
		return w
	case 32:
		if ty.IsFloatingPoint() {
			return ss
		}
		return l
	case 64:
		if ty.IsFloatingPoint() {
			return sd
		}
		return q
	}
	panic("BUG: cannot determine opcode width for type " + ty.String())
}

func (s *Selector) moveOp(ty ir.Type) Opcode {
	return s.widthOp(ty, MOV8, MOV16, MOV32, MOV64, MOVSS, MOVSD)
}

func (s *Selector) cmpOp(ty ir.Type) Opcode {
	return s.widthOp(ty, CMP8, CMP16, CMP32, CMP64, UCOMISS, UCOMISD)
}

func (s *Selector) addOp(ty ir.Type) Opcode {
	return s.widthOp(ty, ADD8, ADD16, ADD32, ADD64, ADDSS, ADDSD)
}

func (s *Selector) subOp(ty ir.Type) Opcode {
	return s.widthOp(ty, SUB8, SUB16, SUB32, SUB64, SUBSS, SUBSD)
}

func (s *Selector) imulOp(ty ir.Type) Opcode {
	return s.widthOp(ty, IMUL8, IMUL16, IMUL32, IMUL64, MULSS, MULSD)
}

func (s *Selector) mulOp(ty ir.Type) Opcode {
	return s.widthOp(ty, MUL8, MUL16, MUL32, MUL64, MULSS, MULSD)
}

func (s *Selector) idivOp(ty ir.Type) Opcode {
	return s.widthOp(ty, IDIV8, IDIV16, IDIV32, IDIV64, DIVSS, DIVSD)
}

func (s *Selector) divOp(ty ir.Type) Opcode {
	return s.widthOp(ty, DIV8, DIV16, DIV32, DIV64, DIVSS, DIVSD)
}

func (s *Selector) andOp(ty ir.Type) Opcode {
	return s.widthOp(ty, AND8, AND16, AND32, AND64, ANDPS, ANDPD)
}

func (s *Selector) orOp(ty ir.Type) Opcode {
	return s.widthOp(ty, OR8, OR16, OR32, OR64, ORPS, ORPD)
}

func (s *Selector) xorOp(ty ir.Type) Opcode {
	return s.widthOp(ty, XOR8, XOR16, XOR32, XOR64, XORPS, XORPD)
}

func (s *Selector) shlOp(ty ir.Type) Opcode {
	return s.widthOp(ty, SHL8, SHL16, SHL32, SHL64, NoOpcode, NoOpcode)
}

func (s *Selector) shrOp(ty ir.Type) Opcode {
	return s.widthOp(ty, SHR8, SHR16, SHR32, SHR64, NoOpcode, NoOpcode)
}

func (s *Selector) sarOp(ty ir.Type) Opcode {
	return s.widthOp(ty, SAR8, SAR16, SAR32, SAR64, NoOpcode, NoOpcode)
}

func (s *Selector) notOp(ty ir.Type) Opcode {
	return s.widthOp(ty, NOT8, NOT16, NOT32, NOT64, NoOpcode, NoOpcode)
}

func (s *Selector) negOp(ty ir.Type) Opcode {
	return s.widthOp(ty, NEG8, NEG16, NEG32, NEG64, NoOpcode, NoOpcode)
}

// jccOp returns the conditional jump matching an IR comparison opcode.
func jccOp(op ir.Opcode) Opcode {
	switch op {
	case ir.OpcodeCmpIEQ, ir.OpcodeCmpOEQ, ir.OpcodeCmpUNEQ:
		return JE
	case ir.OpcodeCmpINE, ir.OpcodeCmpONE, ir.OpcodeCmpUNNE:
		return JNE
	case ir.OpcodeCmpSLT:
		return JL
	case ir.OpcodeCmpSLE:
		return JLE
	case ir.OpcodeCmpSGT:
		return JG
	case ir.OpcodeCmpSGE:
		return JGE
	case ir.OpcodeCmpULT, ir.OpcodeCmpOLT, ir.OpcodeCmpUNLT:
		return JB
	case ir.OpcodeCmpULE, ir.OpcodeCmpOLE, ir.OpcodeCmpUNLE:
		return JBE
	case ir.OpcodeCmpUGT, ir.OpcodeCmpOGT, ir.OpcodeCmpUNGT:
		return JA
	case ir.OpcodeCmpUGE, ir.OpcodeCmpOGE, ir.OpcodeCmpUNGE:
		return JAE
	default:
		panic("BUG: expected comparison opcode")
	}
}

// setccOp returns the SETcc matching an IR comparison opcode.
func setccOp(op ir.Opcode) Opcode {
	switch op {
	case ir.OpcodeCmpIEQ, ir.OpcodeCmpOEQ, ir.OpcodeCmpUNEQ:
		return SETE
	case ir.OpcodeCmpINE, ir.OpcodeCmpONE, ir.OpcodeCmpUNNE:
		return SETNE
	case ir.OpcodeCmpSLT:
		return SETL
	case ir.OpcodeCmpSLE:
		return SETLE
	case ir.OpcodeCmpSGT:
		return SETG
	case ir.OpcodeCmpSGE:
		return SETGE
	case ir.OpcodeCmpULT, ir.OpcodeCmpOLT, ir.OpcodeCmpUNLT:
		return SETB
	case ir.OpcodeCmpULE, ir.OpcodeCmpOLE, ir.OpcodeCmpUNLE:
		return SETBE
	case ir.OpcodeCmpUGT, ir.OpcodeCmpOGT, ir.OpcodeCmpUNGT:
		return SETA
	case ir.OpcodeCmpUGE, ir.OpcodeCmpOGE, ir.OpcodeCmpUNGE:
		return SETAE
	default:
		panic("BUG: expected comparison opcode")
	}
}

// flipJcc mirrors a conditional jump across swapped operands.
func flipJcc(jcc Opcode) Opcode {
	switch jcc {
	case JE, JNE, JZ, JNZ:
		return jcc
	case JL:
		return JG
	case JLE:
		return JGE
	case JG:
		return JL
	case JGE:
		return JLE
	case JA:
		return JB
	case JAE:
		return JBE
	case JB:
		return JA
	case JBE:
		return JAE
	default:
		panic("BUG: cannot flip non-jcc opcode")
	}
}

// flipSetcc mirrors a SETcc across swapped operands.
func flipSetcc(setcc Opcode) Opcode {
	switch setcc {
	case SETE, SETNE, SETZ, SETNZ:
		return setcc
	case SETL:
		return SETG
	case SETLE:
		return SETGE
	case SETG:
		return SETL
	case SETGE:
		return SETLE
	case SETA:
		return SETB
	case SETAE:
		return SETBE
	case SETB:
		return SETA
	case SETBE:
		return SETAE
	default:
		panic("BUG: cannot flip non-setcc opcode")
	}
}

// emit appends a new machine instruction to the insertion block.
func (s *Selector) emit(opc Opcode, ops ...mach.Operand) *mach.Instruction {
	if s.insert == nil {
		panic("BUG: insertion block not set")
	}
	return s.insert.Append(mach.NewInstruction(uint32(opc), ops...))
}

// emitBeforeTerms inserts a new machine instruction into block before its
// trailing run of terminators.
func (s *Selector) emitBeforeTerms(block *mach.BasicBlock, opc Opcode, ops ...mach.Operand) *mach.Instruction {
	insts := block.Insts()
	idx := len(insts)
	for idx > 0 && IsTerminatingOpcode(Opcode(insts[idx-1].Opcode())) {
		idx--
	}

	insts = append(insts, mach.Instruction{})
	copy(insts[idx+1:], insts[idx:])
	insts[idx] = mach.NewInstruction(uint32(opc), ops...)
	block.SetInsts(insts)
	return &insts[idx]
}

// asOperand lowers an IR value to a machine operand treated as a use.
// Lowering a constant may emit materializing instructions.
func (s *Selector) asOperand(value ir.Value) mach.Operand {
	switch v := value.(type) {
	case *ir.ConstantInt:
		return mach.NewImmOperand(v.Value())

	case *ir.ConstantFP:
		reg := mach.NewRegOperand(s.temporary(mach.FloatingPoint), 0, true)
		index := s.fn.ConstantPool().GetOrCreate(v, s.target.TypeAlign(v.Type()))
		s.emit(s.moveOp(v.Type())).AddConstantIndex(index).AddOperand(reg)
		reg.SetIsUse()
		return reg

	case *ir.ConstantNull:
		reg := mach.NewRegOperand(s.temporary(mach.GeneralPurpose), 8, true)
		s.emit(MOV64).AddImm(0).AddOperand(reg)
		reg.SetIsUse()
		return reg

	case *ir.BlockAddress:
		return mach.NewBlockOperand(s.fn.At(v.Block().Number()))

	case *ir.Global:
		return mach.NewSymbolOperand(v.Name())

	case *ir.Argument:
		return s.asArgument(v, v.Number())

	case *ir.Function:
		return mach.NewSymbolOperand(v.Name())

	case *ir.Local:
		index, ok := s.locals[v]
		if !ok {
			panic("BUG: local " + v.Name() + " has no stack slot")
		}
		return mach.NewStackOperand(index)

	case *ir.Instruction:
		reg, ok := s.regs[v.ResultID()]
		if !ok {
			panic("BUG: instruction has not been mapped to x64 yet")
		}
		return mach.NewRegOperand(reg, s.subregister(v.Type()), false)

	default:
		panic("BUG: cannot lower value to an x64 machine operand")
	}
}

var gprArgs = [6]mach.Register{RDI, RSI, RDX, RCX, R8, R9}
var fprArgs = [6]mach.Register{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5}

// asArgument returns a machine operand representing the location of a call
// argument as per the System V ABI for x64.
func (s *Selector) asArgument(value ir.Value, index int) mach.Operand {
	if index >= 6 {
		s.diags.Error("cannot call a function with more than 6 arguments", diag.SourceSpan{})
		return mach.NewImmOperand(0)
	}

	if value.Type().IsFloatingPoint() {
		return mach.NewRegOperand(fprArgs[index], 0, true)
	}
	return mach.NewRegOperand(gprArgs[index], s.subregister(value.Type()), true)
}

func (s *Selector) isDeferred(inst *ir.Instruction) bool {
	if !inst.IsComparison() {
		panic("BUG: cannot defer a non-comparison instruction")
	}
	return s.deferred[inst]
}

func (s *Selector) defer_(inst *ir.Instruction) {
	if s.isDeferred(inst) {
		panic("BUG: comparison instruction has already been deferred")
	}
	s.deferred[inst] = true
}

func (s *Selector) selectConstant(inst *ir.Instruction) {
	src := s.asOperand(inst.Operand(0))
	s.emit(s.moveOp(inst.Type()), src).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectStringConstant(inst *ir.Instruction) {
	str, ok := inst.Operand(0).(*ir.ConstantString)
	if !ok {
		panic("BUG: expected a string constant operand")
	}
	index := s.fn.ConstantPool().GetOrCreate(str, 1)
	s.emit(LEA64).AddConstantIndex(index).
		AddReg(s.asRegister(inst), 8, true, false, false, false)
}

func (s *Selector) selectLoadStore(inst *ir.Instruction) {
	var opc Opcode
	if inst.IsLoad() {
		opc = s.moveOp(inst.Type())
	} else {
		opc = s.moveOp(inst.Operand(0).Type())
	}

	src := s.asOperand(inst.Operand(0))
	if inst.IsLoad() && src.IsReg() {
		// The pointer to load from is in a register, e.g. the result of a
		// pointer access, so it must be transformed into a memory reference
		// to dereference the pointer.
		src = mach.NewMemOperand(src.Reg(), 0)
	}

	if inst.IsStore() {
		if src.IsReg() && src.Reg().IsPhysical() {
			src.SetIsUse()
			if _, isArg := inst.Operand(0).(*ir.Argument); isArg {
				src.SetIsKill()
			}
		} else if src.IsSymbol() || src.IsMem() || src.IsStackIndex() || src.IsConstantIndex() {
			// Both the store source and destination are memory references,
			// so the source must first be staged through a register, we
			// choose %rax for simplicity.
			tmp := mach.NewRegOperand(RAX, s.subregister(inst.Operand(0).Type()), true)
			s.emit(LEA64, src, tmp)

			src = tmp
			src.SetIsUse()
			src.SetIsKill()
		}

		dst := s.asOperand(inst.Operand(1))
		if dst.IsReg() {
			// The pointer to store to is in a register, so it must be
			// transformed into a memory reference.
			dst = mach.NewMemOperand(dst.Reg(), 0)
		}

		s.emit(opc, src, dst)
	} else {
		s.emit(opc, src).
			AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
	}
}

func (s *Selector) selectAccessPtr(inst *ir.Instruction) {
	srcValue := inst.Operand(0)
	srcType, ok := srcValue.Type().(*ir.PointerType)
	if !ok {
		panic("BUG: aptr source must be a pointer")
	}
	pointee := srcType.Pointee()

	src := s.asOperand(srcValue)
	dst := mach.NewRegOperand(s.asRegister(inst), 8, true)

	opc := s.moveOp(srcValue.Type())
	if _, isLocal := srcValue.(*ir.Local); isLocal {
		opc = LEA64
	}
	s.emit(opc, src, dst)

	if constant, ok := inst.Operand(1).(*ir.ConstantInt); ok {
		var offset int64
		switch p := pointee.(type) {
		case *ir.StructType:
			offset = int64(s.target.FieldOffset(p, uint32(constant.Value())))
		case *ir.ArrayType:
			offset = int64(s.target.TypeSize(p.Element())) * constant.Value()
		default:
			offset = int64(s.target.TypeSize(pointee)) * constant.Value()
		}

		if offset == 0 {
			return
		}
		s.emit(ADD64).AddImm(offset).AddOperand(dst)
		return
	}

	var size int64
	switch p := pointee.(type) {
	case *ir.ArrayType:
		size = int64(s.target.TypeSize(p.Element()))
	default:
		size = int64(s.target.TypeSize(pointee))
	}

	index := s.asOperand(inst.Operand(1))
	if size == 1 {
		s.emit(ADD64, index, dst)
	} else {
		tmp := mach.NewRegOperand(RAX, 8, true)
		s.emit(IMUL64).AddImm(size).AddOperand(index).AddOperand(tmp)

		tmp.SetIsUse()
		tmp.SetIsKill()
		s.emit(ADD64, tmp, dst)
	}
}

func (s *Selector) selectSelect(inst *ir.Instruction) {
	s.diags.Error("x64 selection for 'select' is not implemented", diag.SourceSpan{})
	s.asRegister(inst)
}

func (s *Selector) selectBranchIf(inst *ir.Instruction) {
	condition := inst.Operand(0)
	if !condition.Type().IsInteger(1) {
		panic("BUG: brif condition type is not 'i1'")
	}

	if cmp, ok := condition.(*ir.Instruction); ok && cmp.IsComparison() && s.isDeferred(cmp) {
		jcc := jccOp(cmp.Opcode())
		lhs := s.asOperand(cmp.Operand(0))
		rhs := s.asOperand(cmp.Operand(1))

		// AT&T cannot take an immediate on the right; either swap the
		// operands to put it on the left or mirror the condition code.
		if rhs.IsImm() {
			lhs, rhs = rhs, lhs
		} else {
			jcc = flipJcc(jcc)
		}

		s.emit(s.cmpOp(cmp.Operand(0).Type()), lhs, rhs)

		tdst := s.asOperand(inst.Operand(1))
		fdst := s.asOperand(inst.Operand(2))
		s.emit(jcc, tdst)
		s.emit(JMP, fdst)
		return
	}

	cond := s.asOperand(condition)
	tdst := s.asOperand(inst.Operand(1))
	fdst := s.asOperand(inst.Operand(2))

	s.emit(CMP8, mach.NewImmOperand(0), cond)
	s.emit(JNE, tdst)
	s.emit(JMP, fdst)
}

func (s *Selector) selectPhi(inst *ir.Instruction) {
	dstReg := s.asRegister(inst)
	subreg := s.subregister(inst.Type())

	// Naively insert moves at the end of every predecessor, before its
	// terminators. This resolves trivial merges; cyclic parallel copies
	// between phi destinations in one block are not broken up here.
	for i := 0; i < inst.NumOperands(); i++ {
		phiOp, ok := inst.Operand(i).(*ir.PhiOperand)
		if !ok {
			panic("BUG: unexpected phi operand")
		}

		predMBB := s.fn.At(phiOp.Pred().Number())
		if predMBB == nil {
			panic("BUG: could not find machine block for phi predecessor")
		}

		saved := s.insert
		s.insert = predMBB

		src := s.asOperand(phiOp.Value())
		opc := s.moveOp(phiOp.Value().Type())
		s.emitBeforeTerms(predMBB, opc, src).
			AddReg(dstReg, subreg, true, false, false, false)

		s.insert = saved
	}
}

func (s *Selector) selectReturn(inst *ir.Instruction) {
	dstReg := NoReg
	subreg := uint16(0)

	if inst.NumOperands() == 1 {
		retValue := inst.Operand(0)
		if retValue.Type().IsFloatingPoint() {
			dstReg = XMM0
		} else {
			dstReg = RAX
			subreg = s.subregister(retValue.Type())
		}

		src := s.asOperand(retValue)
		s.emit(s.moveOp(retValue.Type()), src).
			AddReg(dstReg, subreg, false, false, false, false)
	}

	ret := s.emit(RET64)
	if dstReg != NoReg {
		ret.AddReg(dstReg, subreg, false, true, false, false)
	}
}

func (s *Selector) selectCall(inst *ir.Instruction) {
	first := inst.Operand(0)
	if iasm, ok := first.(*ir.InlineAsm); ok {
		s.selectInlineAsm(inst, iasm)
		return
	}

	if inst.NumOperands() > 7 {
		s.diags.Error("cannot call a function with more than 6 arguments", diag.SourceSpan{})
		if inst.ResultID() != 0 {
			s.asRegister(inst)
		}
		return
	}

	regs := make([]mach.Register, 0, inst.NumOperands()-1)
	for idx := inst.NumOperands() - 2; idx >= 0; idx-- {
		arg := inst.Operand(idx + 1)
		src := s.asOperand(arg)
		dst := s.asArgument(arg, idx)
		dst.SetIsDef()
		regs = append(regs, dst.Reg())

		opc := s.moveOp(arg.Type())
		if _, isLocal := arg.(*ir.Local); isLocal {
			opc = LEA64
		}
		s.emit(opc, src, dst)
	}

	callee, ok := first.(*ir.Function)
	if !ok {
		panic("BUG: call first operand is not a function or inline assembly")
	}

	call := s.emit(CALL64).AddSymbol(callee.Name())
	for _, reg := range regs {
		call.AddReg(reg, 8, false, true, true, false)
	}

	if inst.ResultID() != 0 {
		var srcReg mach.Register
		subreg := uint16(0)
		if inst.Type().IsFloatingPoint() {
			srcReg = XMM0
		} else {
			srcReg = RAX
			subreg = s.subregister(inst.Type())
		}

		call.AddReg(srcReg, subreg, true, true, false, false)

		s.emit(s.moveOp(inst.Type())).
			AddReg(srcReg, subreg, false, false, true, false).
			AddReg(s.asRegister(inst), subreg, true, false, false, false)
	}
}

// selectInlineAsm expands an inline assembly template line by line. Each
// line is a mnemonic plus comma-separated operands: '%name' is a register,
// '$imm' an immediate, and '#N' references the N-th call argument with
// flags taken from the parallel constraint list.
func (s *Selector) selectInlineAsm(inst *ir.Instruction, iasm *ir.InlineAsm) {
	constraints := iasm.Constraints()

	for _, line := range strings.Split(iasm.Template(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		mnemonicStr, rest, _ := strings.Cut(line, " ")
		mnemonic := ParseOpcode(mnemonicStr)
		if mnemonic == NoOpcode {
			s.diags.Fatal("unrecognized mnemonic in inline assembly: '"+mnemonicStr+"'", diag.SourceSpan{})
		}
		minst := s.emit(mnemonic)

		var operands []string
		for _, op := range strings.Split(rest, ",") {
			op = strings.TrimSpace(strings.ReplaceAll(op, " ", ""))
			if op != "" {
				operands = append(operands, op)
			}
		}

		for i, op := range operands {
			switch op[0] {
			case '%':
				reg, subreg := ParseRegister(op[1:])
				if reg == NoReg {
					s.diags.Fatal("unrecognized register in inline assembly: '"+op+"'", diag.SourceSpan{})
				}
				// The last operand of a line is its destination.
				minst.AddReg(reg, subreg, i+1 == len(operands), false, false, false)

			case '$':
				imm, err := strconv.ParseInt(op[1:], 10, 64)
				if err != nil {
					s.diags.Fatal("malformed immediate in inline assembly: '"+op+"'", diag.SourceSpan{})
				}
				minst.AddImm(imm)

			case '#':
				index, err := strconv.ParseUint(op[1:], 10, 32)
				if err != nil || int(index)+1 >= inst.NumOperands() {
					s.diags.Fatal("malformed argument reference in inline assembly: '"+op+"'", diag.SourceSpan{})
				}

				oper := s.asOperand(inst.Operand(int(index) + 1))
				if int(index) < len(constraints) {
					switch constraints[index] {
					case "|r":
						oper.SetIsDef()
					case "&r":
						oper.SetIsDef()
					case "|m", "&m", "m", "...":
						// No flags; memory constraints are a known
						// limitation of the constraint set.
					case "r":
						oper.SetIsUse()
					}
				}
				minst.AddOperand(oper)

			default:
				s.diags.Fatal("unknown inline assembly operand: '"+op+"'", diag.SourceSpan{})
			}
		}

		refineAsmMove(minst)
	}
}

// refineAsmMove narrows a generic 'mov' line to the width-suffixed opcode
// implied by its register operands, when any carry a width.
func refineAsmMove(minst *mach.Instruction) {
	if Opcode(minst.Opcode()) != MOV {
		return
	}

	for i := minst.NumOperands() - 1; i >= 0; i-- {
		mo := minst.Operand(i)
		if !mo.IsReg() {
			continue
		}
		switch mo.Subreg() {
		case 1:
			*minst = mach.NewInstruction(uint32(MOV8), minst.Operands()...)
		case 2:
			*minst = mach.NewInstruction(uint32(MOV16), minst.Operands()...)
		case 4:
			*minst = mach.NewInstruction(uint32(MOV32), minst.Operands()...)
		case 8:
			*minst = mach.NewInstruction(uint32(MOV64), minst.Operands()...)
		case 0:
			*minst = mach.NewInstruction(uint32(MOVSD), minst.Operands()...)
		}
		return
	}
}

func (s *Selector) selectAdd(inst *ir.Instruction) {
	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))

	if rhs.IsImm() {
		lhs, rhs = rhs, lhs
	}

	s.emit(s.addOp(inst.Type()), lhs, rhs)
	s.emit(s.moveOp(inst.Type()), rhs).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectSub(inst *ir.Instruction) {
	subOpc := s.subOp(inst.Type())
	movOpc := s.moveOp(inst.Type())

	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))

	if lhs.IsImm() {
		// AT&T syntax cannot take an immediate on the right hand operand,
		// and subtraction order matters, so move left hand immediates into
		// the destination first.
		dst := mach.NewRegOperand(s.asRegister(inst), s.subregister(inst.Type()), true)
		s.emit(movOpc, lhs, dst)
		s.emit(subOpc, rhs, dst)
	} else {
		s.emit(subOpc, rhs, lhs)
		s.emit(movOpc, lhs).
			AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
	}
}

func (s *Selector) selectIMul(inst *ir.Instruction) {
	movOpc := s.moveOp(inst.Type())
	imulOpc := s.imulOp(inst.Type())

	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))
	dst := mach.NewRegOperand(s.asRegister(inst), s.subregister(inst.Type()), true)

	if rhs.IsImm() {
		lhs, rhs = rhs, lhs
	}

	s.emit(movOpc, lhs, dst)
	s.emit(imulOpc, rhs, dst)
}

func (s *Selector) selectIDivIRem(inst *ir.Instruction) {
	if s.target.TypeSizeInBits(inst.Type()) <= 8 {
		// 8-bit division uses %ax rather than the %rdx:%rax pair.
		s.diags.Error("8-bit integer division is unsupported", diag.SourceSpan{})
		s.asRegister(inst)
		return
	}

	var divOpc Opcode
	movOpc := s.moveOp(inst.Type())
	isIDiv, isRem := false, false

	switch inst.Opcode() {
	case ir.OpcodeSRem:
		isRem = true
		fallthrough
	case ir.OpcodeSDiv:
		isIDiv = true
		divOpc = s.idivOp(inst.Type())
	case ir.OpcodeURem:
		isRem = true
		divOpc = s.divOp(inst.Type())
	case ir.OpcodeUDiv:
		divOpc = s.divOp(inst.Type())
	default:
		panic("BUG: unexpected opcode")
	}

	lhsValue := inst.Operand(0)
	lhs := s.asOperand(lhsValue)
	rhs := s.asOperand(inst.Operand(1))

	s.emit(s.moveOp(lhsValue.Type()), lhs).
		AddReg(RAX, s.subregister(lhsValue.Type()), true, false, false, false)

	if isIDiv {
		// Sign-extend the dividend into %rdx.
		s.emit(CQO).
			AddReg(RAX, 8, true, true, false, false).
			AddReg(RDX, 8, true, true, false, false).
			AddReg(RAX, 8, false, true, false, false)

		s.emit(divOpc, rhs).
			AddReg(RAX, 8, true, true, false, isRem).
			AddReg(RDX, 8, true, true, false, !isRem).
			AddReg(RAX, 8, false, true, false, false).
			AddReg(RDX, 8, false, true, true, false)
	} else {
		// Zero %edx for the unsigned divide.
		s.emit(MOV32).AddImm(0).
			AddReg(RDX, 4, true, false, false, true).
			AddReg(RDX, 8, true, true, false, false)

		s.emit(divOpc, rhs).
			AddReg(RAX, 8, true, true, false, isRem).
			AddReg(RDX, 8, true, true, false, !isRem).
			AddReg(RAX, 8, false, true, false, false).
			AddReg(RDX, 8, false, true, true, false)
	}

	dst := mach.NewRegOperand(s.asRegister(inst), s.subregister(inst.Type()), true)
	if isRem {
		// Remainders are in %rdx.
		s.emit(movOpc).
			AddReg(RDX, s.subregister(inst.Type()), false, false, true, false).
			AddOperand(dst)
	} else {
		// Quotients are in %rax.
		s.emit(movOpc).
			AddReg(RAX, s.subregister(inst.Type()), false, false, true, false).
			AddOperand(dst)
	}
}

func (s *Selector) selectFMulFDiv(inst *ir.Instruction) {
	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))

	var opc Opcode
	switch inst.Opcode() {
	case ir.OpcodeFMul:
		opc = s.mulOp(inst.Type())
	case ir.OpcodeFDiv:
		opc = s.divOp(inst.Type())
	default:
		panic("BUG: unexpected opcode")
	}

	if lhs.IsConstantIndex() {
		tmp := mach.NewRegOperand(XMM0, 0, true)
		s.emit(s.moveOp(inst.Type()), lhs, tmp)
		lhs = tmp
		lhs.SetIsUse()
		lhs.SetIsKill()
	}

	s.emit(opc, rhs, lhs)
	s.emit(s.moveOp(inst.Type()), lhs).
		AddReg(s.asRegister(inst), 8, true, false, false, false)
}

func (s *Selector) selectBitOp(inst *ir.Instruction) {
	var opc Opcode
	switch inst.Opcode() {
	case ir.OpcodeAnd:
		opc = s.andOp(inst.Type())
	case ir.OpcodeOr:
		opc = s.orOp(inst.Type())
	case ir.OpcodeXor:
		opc = s.xorOp(inst.Type())
	default:
		panic("BUG: expected and, or or xor opcode")
	}

	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))
	s.emit(opc, lhs, rhs)

	s.emit(s.moveOp(inst.Type()), rhs).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectShift(inst *ir.Instruction) {
	var opc Opcode
	switch inst.Opcode() {
	case ir.OpcodeShl:
		opc = s.shlOp(inst.Type())
	case ir.OpcodeShr:
		opc = s.shrOp(inst.Type())
	case ir.OpcodeSar:
		opc = s.sarOp(inst.Type())
	default:
		panic("BUG: unexpected opcode")
	}

	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))
	dst := mach.NewRegOperand(s.asRegister(inst), s.subregister(inst.Type()), true)

	s.emit(s.moveOp(inst.Operand(0).Type()), lhs, dst)
	dst.SetIsUse()

	if rhs.IsImm() {
		s.emit(opc, rhs, dst)
	} else {
		// The shift amount must be in %cl when it is not an immediate.
		cl := mach.NewRegOperand(RCX, 1, true)
		if rhs.IsReg() {
			rhs.SetSubreg(1)
		}
		s.emit(MOV8, rhs, cl)
		cl.SetIsUse()
		s.emit(opc, cl, dst)
	}
}

func (s *Selector) selectNot(inst *ir.Instruction) {
	src := s.asOperand(inst.Operand(0))
	s.emit(s.notOp(inst.Operand(0).Type()), src)
	s.emit(s.moveOp(inst.Type()), src).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectNeg(inst *ir.Instruction) {
	switch inst.Opcode() {
	case ir.OpcodeINeg:
		src := s.asOperand(inst.Operand(0))
		s.emit(s.negOp(inst.Type()), src)
		s.emit(s.moveOp(inst.Type()), src).
			AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
	case ir.OpcodeFNeg:
		// Float negation needs sign-mask constants which the pool does not
		// model yet.
		s.diags.Error("x64 selection for 'fneg' is not implemented", diag.SourceSpan{})
		s.asRegister(inst)
	default:
		panic("BUG: expected ineg or fneg opcode")
	}
}

func (s *Selector) selectExt(inst *ir.Instruction) {
	value := inst.Operand(0)
	src := s.asOperand(value)
	srcBits := s.target.TypeSizeInBits(value.Type())
	dstBits := s.target.TypeSizeInBits(inst.Type())
	dstSubreg := s.subregister(inst.Type())

	var opc Opcode
	switch inst.Opcode() {
	case ir.OpcodeSExt:
		if srcBits == 32 && dstBits == 64 {
			opc = MOVSXD
		} else {
			opc = MOVSX
		}
	case ir.OpcodeZExt:
		if srcBits == 32 && dstBits == 64 {
			// A plain 32-bit move already zeroes the upper bits.
			opc = MOV
			dstSubreg = 4
		} else {
			opc = MOVZX
		}
	case ir.OpcodeFExt:
		opc = CVTSS2SD
	default:
		panic("BUG: expected sext, zext or fext opcode")
	}

	s.emit(opc, src).AddReg(s.asRegister(inst), dstSubreg, true, false, false, false)
}

func (s *Selector) selectTrunc(inst *ir.Instruction) {
	src := s.asOperand(inst.Operand(0))
	dstSubreg := s.subregister(inst.Type())

	var opc Opcode
	switch inst.Opcode() {
	case ir.OpcodeITrunc:
		if src.IsReg() {
			src.SetSubreg(dstSubreg)
		}
		opc = MOV
	case ir.OpcodeFTrunc:
		opc = CVTSD2SS
	default:
		panic("BUG: expected itrunc or ftrunc opcode")
	}

	s.emit(opc, src).AddReg(s.asRegister(inst), dstSubreg, true, false, false, false)
}

func (s *Selector) selectIntToFP(inst *ir.Instruction) {
	src := s.asOperand(inst.Operand(0))

	var opc Opcode
	if inst.Type().IsFloatingPoint(32) {
		opc = CVTSI2SS
	} else if inst.Type().IsFloatingPoint(64) {
		opc = CVTSI2SD
	} else {
		panic("BUG: invalid integer to fp conversion destination type")
	}

	s.emit(opc, src).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectFPToInt(inst *ir.Instruction) {
	operand := inst.Operand(0)
	src := s.asOperand(operand)
	dstBits := s.target.TypeSizeInBits(inst.Type())

	var opc Opcode
	if operand.Type().IsFloatingPoint(32) {
		switch dstBits {
		case 8:
			opc = CVTTSS2SI8
		case 16:
			opc = CVTTSS2SI16
		case 32:
			opc = CVTTSS2SI32
		case 64:
			opc = CVTTSS2SI64
		}
	} else if operand.Type().IsFloatingPoint(64) {
		switch dstBits {
		case 8:
			opc = CVTTSD2SI8
		case 16:
			opc = CVTTSD2SI16
		case 32:
			opc = CVTTSD2SI32
		case 64:
			opc = CVTTSD2SI64
		}
	} else {
		panic("BUG: invalid fp to integer conversion source type")
	}

	s.emit(opc, src).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectPtrToInt(inst *ir.Instruction) {
	src := inst.Operand(0)

	opc := s.moveOp(src.Type())
	if _, isLocal := src.(*ir.Local); isLocal {
		opc = LEA64
	}

	s.emit(opc, s.asOperand(src)).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectIntToPtr(inst *ir.Instruction) {
	s.emit(s.moveOp(inst.Type()), s.asOperand(inst.Operand(0))).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectReinterpret(inst *ir.Instruction) {
	src := inst.Operand(0)

	opc := s.moveOp(src.Type())
	if _, isLocal := src.(*ir.Local); isLocal {
		opc = LEA64
	}

	s.emit(opc, s.asOperand(src)).
		AddReg(s.asRegister(inst), s.subregister(inst.Type()), true, false, false, false)
}

func (s *Selector) selectComparison(inst *ir.Instruction) {
	if inst.NumUses() == 1 {
		// If the only user of this comparison is a conditional branch, defer
		// selection to the branch so the flags can feed a direct Jcc with no
		// intervening SETcc.
		if user := inst.Uses()[0]; user.IsBranchIf() {
			s.defer_(inst)
			return
		}
	}

	setcc := setccOp(inst.Opcode())
	cmpOpc := s.cmpOp(inst.Operand(0).Type())

	lhs := s.asOperand(inst.Operand(0))
	rhs := s.asOperand(inst.Operand(1))

	if rhs.IsImm() {
		lhs, rhs = rhs, lhs
	} else {
		setcc = flipSetcc(setcc)
	}

	s.emit(cmpOpc, lhs, rhs)
	s.emit(setcc).AddReg(s.asRegister(inst), 1, true, false, false, false)
}

// Run performs instruction selection over the whole function.
func (s *Selector) Run() {
	fn := s.fn.Fn()
	stack := s.fn.StackInfo()

	// Reserve stack space for every local of the function.
	stackOff := int32(0)
	for index, local := range fn.Locals() {
		size := s.target.TypeSize(local.AllocatedType())
		stack.Entries = append(stack.Entries, mach.StackEntry{
			Offset: stackOff,
			Size:   size,
			Align:  s.target.TypeAlign(local.AllocatedType()),
			Local:  local,
		})
		stackOff += int32(size)
		s.locals[local] = uint32(index)
	}

	for _, mbb := range s.fn.Blocks() {
		s.insert = mbb

		for _, inst := range mbb.Origin().Insts() {
			s.selectInst(inst)
		}
	}
}

func (s *Selector) selectInst(inst *ir.Instruction) {
	switch inst.Opcode() {
	case ir.OpcodeNop:
		s.emit(NOP)
	case ir.OpcodeJump:
		s.emit(JMP, s.asOperand(inst.Operand(0)))
	case ir.OpcodeAbort:
		s.emit(UD2)
	case ir.OpcodeUnreachable:
		// Nothing to emit.
	case ir.OpcodeConstant:
		s.selectConstant(inst)
	case ir.OpcodeString:
		s.selectStringConstant(inst)
	case ir.OpcodeLoad, ir.OpcodeStore:
		s.selectLoadStore(inst)
	case ir.OpcodeAccessPtr:
		s.selectAccessPtr(inst)
	case ir.OpcodeSelect:
		s.selectSelect(inst)
	case ir.OpcodeBranchIf:
		s.selectBranchIf(inst)
	case ir.OpcodePhi:
		s.selectPhi(inst)
	case ir.OpcodeReturn:
		s.selectReturn(inst)
	case ir.OpcodeCall:
		s.selectCall(inst)
	case ir.OpcodeIAdd, ir.OpcodeFAdd:
		s.selectAdd(inst)
	case ir.OpcodeISub, ir.OpcodeFSub:
		s.selectSub(inst)
	case ir.OpcodeSMul, ir.OpcodeUMul:
		s.selectIMul(inst)
	case ir.OpcodeSDiv, ir.OpcodeUDiv, ir.OpcodeSRem, ir.OpcodeURem:
		s.selectIDivIRem(inst)
	case ir.OpcodeFMul, ir.OpcodeFDiv:
		s.selectFMulFDiv(inst)
	case ir.OpcodeAnd, ir.OpcodeOr, ir.OpcodeXor:
		s.selectBitOp(inst)
	case ir.OpcodeShl, ir.OpcodeShr, ir.OpcodeSar:
		s.selectShift(inst)
	case ir.OpcodeNot:
		s.selectNot(inst)
	case ir.OpcodeINeg, ir.OpcodeFNeg:
		s.selectNeg(inst)
	case ir.OpcodeSExt, ir.OpcodeZExt, ir.OpcodeFExt:
		s.selectExt(inst)
	case ir.OpcodeITrunc, ir.OpcodeFTrunc:
		s.selectTrunc(inst)
	case ir.OpcodeSI2FP, ir.OpcodeUI2FP:
		s.selectIntToFP(inst)
	case ir.OpcodeFP2SI, ir.OpcodeFP2UI:
		s.selectFPToInt(inst)
	case ir.OpcodeP2I:
		s.selectPtrToInt(inst)
	case ir.OpcodeI2P:
		s.selectIntToPtr(inst)
	case ir.OpcodeReinterpret:
		s.selectReinterpret(inst)
	default:
		if inst.IsComparison() {
			s.selectComparison(inst)
			return
		}
		s.diags.Error("unsupported opcode for x64: "+inst.Opcode().String(), diag.SourceSpan{})
	}
}
