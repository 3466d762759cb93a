package ir

// TrivialDCE removes value-producing instructions whose results have no
// uses and whose execution has no side effects. It iterates to a fixed
// point, so running it twice has the same effect as running it once.
func TrivialDCE(fn *Function) {
	for {
		removed := false
		for _, block := range fn.Blocks() {
			kept := block.insts[:0]
			for _, inst := range block.insts {
				if inst.result != 0 && len(inst.uses) == 0 && !inst.HasSideEffects() {
					detachUses(inst)
					removed = true
					continue
				}
				kept = append(kept, inst)
			}
			block.insts = kept
		}
		if !removed {
			return
		}
	}
}

// detachUses unlinks inst from the use lists of its operand definitions.
func detachUses(inst *Instruction) {
	for _, operand := range inst.operands {
		if phi, ok := operand.(*PhiOperand); ok {
			operand = phi.value
		}
		def, ok := operand.(*Instruction)
		if !ok {
			continue
		}
		for i, use := range def.uses {
			if use == inst {
				def.uses = append(def.uses[:i], def.uses[i+1:]...)
				break
			}
		}
	}
}
