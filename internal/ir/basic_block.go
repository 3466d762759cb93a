package ir

import (
	"fmt"
	"strings"
)

// BasicBlock is a maximal straight-line instruction sequence ending in
// exactly one terminator. Blocks own their instructions; predecessor and
// successor links are non-owning and kept mutually consistent by the
// builder.
type BasicBlock struct {
	number uint32
	parent *Function

	insts []*Instruction
	preds []*BasicBlock
	succs []*BasicBlock
}

// Number returns the block's position-independent id within its function.
func (b *BasicBlock) Number() uint32 { return b.number }

// Name returns the debugging label of this block, e.g. bb0, bb1, ...
func (b *BasicBlock) Name() string { return fmt.Sprintf("bb%d", b.number) }

// Parent returns the owning function.
func (b *BasicBlock) Parent() *Function { return b.parent }

// Insts returns the instruction list.
func (b *BasicBlock) Insts() []*Instruction { return b.insts }

// Empty reports whether the block has no instructions.
func (b *BasicBlock) Empty() bool { return len(b.insts) == 0 }

// Front returns the first instruction, or nil.
func (b *BasicBlock) Front() *Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	return b.insts[0]
}

// Back returns the last instruction, or nil.
func (b *BasicBlock) Back() *Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	return b.insts[len(b.insts)-1]
}

// Terminates reports whether the block already ends in a terminator.
func (b *BasicBlock) Terminates() bool {
	back := b.Back()
	return back != nil && back.IsTerminator()
}

// Terminator returns the terminator instruction, or nil.
func (b *BasicBlock) Terminator() *Instruction {
	if b.Terminates() {
		return b.Back()
	}
	return nil
}

// Preds returns the predecessor blocks.
func (b *BasicBlock) Preds() []*BasicBlock { return b.preds }

// Succs returns the successor blocks.
func (b *BasicBlock) Succs() []*BasicBlock { return b.succs }

// HasPreds reports whether any predecessor links to this block.
func (b *BasicBlock) HasPreds() bool { return len(b.preds) > 0 }

// addEdge records the CFG edge b -> succ on both ends.
func (b *BasicBlock) addEdge(succ *BasicBlock) {
	b.succs = append(b.succs, succ)
	succ.preds = append(succ.preds, b)
}

// append places inst at the end of the block.
func (b *BasicBlock) append(inst *Instruction) {
	inst.parent = b
	b.insts = append(b.insts, inst)
}

// prepend places inst at the start of the block.
func (b *BasicBlock) prepend(inst *Instruction) {
	inst.parent = b
	b.insts = append([]*Instruction{inst}, b.insts...)
}

// Format returns the debugging form of this block.
func (b *BasicBlock) Format() string {
	var str strings.Builder
	str.WriteString(b.Name())
	if len(b.preds) > 0 {
		names := make([]string, len(b.preds))
		for i, p := range b.preds {
			names[i] = p.Name()
		}
		fmt.Fprintf(&str, ": <-- (%s)", strings.Join(names, ", "))
	} else {
		str.WriteByte(':')
	}
	str.WriteByte('\n')
	for _, inst := range b.insts {
		str.WriteByte('\t')
		str.WriteString(inst.Format())
		str.WriteByte('\n')
	}
	return str.String()
}

// String implements fmt.Stringer for debugging purpose only.
func (b *BasicBlock) String() string { return b.Name() }
