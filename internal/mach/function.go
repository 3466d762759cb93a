package mach

import (
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/target"
)

// BasicBlock is a machine basic block: the instructions selected for one IR
// block, in emission order.
type BasicBlock struct {
	position uint32
	origin   *ir.BasicBlock
	insts    []Instruction
}

// Position returns the block's index in the function layout.
func (b *BasicBlock) Position() uint32 { return b.position }

// Origin returns the IR block this machine block mirrors.
func (b *BasicBlock) Origin() *ir.BasicBlock { return b.origin }

// Insts returns the instruction slice.
func (b *BasicBlock) Insts() []Instruction { return b.insts }

// SetInsts replaces the instruction slice; passes that rewrite a block in
// place use this.
func (b *BasicBlock) SetInsts(insts []Instruction) { b.insts = insts }

// Append places an instruction at the end of the block.
func (b *BasicBlock) Append(inst Instruction) *Instruction {
	b.insts = append(b.insts, inst)
	return &b.insts[len(b.insts)-1]
}

// StackEntry reserves frame space for one local or spill slot.
type StackEntry struct {
	// Offset of this entry from the start of the frame area.
	Offset int32

	// Size in bytes this entry reserves.
	Size uint32

	// Align is the desired alignment of this entry.
	Align uint32

	// Local that defines this entry; nil for spill slots created after
	// instruction selection.
	Local *ir.Local
}

// StackInfo describes the frame of a machine function.
type StackInfo struct {
	Entries []StackEntry
}

// NumEntries returns the entry count.
func (s *StackInfo) NumEntries() int { return len(s.Entries) }

// Size returns the frame size in bytes, without final alignment.
func (s *StackInfo) Size() uint32 {
	if len(s.Entries) == 0 {
		return 0
	}
	last := s.Entries[len(s.Entries)-1]
	return uint32(last.Offset) + last.Size
}

// Alignment returns the frame size rounded up to the greater of the largest
// entry alignment and 16 bytes, as the prologue's stack adjustment needs.
func (s *StackInfo) Alignment() uint32 {
	maxAlign := uint32(1)
	for _, entry := range s.Entries {
		if entry.Align > maxAlign {
			maxAlign = entry.Align
		}
	}

	align := uint32(16)
	if maxAlign > align {
		align = maxAlign
	}

	size := s.Size()
	frame := align
	for frame < size {
		frame += align
	}
	return frame
}

// ConstantPoolEntry is one read-only constant referenced by index.
type ConstantPoolEntry struct {
	Constant ir.Constant
	Align    uint32
}

// ConstantPool collects the float and string constants of one function.
type ConstantPool struct {
	Entries []ConstantPoolEntry
}

// NumEntries returns the entry count.
func (p *ConstantPool) NumEntries() int { return len(p.Entries) }

// GetOrCreate returns the index of the pool entry for c, adding one if the
// exact constant is not pooled yet.
func (p *ConstantPool) GetOrCreate(c ir.Constant, align uint32) uint32 {
	for i, entry := range p.Entries {
		if entry.Constant == c {
			return uint32(i)
		}
	}
	p.Entries = append(p.Entries, ConstantPoolEntry{Constant: c, Align: align})
	return uint32(len(p.Entries) - 1)
}

// Function is the machine form of one IR function.
type Function struct {
	fn     *ir.Function
	target *target.Target

	blocks []*BasicBlock

	stack StackInfo
	regs  RegisterInfo
	pool  ConstantPool
}

// NewFunction returns a machine function mirroring fn's block layout.
func NewFunction(fn *ir.Function, tgt *target.Target) *Function {
	mf := &Function{fn: fn, target: tgt, regs: NewRegisterInfo()}
	for i, block := range fn.Blocks() {
		mf.blocks = append(mf.blocks, &BasicBlock{
			position: uint32(i),
			origin:   block,
		})
	}
	return mf
}

// Fn returns the IR function.
func (f *Function) Fn() *ir.Function { return f.fn }

// Name returns the function's symbol name.
func (f *Function) Name() string { return f.fn.Name() }

// Target returns the compilation target.
func (f *Function) Target() *target.Target { return f.target }

// Blocks returns the machine blocks in layout order.
func (f *Function) Blocks() []*BasicBlock { return f.blocks }

// At returns the machine block mirroring the IR block with the given
// number, or nil.
func (f *Function) At(number uint32) *BasicBlock {
	for _, b := range f.blocks {
		if b.origin != nil && b.origin.Number() == number {
			return b
		}
	}
	return nil
}

// StackInfo returns the frame description.
func (f *Function) StackInfo() *StackInfo { return &f.stack }

// RegisterInfo returns the virtual register table.
func (f *Function) RegisterInfo() *RegisterInfo { return &f.regs }

// ConstantPool returns the function's read-only constant pool.
func (f *Function) ConstantPool() *ConstantPool { return &f.pool }

// Object is the machine form of one translation unit: every function of the
// CFG after selection, in declaration order.
type Object struct {
	graph  *ir.CFG
	target *target.Target
	fns    []*Function
}

// NewObject returns an empty object for the graph.
func NewObject(graph *ir.CFG, tgt *target.Target) *Object {
	return &Object{graph: graph, target: tgt}
}

// Graph returns the IR graph.
func (o *Object) Graph() *ir.CFG { return o.graph }

// Target returns the compilation target.
func (o *Object) Target() *target.Target { return o.target }

// AddFunction appends a selected function.
func (o *Object) AddFunction(fn *Function) { o.fns = append(o.fns, fn) }

// Functions returns the machine functions in declaration order.
func (o *Object) Functions() []*Function { return o.fns }
