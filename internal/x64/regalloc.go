package x64

import (
	"sort"

	"github.com/nwmarino/lovelace/internal/mach"
)

// LiveRange is the [start, end] instruction interval over which a register
// holds a meaningful value, with its eventual allocation.
type LiveRange struct {
	Reg    mach.Register
	Class  mach.RegisterClass
	Start  uint32
	End    uint32
	Killed bool

	// Alloc is the physical register assigned to this range. Spilled
	// ranges have no allocation and a non-negative SpillSlot instead.
	Alloc     mach.Register
	SpillSlot int32
}

// Overlaps reports whether pos falls within the range.
func (r *LiveRange) Overlaps(pos uint32) bool {
	return r.Start <= pos && pos <= r.End
}

// Crosses reports whether the range is live strictly across pos: opened
// before it and still live after it. Ranges opened by a call's own operands
// do not cross the call.
func (r *LiveRange) Crosses(pos uint32) bool {
	return r.Start < pos && pos < r.End
}

// linearScan numbers every machine instruction globally in block layout
// order and collects live ranges for every register and memory-base operand.
type linearScan struct {
	fn     *mach.Function
	ranges []*LiveRange
}

// updateRange extends the open range for reg or begins a new one at pos.
func (l *linearScan) updateRange(reg mach.Register, cls mach.RegisterClass, pos uint32) *LiveRange {
	for _, r := range l.ranges {
		// Killed ranges are closed for good.
		if r.Killed {
			continue
		}
		if r.Reg == reg {
			r.End = pos
			return r
		}
	}

	r := &LiveRange{
		Reg:       reg,
		Class:     cls,
		Start:     pos,
		End:       pos,
		Alloc:     mach.NoRegister,
		SpillSlot: -1,
	}
	if reg.IsPhysical() {
		// Preassigned: the allocation is the physical register itself.
		r.Alloc = reg
	}
	l.ranges = append(l.ranges, r)
	return r
}

func (l *linearScan) run() {
	position := uint32(0)
	for _, mbb := range l.fn.Blocks() {
		insts := mbb.Insts()
		for i := range insts {
			mi := &insts[i]
			for o := 0; o < mi.NumOperands(); o++ {
				mo := mi.Operand(o)
				if !mo.IsReg() && !mo.IsMem() {
					continue
				}

				var reg mach.Register
				if mo.IsReg() {
					reg = mo.Reg()
				} else {
					reg = mo.MemBase()
				}
				if !reg.Valid() {
					continue
				}

				var cls mach.RegisterClass
				if reg.IsPhysical() {
					cls = GetClass(reg)
				} else {
					cls = l.fn.RegisterInfo().Info(reg).Class
				}

				r := l.updateRange(reg, cls, position)
				if mo.IsReg() && mo.IsKill() {
					r.End = position
					r.Killed = true
				}
			}
			position++
		}
	}
}

// allocator is a classical linear scan over ranges ordered by start
// position with an active set ordered by end position.
type allocator struct {
	fn     *mach.Function
	tregs  mach.TargetRegisters
	ranges []*LiveRange

	active []*LiveRange
}

func (a *allocator) run() {
	sort.SliceStable(a.ranges, func(i, j int) bool {
		return a.ranges[i].Start < a.ranges[j].Start
	})

	for _, r := range a.ranges {
		a.expire(r.Start)

		if r.Reg.IsPhysical() {
			// Preassigned ranges carve their register out of the free pool
			// for their lifetime.
			a.addActive(r)
			continue
		}

		if reg := a.freeRegister(r); reg != mach.NoRegister {
			r.Alloc = reg
			a.addActive(r)
		} else {
			a.spill(r)
		}
	}

	// Write allocations back into the function's register table.
	regi := a.fn.RegisterInfo()
	for _, r := range a.ranges {
		if r.Reg.IsPhysical() {
			continue
		}
		regi.Info(r.Reg).Alloc = r.Alloc
	}
}

// expire drops every active range ending before pos, freeing its register.
func (a *allocator) expire(pos uint32) {
	kept := a.active[:0]
	for _, r := range a.active {
		if r.End >= pos {
			kept = append(kept, r)
		}
	}
	a.active = kept
}

// addActive inserts r into the active set ordered by end position.
func (a *allocator) addActive(r *LiveRange) {
	idx := sort.Search(len(a.active), func(i int) bool {
		return a.active[i].End > r.End
	})
	a.active = append(a.active, nil)
	copy(a.active[idx+1:], a.active[idx:])
	a.active[idx] = r
}

// freeRegister returns an allocatable register for r: not occupied by any
// active range and with no preassigned range of that register anywhere over
// r's lifetime. NoRegister under pressure.
func (a *allocator) freeRegister(r *LiveRange) mach.Register {
	set, ok := a.tregs.Sets[r.Class]
	if !ok {
		panic("BUG: no register set for class " + r.Class.String())
	}

	for _, reg := range set.Regs {
		occupied := false
		for _, active := range a.active {
			if active.Alloc == reg {
				occupied = true
				break
			}
		}
		if !occupied && !a.preassignedOver(reg, r) {
			return reg
		}
	}
	return mach.NoRegister
}

// preassignedOver reports whether a preassigned range of reg intersects r.
func (a *allocator) preassignedOver(reg mach.Register, r *LiveRange) bool {
	for _, other := range a.ranges {
		if other.Reg.IsPhysical() && other.Reg == reg &&
			other.Start <= r.End && r.Start <= other.End {
			return true
		}
	}
	return false
}

// spill assigns a fresh stack slot to the longest-lived conflicting range.
// When an active range outlives the current one, it loses its register to
// the current range and spills instead.
func (a *allocator) spill(r *LiveRange) {
	var victim *LiveRange
	for _, active := range a.active {
		if active.Class != r.Class || active.Reg.IsPhysical() {
			continue
		}
		if victim == nil || active.End > victim.End {
			victim = active
		}
	}

	if victim != nil && victim.End > r.End {
		r.Alloc = victim.Alloc
		victim.Alloc = mach.NoRegister
		a.spillToStack(victim)
		a.removeActive(victim)
		a.addActive(r)
	} else {
		a.spillToStack(r)
	}
}

// spillToStack reserves a frame slot for the range and rewrites every
// reference to its register into a stack operand.
func (a *allocator) spillToStack(r *LiveRange) {
	stack := a.fn.StackInfo()
	offset := int32(stack.Size())
	stack.Entries = append(stack.Entries, mach.StackEntry{
		Offset: offset,
		Size:   8,
		Align:  8,
	})
	slot := uint32(len(stack.Entries) - 1)
	r.SpillSlot = int32(slot)

	for _, mbb := range a.fn.Blocks() {
		insts := mbb.Insts()
		for i := range insts {
			mi := &insts[i]
			for o := 0; o < mi.NumOperands(); o++ {
				mo := mi.Operand(o)
				if mo.IsReg() && mo.Reg() == r.Reg {
					*mo = mach.NewStackOperand(slot)
				}
			}
		}
	}
}

func (a *allocator) removeActive(r *LiveRange) {
	for i, active := range a.active {
		if active == r {
			a.active = append(a.active[:i], a.active[i+1:]...)
			return
		}
	}
}

// callsiteAnalysis inserts caller-save spills around call instructions.
// It runs after allocation, so it sees real physical assignments.
type callsiteAnalysis struct {
	fn     *mach.Function
	ranges []*LiveRange
}

func (c *callsiteAnalysis) run() {
	position := uint32(0)
	for _, mbb := range c.fn.Blocks() {
		old := mbb.Insts()
		insts := make([]mach.Instruction, 0, len(old))

		for i := range old {
			mi := old[i]
			if !IsCallOpcode(Opcode(mi.Opcode())) {
				insts = append(insts, mi)
				position++
				continue
			}

			var save []mach.Register
			for _, r := range c.ranges {
				if r.Crosses(position) && r.Alloc.Valid() && IsCallerSaved(r.Alloc) {
					save = append(save, r.Alloc)
				}
			}

			for _, reg := range save {
				push := mach.NewInstruction(uint32(PUSH64), mach.NewRegOperand(reg, 8, false))
				insts = append(insts, push)
			}

			insts = append(insts, mi)

			for _, reg := range save {
				pop := mach.NewInstruction(uint32(POP64), mach.NewRegOperand(reg, 8, true))
				insts = append(insts, pop)
			}

			position++
		}

		mbb.SetInsts(insts)
	}
}

// RegisterAnalysis runs liveness, linear-scan allocation and caller-save
// insertion over every function of the object.
func RegisterAnalysis(obj *mach.Object) {
	for _, fn := range obj.Functions() {
		AllocateFunction(fn)
	}
}

// AllocateFunction runs the allocation pipeline over one function and
// returns the live ranges it computed.
func AllocateFunction(fn *mach.Function) []*LiveRange {
	scan := linearScan{fn: fn}
	scan.run()

	alloc := allocator{fn: fn, tregs: GetRegisters(), ranges: scan.ranges}
	alloc.run()

	callsites := callsiteAnalysis{fn: fn, ranges: scan.ranges}
	callsites.run()

	return scan.ranges
}
