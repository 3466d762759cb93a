package ir

import (
	"fmt"
	"strconv"
)

// Value is implemented by everything that can appear as an instruction
// operand. All values carry a type.
type Value interface {
	Type() Type
}

// Linkage describes symbol visibility.
type Linkage uint8

const (
	// LinkageInternal symbols are local to the object.
	LinkageInternal Linkage = iota
	// LinkageExternal symbols are visible to the linker.
	LinkageExternal
)

// Constant is implemented by constant values usable as global initializers
// and constant pool entries.
type Constant interface {
	Value
	constant()
}

// ConstantInt is an integer constant.
type ConstantInt struct {
	typ   Type
	value int64
}

// NewConstantInt returns an integer constant of the given type.
func NewConstantInt(typ Type, value int64) *ConstantInt {
	return &ConstantInt{typ: typ, value: value}
}

// ConstantZero returns the zero value of an integer type.
func ConstantZero(typ Type) *ConstantInt { return &ConstantInt{typ: typ} }

func (c *ConstantInt) Type() Type   { return c.typ }
func (c *ConstantInt) Value() int64 { return c.value }
func (c *ConstantInt) constant()    {}

// String implements fmt.Stringer.
func (c *ConstantInt) String() string { return strconv.FormatInt(c.value, 10) }

// ConstantFP is a floating point constant.
type ConstantFP struct {
	typ   Type
	value float64
}

// NewConstantFP returns a float constant of the given type.
func NewConstantFP(typ Type, value float64) *ConstantFP {
	return &ConstantFP{typ: typ, value: value}
}

func (c *ConstantFP) Type() Type     { return c.typ }
func (c *ConstantFP) Value() float64 { return c.value }
func (c *ConstantFP) constant()      {}

// String implements fmt.Stringer.
func (c *ConstantFP) String() string { return strconv.FormatFloat(c.value, 'g', -1, 64) }

// ConstantNull is a typed null pointer constant.
type ConstantNull struct {
	typ Type
}

// NewConstantNull returns a null constant of the given pointer type.
func NewConstantNull(typ Type) *ConstantNull { return &ConstantNull{typ: typ} }

func (c *ConstantNull) Type() Type { return c.typ }
func (c *ConstantNull) constant()  {}

// String implements fmt.Stringer.
func (c *ConstantNull) String() string { return "null" }

// ConstantString is a string constant destined for a read-only section.
type ConstantString struct {
	typ   Type
	value string
}

// NewConstantString returns a string constant.
func NewConstantString(typ Type, value string) *ConstantString {
	return &ConstantString{typ: typ, value: value}
}

func (c *ConstantString) Type() Type    { return c.typ }
func (c *ConstantString) Value() string { return c.value }
func (c *ConstantString) constant()     {}

// String implements fmt.Stringer.
func (c *ConstantString) String() string { return strconv.Quote(c.value) }

// BlockAddress is a constant reference to a basic block.
type BlockAddress struct {
	typ   Type
	block *BasicBlock
}

// NewBlockAddress returns a block address constant.
func NewBlockAddress(typ Type, block *BasicBlock) *BlockAddress {
	return &BlockAddress{typ: typ, block: block}
}

func (c *BlockAddress) Type() Type         { return c.typ }
func (c *BlockAddress) Block() *BasicBlock { return c.block }
func (c *BlockAddress) constant()          {}

// Global is a module-level variable with a constant initializer.
type Global struct {
	name     string
	typ      Type // pointer to the value type
	linkage  Linkage
	init     Constant
	readOnly bool
}

func (g *Global) Name() string      { return g.name }
func (g *Global) Type() Type        { return g.typ }
func (g *Global) Linkage() Linkage  { return g.linkage }
func (g *Global) ReadOnly() bool    { return g.readOnly }
func (g *Global) Init() Constant    { return g.init }
func (g *Global) SetInit(c Constant) { g.init = c }

// ValueType returns the pointee type of this global.
func (g *Global) ValueType() Type { return g.typ.(*PointerType).Pointee() }

// Argument is a formal parameter of a function.
type Argument struct {
	typ    Type
	name   string
	number int
}

// NewArgument returns an argument placeholder.
func NewArgument(typ Type, name string, number int) *Argument {
	return &Argument{typ: typ, name: name, number: number}
}

func (a *Argument) Type() Type   { return a.typ }
func (a *Argument) Name() string { return a.name }
func (a *Argument) Number() int  { return a.number }

// String implements fmt.Stringer.
func (a *Argument) String() string { return "%" + a.name }

// Local is a stack slot allocated in a function frame. Its value type is a
// pointer to the allocated type.
type Local struct {
	typ       Type // pointer to the allocated type
	allocated Type
	align     uint32
	name      string
}

func (l *Local) Type() Type          { return l.typ }
func (l *Local) AllocatedType() Type { return l.allocated }
func (l *Local) Align() uint32       { return l.align }
func (l *Local) Name() string        { return l.name }

// String implements fmt.Stringer.
func (l *Local) String() string { return "$" + l.name }

// PhiOperand pairs an incoming value with its predecessor block in a phi
// instruction.
type PhiOperand struct {
	pred  *BasicBlock
	value Value
}

// NewPhiOperand returns a phi operand.
func NewPhiOperand(pred *BasicBlock, value Value) *PhiOperand {
	return &PhiOperand{pred: pred, value: value}
}

func (p *PhiOperand) Type() Type         { return p.value.Type() }
func (p *PhiOperand) Pred() *BasicBlock  { return p.pred }
func (p *PhiOperand) Value() Value       { return p.value }

// InlineAsm is a template of target instructions with argument constraints,
// lowered untouched until instruction selection.
type InlineAsm struct {
	template    string
	constraints []string
}

// NewInlineAsm returns an inline assembly value.
func NewInlineAsm(template string, constraints []string) *InlineAsm {
	return &InlineAsm{template: template, constraints: constraints}
}

func (a *InlineAsm) Type() Type            { return nil }
func (a *InlineAsm) Template() string      { return a.template }
func (a *InlineAsm) Constraints() []string { return a.constraints }

// FormatValue returns the debugging form of an operand value.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case *ConstantInt:
		return val.String()
	case *ConstantFP:
		return val.String()
	case *ConstantNull:
		return "null"
	case *ConstantString:
		return val.String()
	case *BlockAddress:
		return val.block.Name()
	case *Global:
		return "@" + val.name
	case *Function:
		return "@" + val.name
	case *Argument:
		return val.String()
	case *Local:
		return val.String()
	case *Instruction:
		return fmt.Sprintf("v%d", val.result)
	case *PhiOperand:
		return fmt.Sprintf("[%s, %s]", FormatValue(val.value), val.pred.Name())
	case *InlineAsm:
		return strconv.Quote(val.template)
	default:
		panic("BUG: unrecognized value variant")
	}
}
