package ir

import (
	"fmt"
	"strings"
)

// CFG is one lowered translation unit: the IR type pool, the module globals
// and the function list, in declaration order. The compilation target is
// threaded through the passes that need layout information rather than held
// here.
type CFG struct {
	file  string
	types typePool

	globalOrder []*Global
	globals     map[string]*Global

	fnOrder []*Function
	fns     map[string]*Function
}

// NewCFG returns an empty graph for the named input file.
func NewCFG(file string) *CFG {
	return &CFG{
		file:    file,
		types:   newTypePool(),
		globals: make(map[string]*Global),
		fns:     make(map[string]*Function),
	}
}

// File returns the input file this graph was lowered from.
func (g *CFG) File() string { return g.file }

// NewGlobal creates a module-level variable. Its value type is a pointer to
// the initializer type.
func (g *CFG) NewGlobal(name string, valueType Type, linkage Linkage, readOnly bool) *Global {
	if _, ok := g.globals[name]; ok {
		panic(fmt.Sprintf("BUG: global '%s' created twice", name))
	}
	gl := &Global{
		name:     name,
		typ:      g.PointerTo(valueType),
		linkage:  linkage,
		readOnly: readOnly,
	}
	g.globalOrder = append(g.globalOrder, gl)
	g.globals[name] = gl
	return gl
}

// Global returns the named global, or nil.
func (g *CFG) Global(name string) *Global { return g.globals[name] }

// Globals returns the globals in declaration order.
func (g *CFG) Globals() []*Global { return g.globalOrder }

// addFunction registers a function shell created by NewFunction.
func (g *CFG) addFunction(fn *Function) {
	if _, ok := g.fns[fn.name]; ok {
		panic(fmt.Sprintf("BUG: function '%s' created twice", fn.name))
	}
	g.fnOrder = append(g.fnOrder, fn)
	g.fns[fn.name] = fn
}

// Function returns the named function, or nil.
func (g *CFG) Function(name string) *Function { return g.fns[name] }

// Functions returns the functions in declaration order.
func (g *CFG) Functions() []*Function { return g.fnOrder }

// Format returns the debugging form of the whole graph.
func (g *CFG) Format() string {
	var str strings.Builder
	for _, gl := range g.globalOrder {
		fmt.Fprintf(&str, "global @%s: %s", gl.Name(), gl.ValueType())
		if gl.Init() != nil {
			fmt.Fprintf(&str, " = %s", FormatValue(gl.Init()))
		}
		str.WriteByte('\n')
	}
	for _, fn := range g.fnOrder {
		str.WriteByte('\n')
		str.WriteString(fn.Format())
	}
	return str.String()
}
