// Package lower walks an analyzed translation unit and feeds the IR builder,
// producing a CFG. Lowering is two-phase: a declare phase emits shells for
// every function, global and struct, and a define phase fills bodies.
package lower

import (
	"github.com/nwmarino/lovelace/internal/ast"
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/ir"
	"github.com/nwmarino/lovelace/internal/target"
	"github.com/nwmarino/lovelace/internal/types"
)

// phase distinguishes the two passes over the unit.
type phase uint8

const (
	phaseDeclare phase = iota
	phaseDefine
)

// Lowerer lowers one translation unit into a CFG.
type Lowerer struct {
	unit    *ast.TranslationUnit
	graph   *ir.CFG
	builder *ir.Builder
	target  *target.Target
	diags   *diag.Diagnostics

	phase phase

	// fn and astFn are the function currently being defined.
	fn    *ir.Function
	astFn *ast.FunctionDecl

	// locals maps variable and parameter declarations to their stack
	// slots. Keying by declaration keeps shadowed names distinct.
	locals map[ast.ValueDecl]*ir.Local

	// condition and merge are the scoped loop state: break jumps to merge,
	// continue jumps to condition.
	condition *ir.BasicBlock
	merge     *ir.BasicBlock
}

// New returns a lowerer over the unit.
func New(unit *ast.TranslationUnit, tgt *target.Target, diags *diag.Diagnostics) *Lowerer {
	graph := ir.NewCFG(unit.File)
	return &Lowerer{
		unit:    unit,
		graph:   graph,
		builder: ir.NewBuilder(graph),
		target:  tgt,
		diags:   diags,
	}
}

// Run lowers the whole unit and returns the graph.
func (l *Lowerer) Run() *ir.CFG {
	l.phase = phaseDeclare
	for _, decl := range l.unit.Decls {
		l.lowerDecl(decl)
	}

	l.phase = phaseDefine
	for _, decl := range l.unit.Decls {
		l.lowerDecl(decl)
	}
	return l.graph
}

// lowerType maps a source type use onto the IR type system. Void maps to
// nil, enums map to their underlying integer, aliases and named refs are
// looked through.
func (l *Lowerer) lowerType(use types.Use) ir.Type {
	switch ty := types.Unwrap(use.Type).(type) {
	case *types.BuiltinType:
		switch ty.Kind() {
		case types.Void:
			return nil
		case types.Bool:
			return l.graph.I1()
		case types.Char, types.Int8, types.UInt8:
			return l.graph.I8()
		case types.Int16, types.UInt16:
			return l.graph.I16()
		case types.Int32, types.UInt32:
			return l.graph.I32()
		case types.Int64, types.UInt64:
			return l.graph.I64()
		case types.Float32:
			return l.graph.F32()
		case types.Float64, types.Float128:
			return l.graph.F64()
		}
		panic("BUG: unrecognized builtin kind")

	case *types.ArrayType:
		return l.graph.ArrayOf(l.lowerType(ty.Element()), ty.Size())

	case *types.PointerType:
		pointee := l.lowerType(ty.Pointee())
		if pointee == nil {
			// void pointers carry no pointee shape of their own.
			pointee = l.graph.I8()
		}
		return l.graph.PointerTo(pointee)

	case *types.StructType:
		return l.graph.StructTypeOf(ty.Name())

	case *types.EnumType:
		return l.lowerType(types.MakeUse(ty.Underlying()))

	case *types.FunctionType:
		params := make([]ir.Type, ty.NumParams())
		for i := range params {
			params[i] = l.lowerType(ty.Param(i))
		}
		return l.graph.FunctionTypeOf(l.lowerType(ty.Return()), params)

	default:
		panic("BUG: source type has no IR equivalent: " + use.String())
	}
}

// injectBool reduces a value to i1 by comparing against the zero of its
// type, unless it already is i1.
func (l *Lowerer) injectBool(value ir.Value) ir.Value {
	ty := value.Type()
	switch {
	case ty.IsInteger(1):
		return value
	case ty.IsInteger():
		return l.builder.BuildCmpINE(value, ir.ConstantZero(ty))
	case ty.IsFloatingPoint():
		return l.builder.BuildCmpONE(value, ir.NewConstantFP(ty, 0))
	case ty.IsPointer():
		return l.builder.BuildCmpINE(value, ir.NewConstantNull(ty))
	}
	panic("BUG: value type is incompatible as a boolean")
}

func (l *Lowerer) lowerDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		l.lowerFunction(d)
	case *ast.VariableDecl:
		l.lowerGlobal(d)
	case *ast.StructDecl:
		l.lowerStruct(d)
	case *ast.AliasDecl, *ast.EnumDecl, *ast.LoadDecl:
		// Nothing to lower; aliases and enums fold into their underlying
		// types and load declarations carry no code.
	default:
		panic("BUG: unexpected top-level declaration")
	}
}

func (l *Lowerer) lowerStruct(decl *ast.StructDecl) {
	if l.phase == phaseDeclare {
		// Shell now; the body is filled in the define phase so fields can
		// reference structs declared later.
		l.graph.StructTypeOf(decl.Name())
		return
	}

	st := l.graph.StructTypeOf(decl.Name())
	fields := make([]ir.Type, len(decl.Fields))
	for i, field := range decl.Fields {
		fields[i] = l.lowerType(field.Type())
	}
	st.SetFields(fields)
}

func (l *Lowerer) lowerGlobal(decl *ast.VariableDecl) {
	if l.phase == phaseDeclare {
		l.graph.NewGlobal(decl.Name(), l.lowerType(decl.Type()),
			ir.LinkageInternal, !decl.Type().IsMut())
		return
	}

	global := l.graph.Global(decl.Name())
	if decl.Init == nil {
		global.SetInit(ir.ConstantZero(global.ValueType()))
		return
	}

	init := l.foldConstant(decl.Init)
	if init == nil {
		l.diags.Error("global '"+decl.Name()+"' requires a constant initializer", decl.Span())
		return
	}
	global.SetInit(init)
}

func (l *Lowerer) lowerFunction(decl *ast.FunctionDecl) {
	if l.phase == phaseDeclare {
		linkage := ir.LinkageInternal
		if decl.IsMain() || decl.Extern || !decl.HasBody() {
			linkage = ir.LinkageExternal
		}

		sig := decl.Signature()
		argTypes := make([]ir.Type, sig.NumParams())
		args := make([]*ir.Argument, sig.NumParams())
		for i := 0; i < sig.NumParams(); i++ {
			argTypes[i] = l.lowerType(sig.Param(i))
			args[i] = ir.NewArgument(argTypes[i], decl.Params[i].Name(), i)
		}

		typ := l.graph.FunctionTypeOf(l.lowerType(sig.Return()), argTypes)
		ir.NewFunction(l.graph, linkage, typ, decl.Name(), args)
		return
	}

	fn := l.graph.Function(decl.Name())
	if fn == nil {
		panic("BUG: function shell missing for " + decl.Name())
	}
	if !decl.HasBody() {
		return
	}

	l.fn = fn
	l.astFn = decl
	l.locals = make(map[ast.ValueDecl]*ir.Local)

	entry := fn.NewBlock()
	fn.PushBack(entry)
	l.builder.SetInsert(entry)

	// Spill every argument into a named local so parameters are
	// addressable like any other variable.
	for i, arg := range fn.Args() {
		local := fn.NewLocal(l.graph, arg.Type(),
			l.target.TypeAlign(arg.Type()), decl.Params[i].Name())
		l.locals[decl.Params[i]] = local
		l.builder.BuildStore(arg, local)
	}

	l.lowerStmt(decl.Body)

	if !l.builder.Insert().Terminates() {
		if decl.ReturnType().Type.IsVoid() {
			l.builder.BuildRetVoid()
		} else {
			l.diags.Error("function '"+decl.Name()+"' does not always return", decl.Span())
		}
	}

	l.fn = nil
	l.astFn = nil
	l.builder.ClearInsert()
}
