package types

import "fmt"

// Context owns every type created for one translation unit. Pools guarantee
// structural uniqueness, so identity comparison on types handed out by the
// same context is pointer equality.
type Context struct {
	builtins map[BuiltinKind]*BuiltinType
	arrays   map[Use]map[uint32]*ArrayType
	pointers map[Use]*PointerType
	aliases  map[string]*AliasType
	structs  map[string]*StructType
	enums    map[string]*EnumType
	deferred map[string]*NamedRef

	// Function signature types are pooled as a bag; no dedup is required.
	functions []*FunctionType
}

// NewContext returns a fresh context with every builtin eagerly created.
func NewContext() *Context {
	ctx := &Context{
		builtins: make(map[BuiltinKind]*BuiltinType),
		arrays:   make(map[Use]map[uint32]*ArrayType),
		pointers: make(map[Use]*PointerType),
		aliases:  make(map[string]*AliasType),
		structs:  make(map[string]*StructType),
		enums:    make(map[string]*EnumType),
		deferred: make(map[string]*NamedRef),
	}
	for k := Void; k <= Float128; k++ {
		ctx.builtins[k] = &BuiltinType{kind: k}
	}
	return ctx
}

// Builtin returns the unique instance of the builtin kind.
func (ctx *Context) Builtin(kind BuiltinKind) *BuiltinType {
	t, ok := ctx.builtins[kind]
	if !ok {
		panic("BUG: unrecognized builtin kind")
	}
	return t
}

// Array returns the unique array type over (element, size).
func (ctx *Context) Array(element Use, size uint32) *ArrayType {
	bySize, ok := ctx.arrays[element]
	if !ok {
		bySize = make(map[uint32]*ArrayType)
		ctx.arrays[element] = bySize
	}
	if t, ok := bySize[size]; ok {
		return t
	}
	t := &ArrayType{element: element, size: size}
	bySize[size] = t
	return t
}

// Pointer returns the unique pointer type over pointee.
func (ctx *Context) Pointer(pointee Use) *PointerType {
	if t, ok := ctx.pointers[pointee]; ok {
		return t
	}
	t := &PointerType{pointee: pointee}
	ctx.pointers[pointee] = t
	return t
}

// Function creates a new function signature type. Signatures are pooled as a
// bag without deduplication.
func (ctx *Context) Function(ret Use, params []Use) *FunctionType {
	t := &FunctionType{ret: ret, params: params}
	ctx.functions = append(ctx.functions, t)
	return t
}

// CreateAlias creates the named alias type. Creating the same name twice is
// a usage error.
func (ctx *Context) CreateAlias(name string) *AliasType {
	if _, ok := ctx.aliases[name]; ok {
		panic(fmt.Sprintf("BUG: alias type '%s' created twice", name))
	}
	t := &AliasType{name: name}
	ctx.aliases[name] = t
	return t
}

// Alias looks up a previously created alias type by name.
func (ctx *Context) Alias(name string) *AliasType { return ctx.aliases[name] }

// CreateStruct creates the named struct type as an empty shell.
func (ctx *Context) CreateStruct(name string) *StructType {
	if _, ok := ctx.structs[name]; ok {
		panic(fmt.Sprintf("BUG: struct type '%s' created twice", name))
	}
	t := &StructType{name: name}
	ctx.structs[name] = t
	return t
}

// Struct looks up a previously created struct type by name.
func (ctx *Context) Struct(name string) *StructType { return ctx.structs[name] }

// CreateEnum creates the named enum type.
func (ctx *Context) CreateEnum(name string) *EnumType {
	if _, ok := ctx.enums[name]; ok {
		panic(fmt.Sprintf("BUG: enum type '%s' created twice", name))
	}
	t := &EnumType{name: name}
	ctx.enums[name] = t
	return t
}

// Enum looks up a previously created enum type by name.
func (ctx *Context) Enum(name string) *EnumType { return ctx.enums[name] }

// Deferred returns the named reference for name, creating it on first use.
// The parser reaches for this when an identifier appears in type position
// before its definition has been seen.
func (ctx *Context) Deferred(name string) *NamedRef {
	if t, ok := ctx.deferred[name]; ok {
		return t
	}
	t := &NamedRef{name: name}
	ctx.deferred[name] = t
	return t
}

// Lookup resolves a type name against the named pools, named refs excluded.
func (ctx *Context) Lookup(name string) Type {
	if t, ok := ctx.aliases[name]; ok {
		return t
	}
	if t, ok := ctx.structs[name]; ok {
		return t
	}
	if t, ok := ctx.enums[name]; ok {
		return t
	}
	return nil
}

// ResolveDeferred binds every deferred named reference against the named
// pools. It returns the names that could not be resolved; all refs must be
// resolved before lowering runs.
func (ctx *Context) ResolveDeferred() []string {
	var unresolved []string
	for name, ref := range ctx.deferred {
		if ref.Resolved() {
			continue
		}
		if t := ctx.Lookup(name); t != nil {
			ref.Resolve(t)
		} else {
			unresolved = append(unresolved, name)
		}
	}
	return unresolved
}
