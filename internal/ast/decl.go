package ast

import (
	"github.com/nwmarino/lovelace/internal/diag"
	"github.com/nwmarino/lovelace/internal/types"
)

// Decl is implemented by every declaration node.
type Decl interface {
	Node
	declNode()
}

// NamedDecl is a declaration that introduces a name.
type NamedDecl interface {
	Decl
	Name() string
}

// ValueDecl is a named declaration denoting a typed value.
type ValueDecl interface {
	NamedDecl
	Type() types.Use
}

type baseDecl struct{ baseNode }

func (*baseDecl) declNode() {}

// TranslationUnit is the root of ownership for one input file. It owns the
// type context, the file scope, and every top-level declaration.
type TranslationUnit struct {
	baseDecl
	File    string
	Context *types.Context
	Scope   *Scope
	Loads   []*LoadDecl
	Decls   []Decl
}

// NewTranslationUnit returns an empty unit for the named file.
func NewTranslationUnit(file string) *TranslationUnit {
	return &TranslationUnit{
		File:    file,
		Context: types.NewContext(),
		Scope:   NewScope(nil),
	}
}

// LoadDecl records a 'load' of another input, resolved by the driver.
type LoadDecl struct {
	baseDecl
	Path string
}

// NewLoadDecl returns a load declaration.
func NewLoadDecl(span diag.SourceSpan, path string) *LoadDecl {
	return &LoadDecl{baseDecl: baseDecl{baseNode{span}}, Path: path}
}

// VariableDecl declares a global or local variable.
type VariableDecl struct {
	baseDecl
	name   string
	typ    types.Use
	Init   Expr
	Global bool
}

// NewVariableDecl returns a variable declaration.
func NewVariableDecl(span diag.SourceSpan, name string, typ types.Use, init Expr, global bool) *VariableDecl {
	return &VariableDecl{
		baseDecl: baseDecl{baseNode{span}},
		name:     name,
		typ:      typ,
		Init:     init,
		Global:   global,
	}
}

func (d *VariableDecl) Name() string     { return d.name }
func (d *VariableDecl) Type() types.Use  { return d.typ }
func (d *VariableDecl) SetType(t types.Use) { d.typ = t }

// ParameterDecl declares a function parameter.
type ParameterDecl struct {
	baseDecl
	name  string
	typ   types.Use
	Index int
}

// NewParameterDecl returns a parameter declaration.
func NewParameterDecl(span diag.SourceSpan, name string, typ types.Use, index int) *ParameterDecl {
	return &ParameterDecl{
		baseDecl: baseDecl{baseNode{span}},
		name:     name,
		typ:      typ,
		Index:    index,
	}
}

func (d *ParameterDecl) Name() string    { return d.name }
func (d *ParameterDecl) Type() types.Use { return d.typ }

// FunctionDecl declares a function, optionally with a body.
type FunctionDecl struct {
	baseDecl
	name    string
	typ     types.Use // the signature type
	Params  []*ParameterDecl
	Scope   *Scope
	Body    *BlockStmt
	Extern  bool
}

// NewFunctionDecl returns a function declaration. The signature type is
// filled during analysis.
func NewFunctionDecl(span diag.SourceSpan, name string, params []*ParameterDecl, scope *Scope, body *BlockStmt, extern bool) *FunctionDecl {
	return &FunctionDecl{
		baseDecl: baseDecl{baseNode{span}},
		name:     name,
		Params:   params,
		Scope:    scope,
		Body:     body,
		Extern:   extern,
	}
}

func (d *FunctionDecl) Name() string    { return d.name }
func (d *FunctionDecl) Type() types.Use { return d.typ }

// SetType fills the signature type of this function.
func (d *FunctionDecl) SetType(t types.Use) { d.typ = t }

// Signature returns the function signature type, unwrapped.
func (d *FunctionDecl) Signature() *types.FunctionType {
	sig, ok := types.Unwrap(d.typ.Type).(*types.FunctionType)
	if !ok {
		panic("BUG: function declaration without a signature type")
	}
	return sig
}

// ReturnType returns the declared return type use.
func (d *FunctionDecl) ReturnType() types.Use { return d.Signature().Return() }

// HasBody reports whether this declaration defines the function.
func (d *FunctionDecl) HasBody() bool { return d.Body != nil }

// IsMain reports whether this is the program entry point.
func (d *FunctionDecl) IsMain() bool { return d.name == "main" }

// FieldDecl declares a struct field.
type FieldDecl struct {
	baseDecl
	name  string
	typ   types.Use
	Index int
}

// NewFieldDecl returns a field declaration.
func NewFieldDecl(span diag.SourceSpan, name string, typ types.Use, index int) *FieldDecl {
	return &FieldDecl{
		baseDecl: baseDecl{baseNode{span}},
		name:     name,
		typ:      typ,
		Index:    index,
	}
}

func (d *FieldDecl) Name() string    { return d.name }
func (d *FieldDecl) Type() types.Use { return d.typ }

// VariantDecl declares an enum variant with its resolved constant value.
type VariantDecl struct {
	baseDecl
	name  string
	typ   types.Use
	Value int64
}

// NewVariantDecl returns an enum variant declaration.
func NewVariantDecl(span diag.SourceSpan, name string, typ types.Use, value int64) *VariantDecl {
	return &VariantDecl{
		baseDecl: baseDecl{baseNode{span}},
		name:     name,
		typ:      typ,
		Value:    value,
	}
}

func (d *VariantDecl) Name() string        { return d.name }
func (d *VariantDecl) Type() types.Use     { return d.typ }
func (d *VariantDecl) SetType(t types.Use) { d.typ = t }

// AliasDecl declares a named type alias.
type AliasDecl struct {
	baseDecl
	name       string
	Aliased    types.Use
	DeclaredTy *types.AliasType
}

// NewAliasDecl returns an alias declaration.
func NewAliasDecl(span diag.SourceSpan, name string, aliased types.Use) *AliasDecl {
	return &AliasDecl{baseDecl: baseDecl{baseNode{span}}, name: name, Aliased: aliased}
}

func (d *AliasDecl) Name() string { return d.name }

// StructDecl declares a named structure.
type StructDecl struct {
	baseDecl
	name       string
	Fields     []*FieldDecl
	DeclaredTy *types.StructType
}

// NewStructDecl returns a struct declaration.
func NewStructDecl(span diag.SourceSpan, name string, fields []*FieldDecl) *StructDecl {
	return &StructDecl{baseDecl: baseDecl{baseNode{span}}, name: name, Fields: fields}
}

func (d *StructDecl) Name() string { return d.name }

// Field returns the field with the given name, or nil.
func (d *StructDecl) Field(name string) *FieldDecl {
	for _, f := range d.Fields {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// EnumDecl declares a named enumeration.
type EnumDecl struct {
	baseDecl
	name       string
	Underlying types.Use
	Variants   []*VariantDecl
	DeclaredTy *types.EnumType
}

// NewEnumDecl returns an enum declaration.
func NewEnumDecl(span diag.SourceSpan, name string, underlying types.Use, variants []*VariantDecl) *EnumDecl {
	return &EnumDecl{
		baseDecl:   baseDecl{baseNode{span}},
		name:       name,
		Underlying: underlying,
		Variants:   variants,
	}
}

func (d *EnumDecl) Name() string { return d.name }
