// Package types implements the source-level type system: a closed set of
// type variants interned by a Context so that identity comparison on types is
// pointer equality.
package types

import (
	"fmt"
	"strings"
)

// BuiltinKind enumerates the builtin types of the language.
type BuiltinKind uint32

const (
	Void BuiltinKind = iota
	Bool
	Char
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Float128
)

// String implements fmt.Stringer.
func (k BuiltinKind) String() string {
	switch k {
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Int8:
		return "s8"
	case Int16:
		return "s16"
	case Int32:
		return "s32"
	case Int64:
		return "s64"
	case UInt8:
		return "u8"
	case UInt16:
		return "u16"
	case UInt32:
		return "u32"
	case UInt64:
		return "u64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Float128:
		return "f128"
	default:
		panic("BUG: unrecognized builtin kind")
	}
}

// Type is the interface implemented by every type variant. Interned types
// compare by identity; Compare looks through named wrappers for types that
// cross contexts.
type Type interface {
	fmt.Stringer

	// Compare reports whether this type is the same as other, looking
	// through named wrappers.
	Compare(other Type) bool

	// CanCast reports whether a value of this type can be cast to other.
	// When implicit is true the stricter implicit-conversion rules apply.
	CanCast(other Type, implicit bool) bool

	IsVoid() bool
	IsInteger() bool
	IsSignedInteger() bool
	IsUnsignedInteger() bool
	IsFloatingPoint() bool
	IsArray() bool
	IsPointer() bool
	IsStruct() bool
}

// basicType provides the default predicate set for embedding.
type basicType struct{}

func (basicType) IsVoid() bool            { return false }
func (basicType) IsInteger() bool         { return false }
func (basicType) IsSignedInteger() bool   { return false }
func (basicType) IsUnsignedInteger() bool { return false }
func (basicType) IsFloatingPoint() bool   { return false }
func (basicType) IsArray() bool           { return false }
func (basicType) IsPointer() bool         { return false }
func (basicType) IsStruct() bool          { return false }

// BuiltinType represents a type builtin to the language.
type BuiltinType struct {
	basicType
	kind BuiltinKind
}

// Kind returns the builtin kind of this type.
func (t *BuiltinType) Kind() BuiltinKind { return t.kind }

// String implements fmt.Stringer.
func (t *BuiltinType) String() string { return t.kind.String() }

// Compare implements Type.Compare.
func (t *BuiltinType) Compare(other Type) bool {
	other = Unwrap(other)
	o, ok := other.(*BuiltinType)
	return ok && o.kind == t.kind
}

func (t *BuiltinType) IsVoid() bool { return t.kind == Void }

func (t *BuiltinType) IsInteger() bool {
	return t.kind >= Bool && t.kind <= UInt64
}

func (t *BuiltinType) IsSignedInteger() bool {
	return t.kind >= Bool && t.kind <= Int64
}

func (t *BuiltinType) IsUnsignedInteger() bool {
	return t.kind >= UInt8 && t.kind <= UInt64
}

func (t *BuiltinType) IsFloatingPoint() bool {
	return t.kind >= Float32 && t.kind <= Float128
}

// BitWidth returns the width of an integer or float builtin in bits. Bool is
// one bit; Void has no width.
func (t *BuiltinType) BitWidth() uint32 {
	switch t.kind {
	case Bool:
		return 1
	case Char, Int8, UInt8:
		return 8
	case Int16, UInt16:
		return 16
	case Int32, UInt32, Float32:
		return 32
	case Int64, UInt64, Float64:
		return 64
	case Float128:
		return 128
	default:
		panic("BUG: width of non-scalar builtin")
	}
}

// ArrayType represents a fixed-size array type.
type ArrayType struct {
	basicType
	element Use
	size    uint32
}

// Element returns the qualified element type.
func (t *ArrayType) Element() Use { return t.element }

// Size returns the number of elements.
func (t *ArrayType) Size() uint32 { return t.size }

// String implements fmt.Stringer.
func (t *ArrayType) String() string {
	return fmt.Sprintf("[%d]%s", t.size, t.element.String())
}

// Compare implements Type.Compare.
func (t *ArrayType) Compare(other Type) bool {
	o, ok := Unwrap(other).(*ArrayType)
	return ok && o.size == t.size && t.element.Compare(o.element)
}

func (t *ArrayType) IsArray() bool { return true }

// PointerType represents a pointer type.
type PointerType struct {
	basicType
	pointee Use
}

// Pointee returns the qualified pointee type.
func (t *PointerType) Pointee() Use { return t.pointee }

// String implements fmt.Stringer.
func (t *PointerType) String() string { return "*" + t.pointee.String() }

// Compare implements Type.Compare.
func (t *PointerType) Compare(other Type) bool {
	o, ok := Unwrap(other).(*PointerType)
	return ok && t.pointee.Compare(o.pointee)
}

func (t *PointerType) IsPointer() bool { return true }

// FunctionType represents the type of a function signature.
type FunctionType struct {
	basicType
	ret    Use
	params []Use
}

// Return returns the qualified return type.
func (t *FunctionType) Return() Use { return t.ret }

// NumParams returns the number of parameter types.
func (t *FunctionType) NumParams() int { return len(t.params) }

// Param returns the i-th qualified parameter type.
func (t *FunctionType) Param(i int) Use { return t.params[i] }

// Params returns the parameter type list.
func (t *FunctionType) Params() []Use { return t.params }

// String implements fmt.Stringer.
func (t *FunctionType) String() string {
	var str strings.Builder
	str.WriteByte('(')
	for i, p := range t.params {
		if i > 0 {
			str.WriteString(", ")
		}
		str.WriteString(p.String())
	}
	str.WriteString(") -> ")
	str.WriteString(t.ret.String())
	return str.String()
}

// Compare implements Type.Compare.
func (t *FunctionType) Compare(other Type) bool {
	o, ok := Unwrap(other).(*FunctionType)
	if !ok || len(o.params) != len(t.params) || !t.ret.Compare(o.ret) {
		return false
	}
	for i := range t.params {
		if !t.params[i].Compare(o.params[i]) {
			return false
		}
	}
	return true
}

// CanCast implements Type.CanCast. Function types never convert.
func (t *FunctionType) CanCast(other Type, implicit bool) bool { return false }

// AliasType represents a named alias over another type.
type AliasType struct {
	basicType
	name       string
	underlying Use
}

// Name returns the declared alias name.
func (t *AliasType) Name() string { return t.name }

// Underlying returns the aliased type use.
func (t *AliasType) Underlying() Use { return t.underlying }

// SetUnderlying fills the alias body once its declaration is analyzed.
func (t *AliasType) SetUnderlying(u Use) { t.underlying = u }

// String implements fmt.Stringer.
func (t *AliasType) String() string { return t.name }

// Compare implements Type.Compare. Aliases compare equal to their
// underlying type.
func (t *AliasType) Compare(other Type) bool {
	if t == other {
		return true
	}
	if t.underlying.Type == nil {
		return false
	}
	return t.underlying.Type.Compare(other)
}

// CanCast implements Type.CanCast by deferring to the underlying type.
func (t *AliasType) CanCast(other Type, implicit bool) bool {
	if t.underlying.Type == nil {
		return false
	}
	return t.underlying.Type.CanCast(other, implicit)
}

func (t *AliasType) IsVoid() bool            { return t.underlying.Type != nil && t.underlying.Type.IsVoid() }
func (t *AliasType) IsInteger() bool         { return t.underlying.Type != nil && t.underlying.Type.IsInteger() }
func (t *AliasType) IsSignedInteger() bool   { return t.underlying.Type != nil && t.underlying.Type.IsSignedInteger() }
func (t *AliasType) IsUnsignedInteger() bool { return t.underlying.Type != nil && t.underlying.Type.IsUnsignedInteger() }
func (t *AliasType) IsFloatingPoint() bool   { return t.underlying.Type != nil && t.underlying.Type.IsFloatingPoint() }
func (t *AliasType) IsArray() bool           { return t.underlying.Type != nil && t.underlying.Type.IsArray() }
func (t *AliasType) IsPointer() bool         { return t.underlying.Type != nil && t.underlying.Type.IsPointer() }
func (t *AliasType) IsStruct() bool          { return t.underlying.Type != nil && t.underlying.Type.IsStruct() }

// StructType represents a named structure type. The field list is filled in
// by semantic analysis once the declaration body has been checked.
type StructType struct {
	basicType
	name     string
	fields   []Use
	complete bool
}

// Name returns the declared struct name.
func (t *StructType) Name() string { return t.name }

// NumFields returns the number of fields.
func (t *StructType) NumFields() int { return len(t.fields) }

// Field returns the i-th qualified field type.
func (t *StructType) Field(i int) Use { return t.fields[i] }

// Fields returns the field type list.
func (t *StructType) Fields() []Use { return t.fields }

// Complete reports whether the struct body has been filled in.
func (t *StructType) Complete() bool { return t.complete }

// SetFields fills the struct body.
func (t *StructType) SetFields(fields []Use) {
	t.fields = fields
	t.complete = true
}

// String implements fmt.Stringer.
func (t *StructType) String() string { return t.name }

// Compare implements Type.Compare. Named types compare by name.
func (t *StructType) Compare(other Type) bool {
	o, ok := Unwrap(other).(*StructType)
	return ok && o.name == t.name
}

// CanCast implements Type.CanCast. Structs never convert.
func (t *StructType) CanCast(other Type, implicit bool) bool { return false }

func (t *StructType) IsStruct() bool { return true }

// EnumType represents a named enumeration type over an integer builtin.
type EnumType struct {
	basicType
	name       string
	underlying *BuiltinType
}

// Name returns the declared enum name.
func (t *EnumType) Name() string { return t.name }

// Underlying returns the integer type variants of this enum take.
func (t *EnumType) Underlying() *BuiltinType { return t.underlying }

// SetUnderlying fills the underlying type. It must be an integer builtin.
func (t *EnumType) SetUnderlying(u *BuiltinType) {
	if !u.IsInteger() {
		panic("BUG: enum underlying type must be an integer builtin")
	}
	t.underlying = u
}

// String implements fmt.Stringer.
func (t *EnumType) String() string { return t.name }

// Compare implements Type.Compare.
func (t *EnumType) Compare(other Type) bool {
	o, ok := Unwrap(other).(*EnumType)
	return ok && o.name == t.name
}

func (t *EnumType) IsInteger() bool {
	return t.underlying != nil && t.underlying.IsInteger()
}

func (t *EnumType) IsSignedInteger() bool {
	return t.underlying != nil && t.underlying.IsSignedInteger()
}

func (t *EnumType) IsUnsignedInteger() bool {
	return t.underlying != nil && t.underlying.IsUnsignedInteger()
}

// NamedRef represents the use of a named type which was deferred at parse
// time. All refs must be resolved before lowering runs.
type NamedRef struct {
	basicType
	name       string
	underlying Type
}

// Name returns the referenced name.
func (t *NamedRef) Name() string { return t.name }

// Resolved reports whether the reference has been resolved.
func (t *NamedRef) Resolved() bool { return t.underlying != nil }

// Underlying returns the resolved type, or nil.
func (t *NamedRef) Underlying() Type { return t.underlying }

// Resolve binds the reference to a concrete type.
func (t *NamedRef) Resolve(ty Type) { t.underlying = ty }

// String implements fmt.Stringer.
func (t *NamedRef) String() string { return t.name }

// Compare implements Type.Compare by looking through the reference.
func (t *NamedRef) Compare(other Type) bool {
	if t.underlying == nil {
		return false
	}
	return t.underlying.Compare(other)
}

// CanCast implements Type.CanCast by looking through the reference.
func (t *NamedRef) CanCast(other Type, implicit bool) bool {
	if t.underlying == nil {
		return false
	}
	return t.underlying.CanCast(other, implicit)
}

func (t *NamedRef) IsVoid() bool            { return t.underlying != nil && t.underlying.IsVoid() }
func (t *NamedRef) IsInteger() bool         { return t.underlying != nil && t.underlying.IsInteger() }
func (t *NamedRef) IsSignedInteger() bool   { return t.underlying != nil && t.underlying.IsSignedInteger() }
func (t *NamedRef) IsUnsignedInteger() bool { return t.underlying != nil && t.underlying.IsUnsignedInteger() }
func (t *NamedRef) IsFloatingPoint() bool   { return t.underlying != nil && t.underlying.IsFloatingPoint() }
func (t *NamedRef) IsArray() bool           { return t.underlying != nil && t.underlying.IsArray() }
func (t *NamedRef) IsPointer() bool         { return t.underlying != nil && t.underlying.IsPointer() }
func (t *NamedRef) IsStruct() bool          { return t.underlying != nil && t.underlying.IsStruct() }

// Unwrap strips named wrappers (aliases and resolved named refs) from a
// type, returning the concrete variant.
func Unwrap(t Type) Type {
	for {
		switch w := t.(type) {
		case *AliasType:
			if w.underlying.Type == nil {
				return w
			}
			t = w.underlying.Type
		case *NamedRef:
			if w.underlying == nil {
				return w
			}
			t = w.underlying
		default:
			return t
		}
	}
}
