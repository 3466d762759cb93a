// Package target describes the compilation target: architecture, ABI,
// operating system, endianness, and the layout rules used to size and align
// IR types.
package target

import (
	"fmt"

	"github.com/nwmarino/lovelace/internal/ir"
)

// Arch enumerates recognized CPU architectures.
type Arch uint8

const (
	// ArchX64 is x86-64.
	ArchX64 Arch = iota
)

// ABI enumerates recognized application binary interfaces.
type ABI uint8

const (
	ABISystemV ABI = iota
	ABIWin32
)

// OS enumerates recognized operating systems.
type OS uint8

const (
	OSLinux OS = iota
	OSWindows
)

// layoutRule is the size and ABI alignment of a scalar type, in bits.
type layoutRule struct {
	sizeInBits uint32
	abiAlign   uint32
}

// Target carries layout rules for one compilation.
type Target struct {
	arch         Arch
	abi          ABI
	os           OS
	littleEndian bool
	ptrSize      uint32 // bits
	ptrAlign     uint32 // bits

	intRules   map[uint32]layoutRule
	floatRules map[uint32]layoutRule
}

// New returns a target for the given triple.
func New(arch Arch, abi ABI, os OS) *Target {
	t := &Target{arch: arch, abi: abi, os: os}
	switch arch {
	case ArchX64:
		t.littleEndian = true
		t.ptrSize = 64
		t.ptrAlign = 64
	}
	t.intRules = map[uint32]layoutRule{
		1:  {8, 8},
		8:  {8, 8},
		16: {16, 16},
		32: {32, 32},
		64: {64, 64},
	}
	t.floatRules = map[uint32]layoutRule{
		32: {32, 32},
		64: {64, 64},
	}
	return t
}

// Arch returns the target architecture.
func (t *Target) Arch() Arch { return t.arch }

// ABI returns the target ABI.
func (t *Target) ABI() ABI { return t.abi }

// OS returns the target operating system.
func (t *Target) OS() OS { return t.os }

// IsLittleEndian reports whether the target is little-endian.
func (t *Target) IsLittleEndian() bool { return t.littleEndian }

// PointerSize returns the pointer size in bytes.
func (t *Target) PointerSize() uint32 { return t.ptrSize / 8 }

// PointerSizeInBits returns the pointer size in bits.
func (t *Target) PointerSizeInBits() uint32 { return t.ptrSize }

// PointerAlign returns the natural pointer alignment in bytes.
func (t *Target) PointerAlign() uint32 { return t.ptrAlign / 8 }

// alignTo rounds offset up to a multiple of align.
func alignTo(offset, align uint32) uint32 {
	return (offset + align - 1) &^ (align - 1)
}

// TypeSize returns the size of ty in bytes.
func (t *Target) TypeSize(ty ir.Type) uint32 {
	return t.TypeSizeInBits(ty) / 8
}

// TypeSizeInBits returns the size of ty in bits.
func (t *Target) TypeSizeInBits(ty ir.Type) uint32 {
	switch typ := ty.(type) {
	case *ir.PointerType:
		return t.ptrSize
	case *ir.ArrayType:
		return t.TypeSizeInBits(typ.Element()) * typ.Size()
	case *ir.StructType:
		offset := uint32(0)
		for _, field := range typ.Fields() {
			offset = alignTo(offset, t.TypeAlignInBits(field))
			offset += t.TypeSizeInBits(field)
		}
		return alignTo(offset, t.TypeAlignInBits(typ))
	case *ir.IntegerType:
		return t.intRules[typ.Bits()].sizeInBits
	case *ir.FloatType:
		return t.floatRules[typ.Bits()].sizeInBits
	default:
		panic(fmt.Sprintf("BUG: no layout rule for type %s", ty))
	}
}

// TypeAlign returns the natural alignment of ty in bytes.
func (t *Target) TypeAlign(ty ir.Type) uint32 {
	return t.TypeAlignInBits(ty) / 8
}

// TypeAlignInBits returns the natural alignment of ty in bits.
func (t *Target) TypeAlignInBits(ty ir.Type) uint32 {
	switch typ := ty.(type) {
	case *ir.PointerType:
		return t.ptrAlign
	case *ir.ArrayType:
		return t.TypeAlignInBits(typ.Element())
	case *ir.StructType:
		maxAlign := uint32(8)
		for _, field := range typ.Fields() {
			if a := t.TypeAlignInBits(field); a > maxAlign {
				maxAlign = a
			}
		}
		return maxAlign
	case *ir.IntegerType:
		return t.intRules[typ.Bits()].abiAlign
	case *ir.FloatType:
		return t.floatRules[typ.Bits()].abiAlign
	default:
		panic(fmt.Sprintf("BUG: no layout rule for type %s", ty))
	}
}

// IsScalarType reports whether ty is a non-aggregate type. Pointers count
// as scalar.
func (t *Target) IsScalarType(ty ir.Type) bool {
	switch ty.(type) {
	case *ir.IntegerType, *ir.FloatType, *ir.PointerType:
		return true
	default:
		return false
	}
}

// ElementOffset returns the byte offset of element idx of an array.
func (t *Target) ElementOffset(ty *ir.ArrayType, idx uint32) uint32 {
	return t.TypeSize(ty.Element()) * idx
}

// PointeeOffset returns the byte offset of element idx behind a pointer.
func (t *Target) PointeeOffset(ty *ir.PointerType, idx uint32) uint32 {
	return t.TypeSize(ty.Pointee()) * idx
}

// FieldOffset returns the byte offset of field idx of a struct. Fields are
// packed in declaration order, each aligned to its natural alignment.
func (t *Target) FieldOffset(ty *ir.StructType, idx uint32) uint32 {
	offset := uint32(0)
	for i := uint32(0); i != idx; i++ {
		field := ty.Field(int(i))
		offset = alignTo(offset, t.TypeAlign(field)) + t.TypeSize(field)
	}
	return alignTo(offset, t.TypeAlign(ty.Field(int(idx))))
}
