package target

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwmarino/lovelace/internal/ir"
)

func TestScalarLayout(t *testing.T) {
	g := ir.NewCFG("test.stm")
	tgt := New(ArchX64, ABISystemV, OSLinux)

	tests := []struct {
		ty    ir.Type
		size  uint32
		align uint32
	}{
		{g.I1(), 1, 1},
		{g.I8(), 1, 1},
		{g.I16(), 2, 2},
		{g.I32(), 4, 4},
		{g.I64(), 8, 8},
		{g.F32(), 4, 4},
		{g.F64(), 8, 8},
		{g.PointerTo(g.I32()), 8, 8},
	}

	for _, tc := range tests {
		require.Equal(t, tc.size, tgt.TypeSize(tc.ty), "size of %s", tc.ty)
		require.Equal(t, tc.align, tgt.TypeAlign(tc.ty), "align of %s", tc.ty)
	}
}

func TestArrayLayout(t *testing.T) {
	g := ir.NewCFG("test.stm")
	tgt := New(ArchX64, ABISystemV, OSLinux)

	arr := g.ArrayOf(g.I32(), 6)
	require.Equal(t, uint32(24), tgt.TypeSize(arr))
	require.Equal(t, uint32(4), tgt.TypeAlign(arr))
	require.Equal(t, uint32(8), tgt.ElementOffset(arr, 2))
}

func TestStructLayout(t *testing.T) {
	g := ir.NewCFG("test.stm")
	tgt := New(ArchX64, ABISystemV, OSLinux)

	// struct { a: i8, b: i32, c: i8, d: i64 }
	st := g.StructTypeOf("mixed")
	st.SetFields([]ir.Type{g.I8(), g.I32(), g.I8(), g.I64()})

	require.Equal(t, uint32(8), tgt.TypeAlign(st))
	require.Equal(t, uint32(0), tgt.FieldOffset(st, 0))
	require.Equal(t, uint32(4), tgt.FieldOffset(st, 1))
	require.Equal(t, uint32(8), tgt.FieldOffset(st, 2))
	require.Equal(t, uint32(16), tgt.FieldOffset(st, 3))
	require.Equal(t, uint32(24), tgt.TypeSize(st))
}

func TestNestedStructLayout(t *testing.T) {
	g := ir.NewCFG("test.stm")
	tgt := New(ArchX64, ABISystemV, OSLinux)

	inner := g.StructTypeOf("inner")
	inner.SetFields([]ir.Type{g.I32(), g.I32()})

	outer := g.StructTypeOf("outer")
	outer.SetFields([]ir.Type{g.I8(), inner})

	require.Equal(t, uint32(8), tgt.TypeSize(inner))
	require.Equal(t, uint32(4), tgt.FieldOffset(outer, 1))
	require.Equal(t, uint32(12), tgt.TypeSize(outer))
}

func TestPointerProperties(t *testing.T) {
	tgt := New(ArchX64, ABISystemV, OSLinux)

	require.True(t, tgt.IsLittleEndian())
	require.Equal(t, uint32(8), tgt.PointerSize())
	require.Equal(t, uint32(64), tgt.PointerSizeInBits())
}

func TestScalarPredicate(t *testing.T) {
	g := ir.NewCFG("test.stm")
	tgt := New(ArchX64, ABISystemV, OSLinux)

	require.True(t, tgt.IsScalarType(g.I64()))
	require.True(t, tgt.IsScalarType(g.PointerTo(g.I8())))
	require.False(t, tgt.IsScalarType(g.ArrayOf(g.I8(), 3)))

	st := g.StructTypeOf("s")
	st.SetFields([]ir.Type{g.I8()})
	require.False(t, tgt.IsScalarType(st))
}
