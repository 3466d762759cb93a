package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterningIdentity(t *testing.T) {
	ctx := NewContext()

	i32 := ctx.Builtin(Int32)
	require.Same(t, i32, ctx.Builtin(Int32))

	ptr := ctx.Pointer(MakeUse(i32))
	require.Same(t, ptr, ctx.Pointer(MakeUse(i32)))
	require.NotSame(t, ptr, ctx.Pointer(MakeMutUse(i32)))

	arr := ctx.Array(MakeUse(i32), 4)
	require.Same(t, arr, ctx.Array(MakeUse(i32), 4))
	require.NotSame(t, arr, ctx.Array(MakeUse(i32), 8))
}

func TestNamedTypesCreatedNotLookedUp(t *testing.T) {
	ctx := NewContext()

	s := ctx.CreateStruct("vec2")
	require.Same(t, s, ctx.Struct("vec2"))
	require.Panics(t, func() { ctx.CreateStruct("vec2") })

	e := ctx.CreateEnum("color")
	e.SetUnderlying(ctx.Builtin(Int32))
	require.Same(t, e, ctx.Enum("color"))
}

func TestDeferredResolution(t *testing.T) {
	ctx := NewContext()

	ref := ctx.Deferred("point")
	require.Same(t, ref, ctx.Deferred("point"))
	require.False(t, ref.Resolved())

	unresolved := ctx.ResolveDeferred()
	require.Equal(t, []string{"point"}, unresolved)

	s := ctx.CreateStruct("point")
	require.Empty(t, ctx.ResolveDeferred())
	require.True(t, ref.Resolved())
	require.Same(t, Type(s), ref.Underlying())
	require.True(t, ref.Compare(s))
}

func TestAliasLooksThrough(t *testing.T) {
	ctx := NewContext()

	alias := ctx.CreateAlias("word")
	alias.SetUnderlying(MakeUse(ctx.Builtin(UInt64)))

	require.True(t, alias.Compare(ctx.Builtin(UInt64)))
	require.True(t, alias.IsInteger())
	require.True(t, alias.IsUnsignedInteger())
	require.False(t, alias.IsSignedInteger())
}

func TestCastLattice(t *testing.T) {
	ctx := NewContext()

	i8 := ctx.Builtin(Int8)
	i32 := ctx.Builtin(Int32)
	i64 := ctx.Builtin(Int64)
	u32 := ctx.Builtin(UInt32)
	f32 := ctx.Builtin(Float32)
	f64 := ctx.Builtin(Float64)
	void := ctx.Builtin(Void)
	voidPtr := ctx.Pointer(MakeUse(void))
	i32Ptr := ctx.Pointer(MakeUse(i32))
	i8Ptr := ctx.Pointer(MakeUse(i8))

	tests := []struct {
		name               string
		from, to           Type
		explicit, implicit bool
	}{
		{"int widening same sign", i32, i64, true, true},
		{"int narrowing", i64, i32, true, false},
		{"int sign change", i32, u32, true, false},
		{"int to float", i32, f32, true, false},
		{"float to int", f64, i64, true, false},
		{"float widening", f32, f64, true, true},
		{"float narrowing", f64, f32, true, false},
		{"int to pointer", i64, i32Ptr, true, false},
		{"pointer to int", i32Ptr, i64, true, false},
		{"pointer to void pointer", i32Ptr, voidPtr, true, true},
		{"void pointer to pointer", voidPtr, i8Ptr, true, true},
		{"unrelated pointers", i32Ptr, i8Ptr, true, false},
		{"float to pointer", f64, i32Ptr, false, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.explicit, tc.from.CanCast(tc.to, false))
			require.Equal(t, tc.implicit, tc.from.CanCast(tc.to, true))
		})
	}
}

func TestArrayDecay(t *testing.T) {
	ctx := NewContext()

	i32 := ctx.Builtin(Int32)
	arr := ctx.Array(MakeUse(i32), 16)
	i32Ptr := ctx.Pointer(MakeUse(i32))
	i64Ptr := ctx.Pointer(MakeUse(ctx.Builtin(Int64)))

	require.True(t, arr.CanCast(i32Ptr, true))
	require.True(t, arr.CanCast(i32Ptr, false))
	require.False(t, arr.CanCast(i64Ptr, false))
}

func TestMutNeverStrippedImplicitly(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.Builtin(Int32)

	imm := MakeUse(i32)
	mut := MakeMutUse(i32)

	require.True(t, mut.CanCast(imm, true))
	require.False(t, imm.CanCast(mut, true))
	require.True(t, imm.CanCast(mut, false))
}

func TestEnumCasts(t *testing.T) {
	ctx := NewContext()

	e := ctx.CreateEnum("mode")
	e.SetUnderlying(ctx.Builtin(Int32))

	require.True(t, e.CanCast(ctx.Builtin(Int32), true))
	require.True(t, e.CanCast(ctx.Builtin(Int64), true))
	require.True(t, e.CanCast(ctx.Builtin(Int8), false))
	require.False(t, e.CanCast(ctx.Builtin(Int8), true))
	require.False(t, e.CanCast(ctx.Builtin(Float32), false))
}
