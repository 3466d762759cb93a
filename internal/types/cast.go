package types

// This file implements the conversion lattice. Explicit casts are permissive
// within a kind family; implicit conversions are restricted to the cases
// that cannot lose information or change meaning.

// CanCast implements Type.CanCast for builtins.
func (t *BuiltinType) CanCast(other Type, implicit bool) bool {
	other = Unwrap(other)

	if t.kind == Void {
		return false
	}

	switch o := other.(type) {
	case *BuiltinType:
		if t.IsInteger() && o.IsInteger() {
			if !implicit {
				return true
			}
			// Implicit integer conversions: identical width and signedness,
			// or widening between same-signedness types.
			if t.IsSignedInteger() != o.IsSignedInteger() {
				return false
			}
			return t.BitWidth() <= o.BitWidth()
		}
		if t.IsInteger() && o.IsFloatingPoint() {
			return !implicit
		}
		if t.IsFloatingPoint() && o.IsInteger() {
			return !implicit
		}
		if t.IsFloatingPoint() && o.IsFloatingPoint() {
			if !implicit {
				return true
			}
			return t.BitWidth() <= o.BitWidth()
		}
		return false

	case *PointerType:
		// Integer to pointer requires an explicit cast.
		return t.IsInteger() && !implicit

	case *EnumType:
		return t.IsInteger() && !implicit

	default:
		return false
	}
}

// CanCast implements Type.CanCast for arrays.
func (t *ArrayType) CanCast(other Type, implicit bool) bool {
	// Arrays decay to a pointer over a matching element type, implicitly or
	// explicitly.
	o, ok := Unwrap(other).(*PointerType)
	return ok && t.element.Compare(o.pointee)
}

// CanCast implements Type.CanCast for pointers.
func (t *PointerType) CanCast(other Type, implicit bool) bool {
	switch o := Unwrap(other).(type) {
	case *PointerType:
		if !implicit {
			return true
		}
		// Implicit pointer conversions only between void* and T*.
		return t.pointee.Type.IsVoid() || o.pointee.Type.IsVoid() ||
			t.pointee.Compare(o.pointee)

	case *BuiltinType:
		return o.IsInteger() && !implicit

	default:
		return false
	}
}

// CanCast implements Type.CanCast for enums. An enum converts to its
// underlying integer family, implicitly or explicitly.
func (t *EnumType) CanCast(other Type, implicit bool) bool {
	o, ok := Unwrap(other).(*BuiltinType)
	if !ok || t.underlying == nil {
		return false
	}
	if !implicit {
		return o.IsInteger()
	}
	return t.underlying.CanCast(o, true)
}
